package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/amiwrpremium/xtls-crud/internal/service"
)

func init() {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management",
	}

	var listKeyword string
	var listLimit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUserService(cmd, func(users service.UserService) error {
				list, err := users.List(cmd.Context(), service.UserListInput{Keyword: listKeyword, Limit: listLimit})
				if err != nil {
					return err
				}
				return printUsers(cmd.OutOrStdout(), list)
			})
		},
	}
	listCmd.Flags().StringVar(&listKeyword, "keyword", "", "Filter by email or name")
	listCmd.Flags().IntVar(&listLimit, "limit", 100, "Maximum rows")
	userCmd.AddCommand(listCmd)

	var createEmail, createPassword, createName string
	var createSuperuser bool
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if createEmail == "" || createPassword == "" {
				return errors.New("--email and --password are required")
			}
			return withUserService(cmd, func(users service.UserService) error {
				user, err := users.Create(cmd.Context(), service.CreateUserInput{
					Email:       createEmail,
					Password:    createPassword,
					FullName:    createName,
					IsSuperuser: createSuperuser,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %s created (id %d).\n", user.Email, user.ID)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&createEmail, "email", "", "User email")
	createCmd.Flags().StringVar(&createPassword, "password", "", "User password")
	createCmd.Flags().StringVar(&createName, "full-name", "", "Display name")
	createCmd.Flags().BoolVar(&createSuperuser, "superuser", false, "Grant superuser")
	userCmd.AddCommand(createCmd)

	var resetEmail, resetPassword string
	resetCmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a user's password and revoke their refresh tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resetEmail == "" || resetPassword == "" {
				return errors.New("--email and --password are required")
			}
			return withUserService(cmd, func(users service.UserService) error {
				if err := users.ResetPassword(cmd.Context(), resetEmail, resetPassword); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Password reset for %s.\n", resetEmail)
				return nil
			})
		},
	}
	resetCmd.Flags().StringVar(&resetEmail, "email", "", "User email")
	resetCmd.Flags().StringVar(&resetPassword, "password", "", "New password")
	userCmd.AddCommand(resetCmd)

	rootCmd.AddCommand(userCmd)
}

func withUserService(cmd *cobra.Command, fn func(service.UserService) error) error {
	handle, err := getStore(cmd.Context(), appConfig)
	if err != nil {
		return err
	}
	defer handle.Close()
	users, err := newUserService(handle, appConfig, cliLogger(appConfig))
	if err != nil {
		return err
	}
	return fn(users)
}

func printUsers(out io.Writer, list *service.UserList) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tEmail\tName\tActive\tSuperuser\tCreated")
	for _, u := range list.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%v\t%s\n", u.ID, u.Email, u.FullName, u.IsActive, u.IsSuperuser, humanize.Time(time.Unix(u.CreatedAt, 0)))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d users\n", len(list.Items), list.Total)
	return nil
}
