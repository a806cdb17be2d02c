package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amiwrpremium/xtls-crud/internal/migrations"
)

func init() {
	var migrateStatus bool
	var migrateRollback bool
	migrateCmd := &cobra.Command{
		Use:   "migrate [up|down|status|version]",
		Short: "Database migration management",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openDB(ctx, appConfig)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Using DB path: %s\n", appConfig.DB.Path)

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			if migrateStatus {
				action = "status"
			}
			if migrateRollback {
				action = "down"
			}

			switch action {
			case "up":
				return migrations.Up(ctx, db)
			case "down":
				return migrations.Down(ctx, db)
			case "status":
				return migrations.Status(ctx, db)
			case "version":
				version, err := migrations.Version(ctx, db)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d\n", version)
				return nil
			default:
				return fmt.Errorf("unknown migrate action %q", action)
			}
		},
	}
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show migration status")
	migrateCmd.Flags().BoolVar(&migrateRollback, "rollback", false, "Rollback the last migration")
	rootCmd.AddCommand(migrateCmd)
}
