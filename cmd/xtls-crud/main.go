package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amiwrpremium/xtls-crud/internal/config"
)

// Build info - injected via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	configFile string
	appConfig  *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "xtls-crud",
	Short:         "CRUD API for Xray inbound configurations",
	Long:          `xtls-crud stores Xray inbound configs in SQLite and serves them over a JSON API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		appConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ./config.yaml or /etc/xtls-crud/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
