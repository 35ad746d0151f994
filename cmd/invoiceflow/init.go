package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/config"
)

func newInitCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration",
		Long:  "Create the configuration file and data directory for InvoiceFlow",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := config.GetConfigPath()

			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("configuration already exists at %s\n\nTo reconfigure, either:\n  1. Edit the file directly, or\n  2. Delete it and run 'invoiceflow init' again, or\n  3. Use 'invoiceflow config set <key> <value>' to update specific values", configPath)
			}

			cfg := config.Default()
			if serverURL != "" {
				cfg.Server.URL = serverURL
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			cmd.Printf("Configuration initialized at %s\n", config.GetConfigDir())
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "InvoiceFlow API base URL")
	return cmd
}
