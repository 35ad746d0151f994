package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mejba13/invoiceflow/internal/config"
	"github.com/mejba13/invoiceflow/internal/render"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and update InvoiceFlow configuration settings",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigSetCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long:  "Display the current effective configuration including environment variable overrides",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Fprint(cmd.OutOrStdout(), render.Fields([][2]string{
				{"server.url", cfg.Server.URL},
				{"server.timeout", cfg.Server.Timeout.String()},
				{"drafts.path", cfg.Drafts.Path},
				{"logging.level", cfg.Logging.Level},
			}))
			if cfg.IsInsecure() {
				fmt.Fprintln(cmd.OutOrStdout(), render.Warning.Render("Warning: credentials are sent over plain http"))
			}
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "set <key> <value>",
		Short:             "Update configuration value",
		Long:              "Update a configuration value in the config file. Example: invoiceflow config set server.url https://billing.example.com/api",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: configKeyCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			section, field, ok := strings.Cut(key, ".")
			if !ok {
				return fmt.Errorf("invalid key format. Expected format: section.field (e.g., server.url)")
			}

			switch section {
			case "server":
				switch field {
				case "url":
					cfg.Server.URL = value
				case "timeout":
					d, err := time.ParseDuration(value)
					if err != nil || d <= 0 {
						return fmt.Errorf("invalid timeout %q: expected a positive duration such as 15s", value)
					}
					cfg.Server.Timeout = d
				default:
					return fmt.Errorf("unknown server field: %s", field)
				}
			case "drafts":
				switch field {
				case "path":
					cfg.Drafts.Path = value
				default:
					return fmt.Errorf("unknown drafts field: %s", field)
				}
			case "logging":
				switch field {
				case "level":
					cfg.Logging.Level = value
				default:
					return fmt.Errorf("unknown logging field: %s", field)
				}
			default:
				return fmt.Errorf("unknown config section: %s", section)
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			cmd.Printf("Updated %s to: %s\n", key, value)
			return nil
		},
	}
}

// configKeyCompletion provides tab completion for config keys
func configKeyCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) >= 1 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	return []string{
		"server.url\tInvoiceFlow API base URL",
		"server.timeout\tHTTP request timeout",
		"drafts.path\tLocal draft database",
		"logging.level\tLogging level (debug, info, warn, error)",
	}, cobra.ShellCompDirectiveNoFileComp
}
