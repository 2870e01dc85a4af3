package cmd

import (
	"fmt"
	"strings"

	"github.com/khrees2412/rosterctl/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  "View and update configuration settings",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.AppConfig
		cmd.Println(titleStyle.Render("Configuration"))
		cmd.Printf("%s %s\n", labelStyle.Render("Config File:"), config.GetConfigPath())
		cmd.Printf("%s %s\n", labelStyle.Render("API URL:"), cfg.APIURL)

		// Show if the token is configured (but don't show the actual token)
		if cfg.APIToken != "" {
			cmd.Printf("%s %s\n", labelStyle.Render("API Token:"), "✓ Configured")
		} else {
			cmd.Printf("%s %s\n", labelStyle.Render("API Token:"), "✗ Not configured")
		}

		timeout := "none"
		if cfg.RequestTimeout > 0 {
			timeout = cfg.RequestTimeout.String()
		}
		cmd.Printf("%s %s\n", labelStyle.Render("Request Timeout:"), timeout)
		cmd.Printf("%s %s\n", labelStyle.Render("Default Decision:"), cfg.DefaultDecision)
		cmd.Printf("%s %s\n", labelStyle.Render("Log Level:"), cfg.LogLevel)
		cmd.Printf("%s %t\n", labelStyle.Render("History:"), cfg.HistoryEnabled)
	},
}

var setConfigCmd = &cobra.Command{
	Use:   "set",
	Short: "Update a configuration value",
	Example: `  roster config set --key api_url --value https://roster.example.com/api
  roster config set --key api_token --value tok_...
  roster config set --key default_decision --value skip
  roster config set --key request_timeout --value 30s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		value, _ := cmd.Flags().GetString("value")

		if key == "" || value == "" {
			return fmt.Errorf("both --key and --value are required")
		}
		if !config.IsKey(key) {
			return fmt.Errorf("invalid key, must be one of: %s", strings.Join(config.Keys, ", "))
		}

		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("update config: %w", err)
		}

		// Reload config so bad values are reported right away
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("config saved but invalid: %w", err)
		}

		cmd.Printf("✓ Configuration updated: %s\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(setConfigCmd)

	// Flags for set command
	setConfigCmd.Flags().String("key", "", "Configuration key")
	setConfigCmd.Flags().String("value", "", "Configuration value")
}
