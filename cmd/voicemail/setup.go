package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/voice-mail/internal/app"
	"github.com/nhle/voice-mail/internal/credential"
	"github.com/nhle/voice-mail/internal/ui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the language backend and mail account",
	Long: `Walk through the settings needed to understand speech and send email.
Settings are written to the config file; the API key and mail password are
stored in the system keyring.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := application.Config
		values := ui.SetupValuesFrom(cfg)
		if err := ui.RunSetup(&values); err != nil {
			return err
		}
		values.Apply(cfg)

		if key := app.APIKeyFor(cfg.AI.Provider); key != "" && values.APIKey != "" {
			if err := application.Vault.Set(key, values.APIKey); err != nil {
				return err
			}
		}
		if values.Password != "" {
			if err := application.Vault.Set(credential.SMTPPassword, values.Password); err != nil {
				return err
			}
		}
		if err := application.Store.SetTheme(cmd.Context(), cfg.Display.Theme); err != nil {
			return err
		}
		if err := application.SaveConfig(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", application.ConfigPath)
		return nil
	},
}
