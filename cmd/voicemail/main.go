package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhle/voice-mail/internal/app"
	"github.com/nhle/voice-mail/internal/model"
)

var (
	// Global flags
	configPath string
	provider   string
	verbose    bool

	application *app.App
)

// rootCmd starts the console when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "voicemail",
	Short: "Compose and send email by speaking",
	Long: `voicemail turns spoken (or typed) instructions into an email draft.

Say who the email is for, what it is about and what it should say, then
confirm to send it. Contacts and preferences are kept in a local database.

Run without arguments to start the interactive console.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		opts := app.Options{
			ConfigPath: configPath,
			Provider:   provider,
			Debug:      verbose,
		}
		// The console owns the terminal, so its logs go to a file.
		if name := cmd.Name(); name == "voicemail" || name == "run" {
			opts.LogFile = filepath.Join(model.ConfigDir(), "voicemail.log")
		}

		var err error
		application, err = app.Load(opts)
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/voicemail/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "language backend: claude, gemini or offline")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(contactsCmd)
	rootCmd.AddCommand(sentCmd)
	rootCmd.AddCommand(setupCmd)
}

// execute runs cmd and then releases the application. Cobra skips post-run
// hooks when RunE fails, so closing happens here.
func execute(cmd *cobra.Command) error {
	defer closeApplication()
	return cmd.Execute()
}

func closeApplication() {
	if application == nil {
		return
	}
	if err := application.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "closing:", err)
	}
	application = nil
}

func main() {
	if err := execute(rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
