package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/nhle/voice-mail/internal/dialogue"
	"github.com/nhle/voice-mail/internal/model"
)

// SetupValues holds what the setup form collects. Secrets are returned
// separately from the config so the caller can put them in the keyring.
type SetupValues struct {
	Provider string
	APIKey   string

	SMTPHost     string
	SMTPPort     string
	SMTPSecurity string
	Username     string
	Password     string
	From         string

	IMAPEnabled bool
	IMAPHost    string
	IMAPPort    string

	Theme string
}

// SetupValuesFrom prefills the form from an existing config.
func SetupValuesFrom(cfg *model.AppConfig) SetupValues {
	return SetupValues{
		Provider:     cfg.AI.Provider,
		SMTPHost:     cfg.SMTP.Host,
		SMTPPort:     cfg.SMTP.Port,
		SMTPSecurity: cfg.SMTP.Security,
		Username:     cfg.SMTP.Username,
		From:         cfg.SMTP.From,
		IMAPEnabled:  cfg.IMAP.Enabled,
		IMAPHost:     cfg.IMAP.Host,
		IMAPPort:     cfg.IMAP.Port,
		Theme:        cfg.Display.Theme,
	}
}

// Apply copies the non-secret values into cfg.
func (v SetupValues) Apply(cfg *model.AppConfig) {
	cfg.AI.Provider = v.Provider
	cfg.SMTP.Host = strings.TrimSpace(v.SMTPHost)
	cfg.SMTP.Port = strings.TrimSpace(v.SMTPPort)
	cfg.SMTP.Security = v.SMTPSecurity
	cfg.SMTP.Username = strings.TrimSpace(v.Username)
	cfg.SMTP.From = strings.TrimSpace(v.From)
	cfg.IMAP.Enabled = v.IMAPEnabled
	cfg.IMAP.Host = strings.TrimSpace(v.IMAPHost)
	cfg.IMAP.Port = strings.TrimSpace(v.IMAPPort)
	if v.Theme != "" {
		cfg.Display.Theme = v.Theme
	}
}

// NewSetupForm builds the setup form bound to v.
func NewSetupForm(v *SetupValues) *huh.Form {
	if v.SMTPSecurity == "" {
		v.SMTPSecurity = "starttls"
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Language backend").
				Description("Interprets what you say").
				Options(
					huh.NewOption("Claude (Anthropic API)", "claude"),
					huh.NewOption("Gemini (Google AI)", "gemini"),
					huh.NewOption("Offline rules, no API key", "offline"),
				).
				Value(&v.Provider),
			huh.NewSelect[string]().
				Title("Theme").
				Options(
					huh.NewOption("Dark", dialogue.ThemeDark),
					huh.NewOption("Light", dialogue.ThemeLight),
				).
				Value(&v.Theme),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("API key").
				Description("Stored in the system keyring; leave empty to keep the saved key").
				EchoMode(huh.EchoModePassword).
				Value(&v.APIKey),
		).WithHideFunc(func() bool { return v.Provider == "offline" }),
		huh.NewGroup(
			huh.NewInput().
				Title("SMTP Host").
				Description("Outgoing mail server").
				Placeholder("smtp.gmail.com").
				Value(&v.SMTPHost).
				Validate(validateRequired("SMTP Host")),
			huh.NewInput().
				Title("SMTP Port").
				Description("SMTP server port (e.g., 587)").
				Placeholder("587").
				Value(&v.SMTPPort).
				Validate(validatePort),
			huh.NewSelect[string]().
				Title("Security").
				Options(
					huh.NewOption("STARTTLS (port 587)", "starttls"),
					huh.NewOption("TLS (port 465)", "tls"),
				).
				Value(&v.SMTPSecurity),
			huh.NewInput().
				Title("Username").
				Description("Email account username").
				Placeholder("user@example.com").
				Value(&v.Username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Email account password or app password; leave empty to keep the saved one").
				EchoMode(huh.EchoModePassword).
				Value(&v.Password),
			huh.NewInput().
				Title("From address").
				Description("Defaults to the username").
				Value(&v.From).
				Validate(validateOptionalAddress),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Copy sent mail to IMAP").
				Description("Append each sent email to your Sent folder").
				Affirmative("Yes").
				Negative("No").
				Value(&v.IMAPEnabled),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Placeholder("imap.gmail.com").
				Value(&v.IMAPHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Placeholder("993").
				Value(&v.IMAPPort).
				Validate(validatePort),
		).WithHideFunc(func() bool { return !v.IMAPEnabled }),
	)
}

// RunSetup shows the setup form and fills v.
func RunSetup(v *SetupValues) error {
	if err := NewSetupForm(v).Run(); err != nil {
		return fmt.Errorf("running setup form: %w", err)
	}
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return fmt.Errorf("port must be a number")
		}
	}
	return nil
}

func validateOptionalAddress(s string) error {
	s = strings.TrimSpace(s)
	if s != "" && !dialogue.ValidAddress(s) {
		return fmt.Errorf("%q is not a valid email address", s)
	}
	return nil
}
