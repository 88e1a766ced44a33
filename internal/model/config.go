package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AIConfig holds settings for the language-understanding backend.
type AIConfig struct {
	// Provider is "claude", "gemini" or "offline".
	Provider  string `mapstructure:"provider" yaml:"provider"`
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
}

// SMTPConfig holds the outgoing mail server settings. The password lives
// in the keyring.
type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	From     string `mapstructure:"from" yaml:"from"`

	// Security is "tls", "starttls" or "none".
	Security string `mapstructure:"security" yaml:"security"`
}

// IMAPConfig controls archiving sent mail to an IMAP mailbox.
type IMAPConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Host        string `mapstructure:"host" yaml:"host"`
	Port        string `mapstructure:"port" yaml:"port"`
	TLS         bool   `mapstructure:"tls" yaml:"tls"`
	SentMailbox string `mapstructure:"sent_mailbox" yaml:"sent_mailbox"`
}

// InterpreterConfig tunes the per-turn pipeline.
type InterpreterConfig struct {
	// HistorySize is how many recent turns are kept as context.
	HistorySize int `mapstructure:"history_size" yaml:"history_size"`

	// Timeout bounds one backend call.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Fillers replaces the default filler word list when non-empty.
	Fillers []string `mapstructure:"fillers" yaml:"fillers"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// StoreConfig locates the local database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	AI          AIConfig          `mapstructure:"ai" yaml:"ai"`
	SMTP        SMTPConfig        `mapstructure:"smtp" yaml:"smtp"`
	IMAP        IMAPConfig        `mapstructure:"imap" yaml:"imap"`
	Interpreter InterpreterConfig `mapstructure:"interpreter" yaml:"interpreter"`
	Display     DisplayConfig     `mapstructure:"display" yaml:"display"`
	Store       StoreConfig       `mapstructure:"store" yaml:"store"`
}

// Config defaults.
const (
	DefaultProvider    = "claude"
	DefaultMaxTokens   = 1024
	DefaultHistorySize = 6
	DefaultTimeout     = 8 * time.Second
	DefaultTheme       = "dark"
	DefaultSMTPPort    = "587"
	DefaultIMAPPort    = "993"
	DefaultSentMailbox = "Sent"

	envPrefix = "VOICEMAIL"
)

// ConfigDir returns ~/.config/voicemail, or "." when the home directory is
// unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "voicemail")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/voicemail/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		AI: AIConfig{
			Provider:  DefaultProvider,
			MaxTokens: DefaultMaxTokens,
		},
		SMTP: SMTPConfig{
			Port:     DefaultSMTPPort,
			Security: "starttls",
		},
		IMAP: IMAPConfig{
			Port:        DefaultIMAPPort,
			TLS:         true,
			SentMailbox: DefaultSentMailbox,
		},
		Interpreter: InterpreterConfig{
			HistorySize: DefaultHistorySize,
			Timeout:     DefaultTimeout,
		},
		Display: DisplayConfig{
			Theme: DefaultTheme,
		},
		Store: StoreConfig{
			Path: filepath.Join(ConfigDir(), "voicemail.db"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("ai.provider", d.AI.Provider)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("smtp.host", d.SMTP.Host)
	v.SetDefault("smtp.port", d.SMTP.Port)
	v.SetDefault("smtp.username", d.SMTP.Username)
	v.SetDefault("smtp.from", d.SMTP.From)
	v.SetDefault("smtp.security", d.SMTP.Security)
	v.SetDefault("imap.enabled", d.IMAP.Enabled)
	v.SetDefault("imap.host", d.IMAP.Host)
	v.SetDefault("imap.port", d.IMAP.Port)
	v.SetDefault("imap.tls", d.IMAP.TLS)
	v.SetDefault("imap.sent_mailbox", d.IMAP.SentMailbox)
	v.SetDefault("interpreter.history_size", d.Interpreter.HistorySize)
	v.SetDefault("interpreter.timeout", d.Interpreter.Timeout)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("store.path", d.Store.Path)
}

// LoadConfig reads configuration from the YAML file at path on fsys.
// VOICEMAIL_* environment variables override file values (for example
// VOICEMAIL_SMTP_HOST). A missing file yields the defaults.
func LoadConfig(fsys afero.Fs, path string) (*AppConfig, error) {
	v := viper.New()
	v.SetFs(fsys)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that would break the pipeline.
func (c *AppConfig) Validate() error {
	if c.Interpreter.HistorySize < 1 {
		return fmt.Errorf("interpreter.history_size must be at least 1, got %d", c.Interpreter.HistorySize)
	}
	if c.Interpreter.Timeout <= 0 {
		return fmt.Errorf("interpreter.timeout must be positive, got %s", c.Interpreter.Timeout)
	}
	switch c.Display.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("display.theme must be dark or light, got %q", c.Display.Theme)
	}
	switch c.SMTP.Security {
	case "tls", "starttls", "none":
	default:
		return fmt.Errorf("smtp.security must be tls, starttls or none, got %q", c.SMTP.Security)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(fsys afero.Fs, path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetFs(fsys)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("ai", cfg.AI)
	v.Set("smtp", cfg.SMTP)
	v.Set("imap", cfg.IMAP)
	v.Set("interpreter.history_size", cfg.Interpreter.HistorySize)
	v.Set("interpreter.timeout", cfg.Interpreter.Timeout.String())
	v.Set("interpreter.fillers", cfg.Interpreter.Fillers)
	v.Set("display", cfg.Display)
	v.Set("store", cfg.Store)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// LoadDotEnv reads KEY=value files from fsys. Missing files are skipped and
// later files win.
func LoadDotEnv(fsys afero.Fs, paths ...string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range paths {
		f, err := fsys.Open(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", p, err)
		}
		vals, err := godotenv.Parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", p, err)
		}
		for k, v := range vals {
			out[k] = v
		}
	}
	return out, nil
}

// ApplyEnv exports vals into the process environment without replacing
// variables that are already set.
func ApplyEnv(vals map[string]string) error {
	for k, v := range vals {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
	}
	return nil
}
