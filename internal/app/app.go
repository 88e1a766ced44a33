// Package app wires configuration, credentials, storage and the per-turn
// pipeline into a runnable session.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/nhle/voice-mail/internal/ai"
	"github.com/nhle/voice-mail/internal/credential"
	"github.com/nhle/voice-mail/internal/extract"
	"github.com/nhle/voice-mail/internal/logging"
	"github.com/nhle/voice-mail/internal/mailer"
	"github.com/nhle/voice-mail/internal/model"
	"github.com/nhle/voice-mail/internal/normalize"
	"github.com/nhle/voice-mail/internal/session"
	"github.com/nhle/voice-mail/internal/store"
)

// ErrMailNotConfigured is returned by Sender when no SMTP host is set.
var ErrMailNotConfigured = errors.New("outgoing mail is not configured")

// Options control how an App is loaded.
type Options struct {
	// ConfigPath defaults to model.DefaultConfigPath().
	ConfigPath string

	// Provider overrides ai.provider from the config file when set.
	Provider string

	Debug   bool
	LogFile string

	// Fs is the filesystem holding the config and .env files. Defaults to
	// the OS filesystem.
	Fs afero.Fs

	// Vault and Logger replace the system keyring and the built logger.
	Vault  *credential.Vault
	Logger *zap.Logger
}

// App holds the long-lived dependencies of one process.
type App struct {
	Config     *model.AppConfig
	ConfigPath string
	Store      *store.SQLiteStore
	Vault      *credential.Vault
	Logger     *zap.Logger

	fs afero.Fs
}

// Load reads .env files and the config, then opens the logger, keyring and
// database.
func Load(opts Options) (*App, error) {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	path := opts.ConfigPath
	if path == "" {
		path = model.DefaultConfigPath()
	}

	vals, err := model.LoadDotEnv(fsys, filepath.Join(model.ConfigDir(), ".env"), ".env")
	if err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := model.ApplyEnv(vals); err != nil {
		return nil, fmt.Errorf("applying .env: %w", err)
	}

	cfg, err := model.LoadConfig(fsys, path)
	if err != nil {
		return nil, err
	}
	if opts.Provider != "" {
		cfg.AI.Provider = opts.Provider
	}

	logger := opts.Logger
	if logger == nil {
		logger, err = logging.New(logging.Options{Debug: opts.Debug, File: opts.LogFile})
		if err != nil {
			return nil, err
		}
	}

	vault := opts.Vault
	if vault == nil {
		vault, err = credential.Open()
		if err != nil {
			logger.Warn("keyring unavailable, reading secrets from the environment only", zap.Error(err))
			vault = credential.NewVault(keyring.NewArrayKeyring(nil))
		}
	}

	if dir := filepath.Dir(cfg.Store.Path); cfg.Store.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}
	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", cfg.Store.Path, err)
	}

	return &App{
		Config:     cfg,
		ConfigPath: path,
		Store:      st,
		Vault:      vault,
		Logger:     logger,
		fs:         fsys,
	}, nil
}

// APIKeyFor names the keyring entry holding the provider's key, or "" for
// the offline backend.
func APIKeyFor(provider string) string {
	switch provider {
	case ai.ProviderGemini:
		return credential.GeminiAPIKey
	case ai.ProviderOffline:
		return ""
	default:
		return credential.ClaudeAPIKey
	}
}

// Backend builds the language backend selected by the config.
func (a *App) Backend(ctx context.Context) (extract.Backend, error) {
	settings := ai.Settings{
		Provider:  a.Config.AI.Provider,
		Model:     a.Config.AI.Model,
		MaxTokens: a.Config.AI.MaxTokens,
		BaseURL:   a.Config.AI.BaseURL,
	}
	if key := APIKeyFor(settings.Provider); key != "" {
		secret, err := a.Vault.Get(key)
		if err != nil {
			return nil, err
		}
		settings.APIKey = secret
	}

	backend, err := ai.NewBackend(ctx, settings)
	if errors.Is(err, ai.ErrNoAPIKey) {
		return nil, fmt.Errorf(
			"%w: set %s, run `voicemail setup`, or use --provider offline",
			err, credential.EnvVar(APIKeyFor(settings.Provider)),
		)
	}
	return backend, err
}

// Sender builds the SMTP sender, archiving to IMAP when enabled.
func (a *App) Sender() (*mailer.SMTPSender, error) {
	c := a.Config
	if c.SMTP.Host == "" {
		return nil, ErrMailNotConfigured
	}
	password, err := a.Vault.Get(credential.SMTPPassword)
	if err != nil {
		return nil, err
	}

	opts := []mailer.Option{
		mailer.WithSentLog(a.Store),
		mailer.WithLogger(a.Logger),
	}
	if c.IMAP.Enabled {
		opts = append(opts, mailer.WithArchiver(mailer.NewSentArchiver(mailer.IMAPConfig{
			Host:     c.IMAP.Host,
			Port:     c.IMAP.Port,
			Username: c.SMTP.Username,
			Password: password,
			TLS:      c.IMAP.TLS,
			Mailbox:  c.IMAP.SentMailbox,
		})))
	}

	return mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: password,
		From:     c.SMTP.From,
		Security: c.SMTP.Security,
	}, opts...)
}

// NewSession assembles the per-turn pipeline. A missing mail setup is not
// fatal: the session answers send requests with a delivery failure.
func (a *App) NewSession(ctx context.Context) (*session.Session, error) {
	backend, err := a.Backend(ctx)
	if err != nil {
		return nil, err
	}

	interpreter := extract.New(backend,
		extract.WithTimeout(a.Config.Interpreter.Timeout),
		extract.WithLogger(a.Logger),
	)

	opts := []session.Option{
		session.WithPreferences(a.Store),
		session.WithNormalizer(normalize.New(a.Config.Interpreter.Fillers)),
		session.WithHistoryLimit(a.Config.Interpreter.HistorySize),
		session.WithTheme(a.Config.Display.Theme),
		session.WithLogger(a.Logger),
	}

	sender, err := a.Sender()
	switch {
	case errors.Is(err, ErrMailNotConfigured):
		a.Logger.Info("no SMTP host configured, sending is disabled")
	case err != nil:
		return nil, err
	default:
		opts = append(opts, session.WithSender(sender))
	}

	return session.New(ctx, interpreter, a.Store, opts...), nil
}

// SaveConfig writes the current config back to ConfigPath.
func (a *App) SaveConfig() error {
	return model.SaveConfig(a.fs, a.ConfigPath, a.Config)
}

// Close releases the database and flushes the logger.
func (a *App) Close() error {
	_ = a.Logger.Sync()
	return a.Store.Close()
}
