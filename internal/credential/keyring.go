package credential

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const serviceName = "voicemail"

// Credential keys.
const (
	ClaudeAPIKey = "claude-api-key"
	GeminiAPIKey = "gemini-api-key"
	SMTPPassword = "smtp-password"
)

// envOverrides maps credential keys to environment variables that take
// precedence over the keyring.
var envOverrides = map[string]string{
	ClaudeAPIKey: "ANTHROPIC_API_KEY",
	GeminiAPIKey: "GEMINI_API_KEY",
	SMTPPassword: "VOICEMAIL_SMTP_PASSWORD",
}

// EnvVar returns the environment variable that overrides key, if any.
func EnvVar(key string) string {
	return envOverrides[key]
}

// Vault reads and writes secrets, with environment overrides.
type Vault struct {
	ring   keyring.Keyring
	getenv func(string) string
}

// NewVault wraps an opened keyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring, getenv: os.Getenv}
}

// Open returns a Vault backed by the system keyring.
func Open() (*Vault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/voicemail/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("voicemail-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewVault(ring), nil
}

// Get retrieves a credential by key. The environment wins over the keyring.
// A missing credential returns "" and no error.
func (v *Vault) Get(key string) (string, error) {
	if env := EnvVar(key); env != "" {
		if val := v.getenv(env); val != "" {
			return val, nil
		}
	}
	if v.ring == nil {
		return "", nil
	}

	item, err := v.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the keyring.
func (v *Vault) Set(key string, value string) error {
	if v.ring == nil {
		return fmt.Errorf("setting credential %q: no keyring available", key)
	}

	err := v.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the keyring.
func (v *Vault) Delete(key string) error {
	if v.ring == nil {
		return nil
	}

	err := v.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
