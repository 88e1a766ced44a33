// Package ai provides the language-understanding backends behind the
// extractor: Claude, Gemini and an offline rule set.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/voice-mail/internal/extract"
)

// Provider names accepted in configuration.
const (
	ProviderClaude  = "claude"
	ProviderGemini  = "gemini"
	ProviderOffline = "offline"
)

// ErrNoAPIKey is returned when a model backend is requested without a key.
var ErrNoAPIKey = errors.New("no API key configured")

// Settings selects and parameterizes a backend.
type Settings struct {
	Provider  string
	Model     string
	MaxTokens int
	APIKey    string
	BaseURL   string
}

// NewBackend builds the backend named by s.Provider.
func NewBackend(ctx context.Context, s Settings) (extract.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case ProviderClaude, "":
		var opts []ClaudeOption
		if s.BaseURL != "" {
			opts = append(opts, WithBaseURL(s.BaseURL))
		}
		return NewClaude(s.APIKey, s.Model, s.MaxTokens, opts...)
	case ProviderGemini:
		return NewGemini(ctx, s.APIKey, s.Model, s.MaxTokens, s.BaseURL)
	case ProviderOffline:
		return NewOffline(), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", s.Provider)
	}
}
