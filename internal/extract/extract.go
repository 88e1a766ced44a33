// Package extract turns a normalized utterance into one dialogue action,
// delegating understanding to a language backend constrained to a fixed
// response schema.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/voice-mail/internal/dialogue"
)

// DefaultTimeout bounds a backend call when none is configured.
const DefaultTimeout = 8 * time.Second

// Backend is a language-understanding service. Understand returns a JSON
// document matching ResponseSchema.
type Backend interface {
	Understand(ctx context.Context, req Request) (json.RawMessage, error)
}

// Extractor maps utterances to actions. It never fails: anything it cannot
// interpret becomes dialogue.Unknown.
type Extractor struct {
	backend Backend
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTimeout bounds each backend call. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		e.timeout = d
	}
}

// WithLogger sets the logger used for understanding failures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Extractor. A nil backend limits it to the fixed control
// phrases.
func New(backend Backend, opts ...Option) *Extractor {
	e := &Extractor{
		backend: backend,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract interprets utterance in the context of state.
func (e *Extractor) Extract(ctx context.Context, utterance string, state dialogue.State) dialogue.Action {
	utterance = strings.TrimSpace(utterance)
	unknown := dialogue.Unknown{RawText: utterance}
	if utterance == "" {
		return unknown
	}

	if a, ok := FastPath(utterance, state); ok {
		e.logger.Debug("fast path", zap.String("utterance", utterance), zap.String("kind", string(a.Kind())))
		return a
	}

	if e.backend == nil {
		e.logger.Debug("no backend configured", zap.String("utterance", utterance))
		return unknown
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := e.backend.Understand(ctx, NewRequest(utterance, state))
	if err != nil {
		e.fail(utterance, "backend call failed", err, start)
		return unknown
	}

	resp, err := ParseResponse(raw)
	if err != nil {
		e.fail(utterance, "malformed backend response", err, start)
		return unknown
	}

	a, err := Resolve(resp)
	if err != nil {
		if errors.Is(err, ErrNoMatch) {
			e.logger.Debug("no match", zap.String("utterance", utterance))
		} else {
			e.fail(utterance, "no usable candidate", err, start)
		}
		return unknown
	}
	if _, ok := a.(dialogue.Unknown); ok {
		return unknown
	}

	e.logger.Debug("extracted",
		zap.String("utterance", utterance),
		zap.String("action", dialogue.Describe(a)),
		zap.Int("candidates", len(resp.Candidates)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return a
}

func (e *Extractor) fail(utterance, msg string, err error, start time.Time) {
	e.logger.Warn(msg,
		zap.String("utterance", utterance),
		zap.Error(err),
		zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
		zap.Duration("elapsed", time.Since(start)),
	)
}
