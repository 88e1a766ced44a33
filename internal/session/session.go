// Package session runs the per-turn pipeline for one conversation: it
// normalizes the transcript, extracts an action, applies it to the dialogue
// state and hands authorized drafts to the mail sender.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/voice-mail/internal/dialogue"
	"github.com/nhle/voice-mail/internal/extract"
	"github.com/nhle/voice-mail/internal/mailer"
	"github.com/nhle/voice-mail/internal/normalize"
)

// DefaultSendTimeout bounds one delivery attempt.
const DefaultSendTimeout = 45 * time.Second

// Sender transmits a complete draft.
type Sender interface {
	Send(ctx context.Context, d dialogue.Draft) error
}

// Preferences persists the display theme.
type Preferences interface {
	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, mode string) error
}

// Interpreter turns a normalized utterance into an action.
type Interpreter interface {
	Extract(ctx context.Context, utterance string, state dialogue.State) dialogue.Action
}

// Turn is everything one call to Handle produced.
type Turn struct {
	Utterance  string
	Normalized string
	Action     dialogue.Action
	Outcome    dialogue.Outcome
	Response   string
	State      dialogue.State
	Theme      string
}

// Session owns the conversation state. Turns are processed one at a time;
// concurrent callers queue on the mutex.
type Session struct {
	mu sync.Mutex

	id          string
	state       dialogue.State
	theme       string
	normalizer  *normalize.Normalizer
	interpreter Interpreter
	contacts    dialogue.ContactLookup
	sender      Sender
	prefs       Preferences
	sendTimeout time.Duration
	logger      *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithSender sets the mail sender. Without one, authorized sends fail.
func WithSender(s Sender) Option {
	return func(sess *Session) { sess.sender = s }
}

// WithPreferences sets where the theme is persisted.
func WithPreferences(p Preferences) Option {
	return func(sess *Session) { sess.prefs = p }
}

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(sess *Session) { sess.normalizer = n }
}

// WithHistoryLimit sets how many turns are remembered.
func WithHistoryLimit(n int) Option {
	return func(sess *Session) { sess.state = dialogue.NewState(n) }
}

// WithTheme sets the theme used when none is persisted.
func WithTheme(mode string) Option {
	return func(sess *Session) { sess.theme = mode }
}

// WithSendTimeout bounds each delivery attempt.
func WithSendTimeout(d time.Duration) Option {
	return func(sess *Session) { sess.sendTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(sess *Session) { sess.logger = l }
}

// New creates a session and restores the persisted theme, if any.
func New(
	ctx context.Context,
	interpreter Interpreter,
	contacts dialogue.ContactLookup,
	opts ...Option,
) *Session {
	s := &Session{
		id:          uuid.New().String(),
		state:       dialogue.NewState(dialogue.DefaultHistoryLimit),
		theme:       dialogue.ThemeDark,
		normalizer:  normalize.New(nil),
		interpreter: interpreter,
		contacts:    contacts,
		sendTimeout: DefaultSendTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interpreter == nil {
		s.interpreter = extract.New(nil)
	}
	s.logger = s.logger.With(zap.String("session", s.id))

	if s.prefs != nil {
		mode, err := s.prefs.Theme(ctx)
		switch {
		case err != nil:
			s.logger.Warn("loading theme preference failed", zap.Error(err))
		case mode == dialogue.ThemeDark || mode == dialogue.ThemeLight:
			s.theme = mode
		}
	}
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// State returns a copy of the current conversation state.
func (s *Session) State() dialogue.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Theme returns the current display theme.
func (s *Session) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// Reset discards the draft and history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = dialogue.NewState(s.state.HistoryLimit)
}

// Handle runs one turn. If ctx is cancelled before the turn commits, the
// state is left as it was and the outcome is Abandoned.
func (s *Session) Handle(ctx context.Context, raw string) Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	turn := Turn{Utterance: raw, Theme: s.theme}

	turn.Normalized = s.normalizer.Normalize(raw)
	if turn.Normalized == "" {
		return s.finish(turn, dialogue.Silence{}, s.state, start)
	}
	if ctx.Err() != nil {
		return s.finish(turn, dialogue.Abandoned{}, s.state, start)
	}

	turn.Action = s.interpreter.Extract(ctx, turn.Normalized, s.state)
	next, outcome := dialogue.Apply(ctx, turn.Action, s.state, s.contacts)

	switch o := outcome.(type) {
	case dialogue.SendAuthorized:
		next, outcome = s.deliver(ctx, next)
		return s.commit(turn, outcome, next, start)

	case dialogue.SessionReset:
		s.logger.Warn("conversation state reset", zap.String("reason", o.Reason))

	case dialogue.StoreFailed:
		s.logger.Warn("contact store failed",
			zap.String("op", o.Op),
			zap.Error(o.Err),
		)
	}

	// A write that already reached the store is reported, not abandoned.
	if ctx.Err() != nil && !persisted(outcome) {
		return s.finish(turn, dialogue.Abandoned{}, s.state, start)
	}

	if ts, ok := outcome.(dialogue.ThemeSwitched); ok {
		outcome = s.switchTheme(ctx, ts.Mode)
		turn.Theme = s.theme
	}

	return s.commit(turn, outcome, next, start)
}

// commit remembers the turn where appropriate, composes the response and
// stores the new state.
func (s *Session) commit(turn Turn, outcome dialogue.Outcome, next dialogue.State, start time.Time) Turn {
	if remembered(outcome) {
		next = next.Remember(turn.Normalized, turn.Action)
	}
	turn.Response = dialogue.Compose(outcome, next)
	next = next.WithResponse(turn.Response)
	s.state = next
	return s.finish(turn, outcome, next, start)
}

func (s *Session) finish(turn Turn, outcome dialogue.Outcome, state dialogue.State, start time.Time) Turn {
	turn.Outcome = outcome
	if turn.Response == "" {
		turn.Response = dialogue.Compose(outcome, state)
	}
	turn.State = state.Clone()

	s.logger.Debug("turn handled",
		zap.String("utterance", turn.Normalized),
		zap.String("action", dialogue.Describe(turn.Action)),
		zap.String("outcome", fmt.Sprintf("%T", outcome)),
		zap.Stringer("phase", state.Phase),
		zap.Duration("elapsed", time.Since(start)),
	)
	return turn
}

// deliver hands an authorized draft to the sender. Success starts a fresh
// conversation; failure reopens the draft for editing.
func (s *Session) deliver(ctx context.Context, next dialogue.State) (dialogue.State, dialogue.Outcome) {
	if s.sender == nil {
		return dialogue.Reopen(next), dialogue.DeliveryFailed{Reason: "no email account is set up"}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	to := next.Draft.Recipient()
	if err := s.sender.Send(sendCtx, next.Draft); err != nil {
		s.logger.Warn("sending email failed",
			zap.String("to", next.Draft.RecipientAddress),
			zap.Error(err),
		)
		return dialogue.Reopen(next), dialogue.DeliveryFailed{Reason: mailer.Reason(err)}
	}

	s.logger.Info("email delivered", zap.String("to", next.Draft.RecipientAddress))
	return dialogue.NewState(next.HistoryLimit), dialogue.Delivered{To: to}
}

// switchTheme resolves a toggle against the current theme and persists the
// result. A persistence failure keeps the switch for this session.
func (s *Session) switchTheme(ctx context.Context, mode string) dialogue.Outcome {
	if mode == dialogue.ThemeToggle {
		mode = dialogue.ThemeLight
		if s.theme == dialogue.ThemeLight {
			mode = dialogue.ThemeDark
		}
	}
	s.theme = mode

	if s.prefs != nil {
		if err := s.prefs.SetTheme(ctx, mode); err != nil {
			s.logger.Warn("saving theme preference failed", zap.Error(err))
		}
	}
	return dialogue.ThemeSwitched{Mode: mode}
}

// persisted reports whether the outcome records a write the contact store
// has already committed.
func persisted(o dialogue.Outcome) bool {
	_, ok := o.(dialogue.ContactSaved)
	return ok
}

// remembered reports whether a turn with this outcome joins the history.
// Rejected turns leave the state as it was, and turns that end a
// conversation start the next one with an empty history.
func remembered(o dialogue.Outcome) bool {
	switch o.(type) {
	case dialogue.Unrecognized, dialogue.Blocked, dialogue.Invalid,
		dialogue.Cleared, dialogue.Delivered, dialogue.SessionReset:
		return false
	default:
		return true
	}
}
