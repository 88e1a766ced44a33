package dialogue

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultHistoryLimit is the number of turns kept when a state is created
// without an explicit limit.
const DefaultHistoryLimit = 6

// Phase is the coarse position of a session in the composition flow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseComposing
	PhaseAwaitingSendConfirmation
	PhaseSent
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseComposing:
		return "composing"
	case PhaseAwaitingSendConfirmation:
		return "awaiting_send_confirmation"
	case PhaseSent:
		return "sent"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Contact is an address book entry. Name is the case-insensitive key.
type Contact struct {
	Name    string `json:"name" db:"name"`
	Address string `json:"address" db:"address"`
}

// NameKey is the identity of a contact name: lowercased with runs of
// whitespace collapsed. Stores match contacts on this key.
func NameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Draft is the email being composed. Empty strings mean "not set".
type Draft struct {
	RecipientName    string
	RecipientAddress string
	Subject          string
	Body             []string
}

// IsEmpty reports whether no field of the draft has been set.
func (d Draft) IsEmpty() bool {
	return d.RecipientName == "" && d.RecipientAddress == "" &&
		d.Subject == "" && len(d.Body) == 0
}

// HasBody reports whether at least one non-blank fragment exists.
func (d Draft) HasBody() bool {
	for _, f := range d.Body {
		if strings.TrimSpace(f) != "" {
			return true
		}
	}
	return false
}

// Complete reports whether the draft satisfies the send preconditions.
func (d Draft) Complete() bool {
	return d.RecipientAddress != "" && d.HasBody()
}

// Recipient returns the best human-facing label for the recipient.
func (d Draft) Recipient() string {
	switch {
	case d.RecipientName != "" && d.RecipientAddress != "":
		return d.RecipientName + " (" + d.RecipientAddress + ")"
	case d.RecipientAddress != "":
		return d.RecipientAddress
	default:
		return d.RecipientName
	}
}

func (d Draft) clone() Draft {
	out := d
	if d.Body != nil {
		out.Body = make([]string, len(d.Body))
		copy(out.Body, d.Body)
	}
	return out
}

// Turn is one remembered (utterance, action) pair.
type Turn struct {
	Utterance string
	Action    Action
}

// State is the conversation context for one composition session. Values are
// never modified in place by this package; every transition returns a copy.
type State struct {
	Phase               Phase
	Draft               Draft
	History             []Turn
	HistoryLimit        int
	PendingConfirmation bool
	LastResponse        string
}

// NewState returns a fresh Idle state keeping at most historyLimit turns.
func NewState(historyLimit int) State {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return State{Phase: PhaseIdle, HistoryLimit: historyLimit}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Draft = s.Draft.clone()
	if s.History != nil {
		out.History = make([]Turn, len(s.History))
		copy(out.History, s.History)
	}
	return out
}

// Remember returns a copy of s with the turn appended to History, evicting
// the oldest turns beyond HistoryLimit.
func (s State) Remember(utterance string, a Action) State {
	out := s.Clone()
	limit := out.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
		out.HistoryLimit = limit
	}
	out.History = append(out.History, Turn{Utterance: utterance, Action: a})
	if excess := len(out.History) - limit; excess > 0 {
		trimmed := make([]Turn, limit)
		copy(trimmed, out.History[excess:])
		out.History = trimmed
	}
	return out
}

// WithResponse returns a copy of s with LastResponse set.
func (s State) WithResponse(text string) State {
	out := s.Clone()
	out.LastResponse = text
	return out
}

// addressPattern is the accepted email address syntax.
var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidAddress reports whether addr has valid email syntax.
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

// ErrCorruptState is wrapped by every Validate failure.
var ErrCorruptState = errors.New("corrupt conversation state")

// Validate checks the structural invariants of s.
func (s State) Validate() error {
	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrCorruptState, fmt.Sprintf(format, args...))
	}

	if s.Phase < PhaseIdle || s.Phase > PhaseSent {
		return corrupt("unknown phase %d", int(s.Phase))
	}
	if s.Draft.RecipientAddress != "" && !ValidAddress(s.Draft.RecipientAddress) {
		return corrupt("recipient address %q is not a valid address", s.Draft.RecipientAddress)
	}
	for i, f := range s.Draft.Body {
		if strings.TrimSpace(f) == "" {
			return corrupt("body fragment %d is empty", i)
		}
	}
	if s.PendingConfirmation != (s.Phase == PhaseAwaitingSendConfirmation) {
		return corrupt("pending confirmation %t in phase %s", s.PendingConfirmation, s.Phase)
	}
	if s.PendingConfirmation && !s.Draft.Complete() {
		return corrupt("send pending on an incomplete draft")
	}
	if s.Phase == PhaseIdle && !s.Draft.IsEmpty() {
		return corrupt("idle phase with draft content")
	}
	if s.HistoryLimit > 0 && len(s.History) > s.HistoryLimit {
		return corrupt("history holds %d turns, limit %d", len(s.History), s.HistoryLimit)
	}
	return nil
}
