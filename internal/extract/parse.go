package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/voice-mail/internal/dialogue"
)

// Candidate is one proposed interpretation. Slots not used by Kind are empty.
type Candidate struct {
	Kind      string `json:"kind"`
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Text      string `json:"text,omitempty"`
	Name      string `json:"name,omitempty"`
	Address   string `json:"address,omitempty"`
	Mode      string `json:"mode,omitempty"`
}

// Response is the document a Backend returns.
type Response struct {
	Candidates []Candidate `json:"candidates"`
	NoMatch    bool        `json:"no_match,omitempty"`
}

var (
	// ErrNoMatch is reported when the backend declares that nothing fits.
	ErrNoMatch = errors.New("backend reported no match")
	// ErrNoCandidate is reported when no candidate survives validation.
	ErrNoCandidate = errors.New("no valid candidate")
)

// ParseResponse decodes a backend response. Markdown code fences around the
// JSON are tolerated.
func ParseResponse(raw []byte) (Response, error) {
	text := stripCodeFence(strings.TrimSpace(string(raw)))
	if text == "" {
		return Response{}, errors.New("empty backend response")
	}

	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return Response{}, fmt.Errorf("decoding backend response: %w", err)
	}
	return resp, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// valid reports whether c names a known kind and carries its required slots.
func (c Candidate) valid() bool {
	spec, ok := lookupKind(c.Kind)
	if !ok {
		return false
	}
	if spec.Kind == dialogue.KindComposeField {
		return strings.TrimSpace(c.Recipient) != "" || strings.TrimSpace(c.Subject) != ""
	}
	for _, s := range spec.Slots {
		if s.Required && strings.TrimSpace(c.slot(s.Name)) == "" {
			return false
		}
	}
	return true
}

func (c Candidate) slot(name string) string {
	switch name {
	case SlotRecipient:
		return c.Recipient
	case SlotSubject:
		return c.Subject
	case SlotText:
		return c.Text
	case SlotName:
		return c.Name
	case SlotAddress:
		return c.Address
	case SlotMode:
		return c.Mode
	default:
		return ""
	}
}

// Resolve applies the tie-break policy to the backend's candidates:
// AddContact, then ComposeField with a recipient, then ComposeField with a
// subject, then AddFragment. Other kinds win only when none of those is
// present, in backend order. All compose_field candidates merge into one
// action with the recipient first. Body text travels with a winning
// ComposeField: its own text slot, and add_fragment candidates that do not
// repeat the recipient or subject (those are rival readings of the same words).
func Resolve(resp Response) (dialogue.Action, error) {
	if resp.NoMatch && len(resp.Candidates) == 0 {
		return nil, ErrNoMatch
	}

	var (
		valid              []Candidate
		recipient, subject string
		bodies             []string
	)
	for _, c := range resp.Candidates {
		c.Kind = strings.ToLower(strings.TrimSpace(c.Kind))
		if c.Kind == string(dialogue.KindComposeField) && c.headerless() {
			c.Kind = string(dialogue.KindAddFragment)
		}
		if !c.valid() {
			continue
		}
		valid = append(valid, c)
		if c.Kind == string(dialogue.KindComposeField) {
			if recipient == "" {
				recipient = strings.TrimSpace(c.Recipient)
			}
			if subject == "" {
				subject = strings.TrimSpace(c.Subject)
			}
			if text := strings.TrimSpace(c.Text); text != "" {
				bodies = append(bodies, text)
			}
		}
	}
	if len(valid) == 0 {
		if resp.NoMatch {
			return nil, ErrNoMatch
		}
		return nil, ErrNoCandidate
	}

	for _, c := range valid {
		if c.Kind == string(dialogue.KindAddContact) {
			return dialogue.AddContact{Name: strings.TrimSpace(c.Name), Address: strings.TrimSpace(c.Address)}, nil
		}
	}

	if recipient != "" || subject != "" {
		for _, c := range valid {
			text := strings.TrimSpace(c.Text)
			if c.Kind == string(dialogue.KindAddFragment) && !repeats(text, recipient, subject) {
				bodies = append(bodies, text)
			}
		}

		var a dialogue.ComposeField
		if recipient != "" {
			a = dialogue.ComposeField{Field: dialogue.FieldRecipient, Value: recipient}
			if subject != "" {
				a.Follow = append(a.Follow, dialogue.FieldValue{Field: dialogue.FieldSubject, Value: subject})
			}
		} else {
			a = dialogue.ComposeField{Field: dialogue.FieldSubject, Value: subject}
		}
		for _, b := range bodies {
			a.Follow = append(a.Follow, dialogue.FieldValue{Field: dialogue.FieldBody, Value: b})
		}
		return a, nil
	}

	for _, c := range valid {
		if c.Kind == string(dialogue.KindAddFragment) {
			return dialogue.AddFragment{Text: strings.TrimSpace(c.Text)}, nil
		}
	}

	return toAction(valid[0]), nil
}

// headerless reports a compose_field carrying only body text.
func (c Candidate) headerless() bool {
	return strings.TrimSpace(c.Recipient) == "" && strings.TrimSpace(c.Subject) == "" &&
		strings.TrimSpace(c.Text) != ""
}

// repeats reports whether fragment text contains a header value, which makes
// it another reading of the header words rather than dictated body.
func repeats(text string, headers ...string) bool {
	lower := strings.ToLower(text)
	for _, h := range headers {
		if h != "" && strings.Contains(lower, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

// toAction converts a validated candidate of a slotless or single-slot kind.
func toAction(c Candidate) dialogue.Action {
	switch dialogue.Kind(c.Kind) {
	case dialogue.KindListContacts:
		return dialogue.ListContacts{}
	case dialogue.KindReadBack:
		return dialogue.ReadBack{}
	case dialogue.KindClearDraft:
		return dialogue.ClearDraft{}
	case dialogue.KindSwitchTheme:
		return dialogue.SwitchTheme{Mode: strings.ToLower(strings.TrimSpace(c.Mode))}
	case dialogue.KindSendEmail:
		return dialogue.SendEmail{}
	case dialogue.KindConfirm:
		return dialogue.Confirm{}
	case dialogue.KindCancel:
		return dialogue.Cancel{}
	case dialogue.KindHelp:
		return dialogue.Help{}
	default:
		return dialogue.Unknown{}
	}
}
