package extract

import (
	"fmt"
	"strings"

	"github.com/nhle/voice-mail/internal/dialogue"
)

// maxTurnChars bounds each remembered utterance in a request.
const maxTurnChars = 200

// TurnRecord is one serialized history entry.
type TurnRecord struct {
	Utterance string `json:"utterance"`
	Action    string `json:"action"`
}

// DraftSummary is the part of the conversation state a backend may see.
type DraftSummary struct {
	Phase                string `json:"phase"`
	Recipient            string `json:"recipient,omitempty"`
	Subject              string `json:"subject,omitempty"`
	BodyFragments        int    `json:"body_fragments"`
	AwaitingConfirmation bool   `json:"awaiting_confirmation"`
}

// Request is what a Backend receives for one utterance.
type Request struct {
	Utterance   string       `json:"utterance"`
	RecentTurns []TurnRecord `json:"recent_turns"`
	Draft       DraftSummary `json:"draft"`
	Vocabulary  []KindSpec   `json:"vocabulary"`
}

// NewRequest builds the backend request for utterance in the context of s.
func NewRequest(utterance string, s dialogue.State) Request {
	turns := make([]TurnRecord, 0, len(s.History))
	for _, t := range s.History {
		turns = append(turns, TurnRecord{
			Utterance: truncate(t.Utterance, maxTurnChars),
			Action:    truncate(dialogue.Describe(t.Action), maxTurnChars),
		})
	}

	return Request{
		Utterance:   utterance,
		RecentTurns: turns,
		Draft: DraftSummary{
			Phase:                s.Phase.String(),
			Recipient:            s.Draft.Recipient(),
			Subject:              s.Draft.Subject,
			BodyFragments:        len(s.Draft.Body),
			AwaitingConfirmation: s.PendingConfirmation,
		},
		Vocabulary: Vocabulary(),
	}
}

// SystemPrompt is the instruction text shared by the model-backed backends.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You interpret spoken commands for a voice email assistant. ")
	b.WriteString("The user composes one email over several turns. ")
	b.WriteString("Map the latest utterance to one or more candidate actions from the vocabulary below, ")
	b.WriteString("most likely first. Use the recent turns and the draft to resolve references ")
	b.WriteString("such as \"him\", \"it\" or \"that\". Copy slot values from the utterance; do not invent ")
	b.WriteString("names, addresses or text. If nothing fits, return no candidates and set no_match.\n\n")
	b.WriteString("Vocabulary:\n")
	for _, spec := range vocabulary {
		fmt.Fprintf(&b, "- %s: %s\n", spec.Kind, spec.Description)
		for _, s := range spec.Slots {
			req := "optional"
			if s.Required {
				req = "required"
			}
			fmt.Fprintf(&b, "    %s (%s): %s\n", s.Name, req, s.Description)
		}
	}
	return b.String()
}

// Render formats the request as the user message for a model backend.
func (r Request) Render() string {
	var b strings.Builder

	b.WriteString("Draft:\n")
	fmt.Fprintf(&b, "  phase: %s\n", r.Draft.Phase)
	if r.Draft.Recipient != "" {
		fmt.Fprintf(&b, "  recipient: %s\n", r.Draft.Recipient)
	}
	if r.Draft.Subject != "" {
		fmt.Fprintf(&b, "  subject: %s\n", r.Draft.Subject)
	}
	fmt.Fprintf(&b, "  body fragments: %d\n", r.Draft.BodyFragments)
	if r.Draft.AwaitingConfirmation {
		b.WriteString("  waiting for send confirmation\n")
	}

	if len(r.RecentTurns) > 0 {
		b.WriteString("\nRecent turns (oldest first):\n")
		for _, t := range r.RecentTurns {
			fmt.Fprintf(&b, "  user: %s\n  action: %s\n", t.Utterance, t.Action)
		}
	}

	fmt.Fprintf(&b, "\nUtterance: %s\n", r.Utterance)
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
