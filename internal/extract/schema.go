package extract

import (
	"encoding/json"

	"github.com/nhle/voice-mail/internal/dialogue"
)

// SlotSpec describes one named value a candidate of a given kind can carry.
type SlotSpec struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// KindSpec is one entry of the closed action vocabulary offered to a backend.
type KindSpec struct {
	Kind        dialogue.Kind `json:"kind"`
	Description string        `json:"description"`
	Slots       []SlotSpec    `json:"slots,omitempty"`
}

// Slot names used in backend responses.
const (
	SlotRecipient = "recipient"
	SlotSubject   = "subject"
	SlotText      = "text"
	SlotName      = "name"
	SlotAddress   = "address"
	SlotMode      = "mode"
)

var vocabulary = []KindSpec{
	{
		Kind:        dialogue.KindComposeField,
		Description: "Set who the email goes to and/or what it is about. Use when the user names a recipient (\"email john\") or a topic (\"about the budget\").",
		Slots: []SlotSpec{
			{Name: SlotRecipient, Description: "Contact name or email address of the recipient, exactly as spoken."},
			{Name: SlotSubject, Description: "Subject line, without connecting words like \"about\" or \"regarding\"."},
			{Name: SlotText, Description: "Body text to append. On compose_field, only text dictated together with the recipient or subject (\"email john about lunch and say I'll be late\")."},
		},
	},
	{
		Kind:        dialogue.KindAddFragment,
		Description: "Dictated text that belongs in the body of the email.",
		Slots: []SlotSpec{
			{Name: SlotText, Description: "The text to append, without the command words around it.", Required: true},
		},
	},
	{
		Kind:        dialogue.KindAddContact,
		Description: "Save a new contact or update an existing one.",
		Slots: []SlotSpec{
			{Name: SlotName, Description: "Contact name.", Required: true},
			{Name: SlotAddress, Description: "Email address exactly as spoken, even if it looks invalid."},
		},
	},
	{Kind: dialogue.KindListContacts, Description: "List saved contacts."},
	{Kind: dialogue.KindReadBack, Description: "Read the current draft back to the user."},
	{Kind: dialogue.KindClearDraft, Description: "Discard the draft and start over."},
	{
		Kind:        dialogue.KindSwitchTheme,
		Description: "Change the display theme.",
		Slots: []SlotSpec{
			{
				Name:        SlotMode,
				Description: "Requested theme.",
				Required:    true,
				Enum:        []string{dialogue.ThemeDark, dialogue.ThemeLight, dialogue.ThemeToggle},
			},
		},
	},
	{Kind: dialogue.KindSendEmail, Description: "The user wants to send the email."},
	{Kind: dialogue.KindConfirm, Description: "An explicit yes while the assistant is waiting for send confirmation."},
	{Kind: dialogue.KindCancel, Description: "An explicit no while the assistant is waiting for send confirmation."},
	{Kind: dialogue.KindHelp, Description: "The user asks what they can say."},
}

// Vocabulary returns the action kinds a backend may propose, with their slots.
func Vocabulary() []KindSpec {
	out := make([]KindSpec, len(vocabulary))
	copy(out, vocabulary)
	return out
}

func lookupKind(k string) (KindSpec, bool) {
	for _, spec := range vocabulary {
		if string(spec.Kind) == k {
			return spec, true
		}
	}
	return KindSpec{}, false
}

var responseSchema = buildResponseSchema()

// ResponseSchema returns the JSON Schema every backend response must satisfy.
func ResponseSchema() json.RawMessage {
	out := make(json.RawMessage, len(responseSchema))
	copy(out, responseSchema)
	return out
}

func buildResponseSchema() json.RawMessage {
	kinds := make([]string, 0, len(vocabulary))
	slots := map[string]any{}
	for _, spec := range vocabulary {
		kinds = append(kinds, string(spec.Kind))
		for _, s := range spec.Slots {
			if _, seen := slots[s.Name]; seen {
				continue
			}
			prop := map[string]any{"type": "string", "description": s.Description}
			if len(s.Enum) > 0 {
				prop["enum"] = s.Enum
			}
			slots[s.Name] = prop
		}
	}
	slots["kind"] = map[string]any{
		"type":        "string",
		"enum":        kinds,
		"description": "Action kind.",
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"candidates": map[string]any{
				"type":        "array",
				"description": "Plausible interpretations of the utterance, most likely first.",
				"items": map[string]any{
					"type":       "object",
					"properties": slots,
					"required":   []string{"kind"},
				},
			},
			"no_match": map[string]any{
				"type":        "boolean",
				"description": "True when the utterance matches no action kind.",
			},
		},
		"required": []string{"candidates"},
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		panic("extract: response schema: " + err.Error())
	}
	return raw
}
