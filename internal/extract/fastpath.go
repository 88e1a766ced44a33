package extract

import (
	"strings"

	"github.com/nhle/voice-mail/internal/dialogue"
)

var (
	confirmPhrases = set("yes", "yeah", "yep", "yes please", "yes send it", "confirm", "go ahead", "do it")
	cancelPhrases  = set("no", "nope", "cancel", "don't send it", "do not send it", "no don't send it", "not yet")
	sendPhrases    = set("send", "send it", "send email", "send the email", "send this email", "send it now")

	controlPhrases = map[string]dialogue.Action{
		"clear":                dialogue.ClearDraft{},
		"clear draft":          dialogue.ClearDraft{},
		"clear the draft":      dialogue.ClearDraft{},
		"start over":           dialogue.ClearDraft{},
		"read it back":         dialogue.ReadBack{},
		"read back":            dialogue.ReadBack{},
		"read the draft":       dialogue.ReadBack{},
		"list contacts":        dialogue.ListContacts{},
		"list my contacts":     dialogue.ListContacts{},
		"show contacts":        dialogue.ListContacts{},
		"show my contacts":     dialogue.ListContacts{},
		"help":                 dialogue.Help{},
		"what can i say":       dialogue.Help{},
		"dark mode":            dialogue.SwitchTheme{Mode: dialogue.ThemeDark},
		"switch to dark mode":  dialogue.SwitchTheme{Mode: dialogue.ThemeDark},
		"light mode":           dialogue.SwitchTheme{Mode: dialogue.ThemeLight},
		"switch to light mode": dialogue.SwitchTheme{Mode: dialogue.ThemeLight},
		"toggle theme":         dialogue.SwitchTheme{Mode: dialogue.ThemeToggle},
		"switch theme":         dialogue.SwitchTheme{Mode: dialogue.ThemeToggle},
	}
)

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// FastPath maps exact control phrases to actions without a backend call.
// "send it" confirms when a send is pending and requests one otherwise.
func FastPath(utterance string, state dialogue.State) (dialogue.Action, bool) {
	p := strings.TrimRight(strings.ToLower(strings.TrimSpace(utterance)), ".,!?")
	awaiting := state.Phase == dialogue.PhaseAwaitingSendConfirmation

	switch {
	case sendPhrases[p]:
		if awaiting {
			return dialogue.Confirm{}, true
		}
		return dialogue.SendEmail{}, true
	case confirmPhrases[p]:
		return dialogue.Confirm{}, true
	case cancelPhrases[p]:
		return dialogue.Cancel{}, true
	}

	if a, ok := controlPhrases[p]; ok {
		return a, true
	}
	return nil, false
}
