package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/voice-mail/internal/dialogue"
)

// Palette is one set of colors for the feedback console.
type Palette struct {
	Accent  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	Subtle  lipgloss.Color
	Border  lipgloss.Color
}

var (
	darkPalette = Palette{
		Accent:  "#5B9BD5",
		Success: "#6BCB77",
		Warning: "#FFD93D",
		Error:   "#FF6B6B",
		Muted:   "#868E96",
		Text:    "#F8F9FA",
		Subtle:  "#495057",
		Border:  "#495057",
	}
	lightPalette = Palette{
		Accent:  "#2B6CB0",
		Success: "#2F855A",
		Warning: "#B7791F",
		Error:   "#C53030",
		Muted:   "#718096",
		Text:    "#1A202C",
		Subtle:  "#CBD5E0",
		Border:  "#E2E8F0",
	}
)

// Theme holds the styles derived from one palette.
type Theme struct {
	Mode    string
	Palette Palette

	// HeaderStyle is used for the application title.
	HeaderStyle lipgloss.Style

	// StatusBarStyle is used for the bottom status bar.
	StatusBarStyle lipgloss.Style

	// DraftPanelStyle wraps the draft summary.
	DraftPanelStyle lipgloss.Style

	LabelStyle     lipgloss.Style
	UserStyle      lipgloss.Style
	AssistantStyle lipgloss.Style
	HelpStyle      lipgloss.Style
	BorderStyle    lipgloss.Style

	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

// For returns the theme for mode. Anything other than light is dark.
func For(mode string) Theme {
	if mode == dialogue.ThemeLight {
		return build(dialogue.ThemeLight, lightPalette)
	}
	return build(dialogue.ThemeDark, darkPalette)
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t.Mode == dialogue.ThemeLight {
		return For(dialogue.ThemeDark)
	}
	return For(dialogue.ThemeLight)
}

func build(mode string, p Palette) Theme {
	return Theme{
		Mode:    mode,
		Palette: p,
		HeaderStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Text).
			Background(p.Accent).
			Padding(0, 1),
		StatusBarStyle: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Subtle).
			Padding(0, 1),
		DraftPanelStyle: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border),
		LabelStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Accent),
		UserStyle: lipgloss.NewStyle().
			Foreground(p.Muted),
		AssistantStyle: lipgloss.NewStyle().
			Foreground(p.Text),
		HelpStyle: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border),
		success: lipgloss.NewStyle().Foreground(p.Success),
		warning: lipgloss.NewStyle().Foreground(p.Warning),
		failure: lipgloss.NewStyle().Bold(true).Foreground(p.Error),
	}
}

// OutcomeStyle returns the style for the response to an outcome.
func (t Theme) OutcomeStyle(o dialogue.Outcome) lipgloss.Style {
	switch o.(type) {
	case dialogue.Delivered, dialogue.ContactSaved, dialogue.SendAuthorized:
		return t.success
	case dialogue.Blocked, dialogue.Invalid, dialogue.NeedsAddress,
		dialogue.Unrecognized, dialogue.NoPendingSend:
		return t.warning
	case dialogue.StoreFailed, dialogue.DeliveryFailed, dialogue.SessionReset:
		return t.failure
	default:
		return t.AssistantStyle
	}
}

// PhaseStyle returns a color-coded style for the session phase badge.
func (t Theme) PhaseStyle(p dialogue.Phase) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch p {
	case dialogue.PhaseComposing:
		return base.Foreground(t.Palette.Accent)
	case dialogue.PhaseAwaitingSendConfirmation:
		return base.Foreground(t.Palette.Warning)
	case dialogue.PhaseSent:
		return base.Foreground(t.Palette.Success)
	default:
		return base.Foreground(t.Palette.Muted)
	}
}
