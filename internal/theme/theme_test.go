package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/voice-mail/internal/dialogue"
)

func TestFor(t *testing.T) {
	assert.Equal(t, dialogue.ThemeLight, For("light").Mode)
	assert.Equal(t, dialogue.ThemeDark, For("dark").Mode)
	assert.Equal(t, dialogue.ThemeDark, For("").Mode)
	assert.NotEqual(t, For("light").Palette, For("dark").Palette)
}

func TestToggle(t *testing.T) {
	assert.Equal(t, dialogue.ThemeLight, For("dark").Toggle().Mode)
	assert.Equal(t, dialogue.ThemeDark, For("light").Toggle().Mode)
}

func TestOutcomeStyle(t *testing.T) {
	th := For("dark")

	assert.Equal(t, th.Palette.Success, th.OutcomeStyle(dialogue.Delivered{}).GetForeground())
	assert.Equal(t, th.Palette.Warning, th.OutcomeStyle(dialogue.Blocked{}).GetForeground())
	assert.Equal(t, th.Palette.Error, th.OutcomeStyle(dialogue.DeliveryFailed{}).GetForeground())
	assert.Equal(t, th.Palette.Text, th.OutcomeStyle(dialogue.DraftReadBack{}).GetForeground())
}
