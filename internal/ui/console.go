package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/voice-mail/internal/dialogue"
	"github.com/nhle/voice-mail/internal/keys"
	"github.com/nhle/voice-mail/internal/session"
	"github.com/nhle/voice-mail/internal/theme"
)

// Handler runs turns. *session.Session implements it.
type Handler interface {
	Handle(ctx context.Context, raw string) session.Turn
	State() dialogue.State
	Theme() string
}

// TurnDoneMsg carries the result of one handled utterance.
type TurnDoneMsg struct {
	Turn session.Turn
}

// exchange is one utterance and its response in the transcript.
type exchange struct {
	said     string
	response string
	outcome  dialogue.Outcome
}

// Console is the feedback console. Typed lines stand in for transcripts;
// the console only reads session state and responses.
type Console struct {
	ctx     context.Context
	handler Handler
	keys    *keys.KeyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model

	theme     theme.Theme
	state     dialogue.State
	exchanges []exchange
	busy      bool
	width     int
	height    int
}

// NewConsole creates a console bound to handler.
func NewConsole(ctx context.Context, handler Handler) Console {
	ti := textinput.New()
	ti.Placeholder = `Say something, e.g. "email John about the project update"`
	ti.Prompt = "> "
	ti.CharLimit = 500
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 10)
	vp.Style = lipgloss.NewStyle()

	c := Console{
		ctx:      ctx,
		handler:  handler,
		keys:     keys.DefaultKeyMap(),
		input:    ti,
		viewport: vp,
		spinner:  sp,
		help:     help.New(),
		theme:    theme.For(handler.Theme()),
		state:    handler.State(),
		width:    80,
		height:   24,
	}
	c.layout()
	return c
}

// Init returns the initial command for the console.
func (c Console) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, c.spinner.Tick)
}

// Update handles messages for the console.
func (c Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width, c.height = msg.Width, msg.Height
		c.layout()
		return c, nil

	case TurnDoneMsg:
		c.busy = false
		c.state = msg.Turn.State
		c.theme = theme.For(msg.Turn.Theme)
		c.exchanges = append(c.exchanges, exchange{
			said:     msg.Turn.Utterance,
			response: msg.Turn.Response,
			outcome:  msg.Turn.Outcome,
		})
		c.refresh()
		return c, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		return c, cmd

	case tea.KeyMsg:
		return c.handleKey(msg)
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c Console) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, c.keys.Quit):
		return c, tea.Quit

	case key.Matches(msg, c.keys.Help):
		c.help.ShowAll = !c.help.ShowAll
		c.layout()
		return c, nil

	case key.Matches(msg, c.keys.ScrollUp):
		c.viewport.HalfPageUp()
		return c, nil

	case key.Matches(msg, c.keys.ScrollDown):
		c.viewport.HalfPageDown()
		return c, nil

	case key.Matches(msg, c.keys.Theme):
		return c.say("toggle theme")

	case key.Matches(msg, c.keys.Submit):
		text := c.input.Value()
		c.input.Reset()
		return c.say(text)
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

// say hands text to the session in the background. Input is ignored while
// a turn is running; the session would queue it anyway.
func (c Console) say(text string) (tea.Model, tea.Cmd) {
	if c.busy {
		return c, nil
	}
	c.busy = true
	c.refresh()

	ctx, handler := c.ctx, c.handler
	return c, func() tea.Msg {
		return TurnDoneMsg{Turn: handler.Handle(ctx, text)}
	}
}

// layout sizes the transcript to the space left by the other panels.
func (c *Console) layout() {
	c.input.Width = max(c.width-6, 10)

	used := lipgloss.Height(c.renderHeader()) +
		lipgloss.Height(c.renderDraft()) +
		lipgloss.Height(c.renderFooter()) + 3
	c.viewport.Width = max(c.width-2, 10)
	c.viewport.Height = max(c.height-used, 3)
	c.refresh()
}

// refresh re-renders the transcript and scrolls to the bottom.
func (c *Console) refresh() {
	c.viewport.SetContent(c.renderTranscript())
	c.viewport.GotoBottom()
}

func (c Console) renderHeader() string {
	title := c.theme.HeaderStyle.Render("voicemail")
	phase := c.theme.PhaseStyle(c.state.Phase).Render(c.state.Phase.String())
	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", phase)
}

func (c Console) renderDraft() string {
	d := c.state.Draft
	label := c.theme.LabelStyle

	field := func(name, value string) string {
		if value == "" {
			value = c.theme.HelpStyle.Render("(not set)")
		}
		return label.Render(fmt.Sprintf("%-8s", name)) + " " + value
	}

	body := dialogue.BodyText(d)
	lines := []string{
		field("To:", d.Recipient()),
		field("Subject:", d.Subject),
		field("Message:", body),
	}
	if c.state.PendingConfirmation {
		lines = append(lines, c.theme.OutcomeStyle(dialogue.Blocked{}).
			Render(`Waiting for confirmation: say "yes" or "no".`))
	}

	return c.theme.DraftPanelStyle.
		Width(max(c.width-4, 20)).
		Render(strings.Join(lines, "\n"))
}

func (c Console) renderTranscript() string {
	if len(c.exchanges) == 0 {
		return c.theme.HelpStyle.Render(
			`Type what you would say. Try "help" to hear what I can do.`)
	}

	var sections []string
	for _, e := range c.exchanges {
		said := e.said
		if strings.TrimSpace(said) == "" {
			said = "(silence)"
		}
		sections = append(sections,
			c.theme.UserStyle.Render("you: "+said),
			c.theme.OutcomeStyle(e.outcome).Render(e.response),
			"",
		)
	}
	if c.busy {
		sections = append(sections, c.spinner.View()+c.theme.HelpStyle.Render(" thinking..."))
	}
	return strings.Join(sections, "\n")
}

func (c Console) renderFooter() string {
	return c.theme.HelpStyle.Render(c.help.View(c.keys))
}

// View renders the console.
func (c Console) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		c.renderHeader(),
		c.renderDraft(),
		c.theme.BorderStyle.Width(max(c.width-4, 20)).Render(c.viewport.View()),
		c.input.View(),
		c.renderFooter(),
	)
}

// RunConsole runs the console until the user quits.
func RunConsole(ctx context.Context, handler Handler) error {
	p := tea.NewProgram(NewConsole(ctx, handler), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running console: %w", err)
	}
	return nil
}
