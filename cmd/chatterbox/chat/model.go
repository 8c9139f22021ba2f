package chatcmder

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/chatterbox/pkg/conversation"
	"github.com/papercomputeco/chatterbox/pkg/llm"
)

var (
	userLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	assistantLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle      = lipgloss.NewStyle().Faint(true)
)

// replyMsg carries the outcome of a submitted turn back into the update loop.
type replyMsg struct {
	err error
}

type model struct {
	ctx      context.Context
	handler  *conversation.Handler
	input    textinput.Model
	renderer *glamour.TermRenderer
	style    string
	width    int

	pending string
	err     error
}

func newModel(ctx context.Context, handler *conversation.Handler, width int, style string) model {
	input := textinput.New()
	input.Placeholder = "Type your message here..."
	input.Prompt = "➤ "
	input.Focus()

	m := model{
		ctx:     ctx,
		handler: handler,
		input:   input,
		style:   style,
	}
	m.resize(width)
	return m
}

func (m *model) resize(width int) {
	if width <= 0 {
		width = 80
	}
	m.width = width
	m.input.Width = width - 4

	style := m.style
	if style == "" {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-2),
	)
	if err == nil {
		m.renderer = r
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width)
		return m, nil

	case replyMsg:
		m.pending = ""
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles the enter key: commands first, then a chat turn.
func (m model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()

	switch strings.ToLower(strings.TrimSpace(text)) {
	case "quit", "q":
		return m, tea.Quit
	case "/clear":
		m.input.Reset()
		m.err = m.handler.Clear()
		return m, nil
	case "":
		m.input.Reset()
		return m, nil
	}

	if m.pending != "" {
		return m, nil
	}

	m.input.Reset()
	m.pending = text
	m.err = nil

	ctx, handler := m.ctx, m.handler
	return m, func() tea.Msg {
		_, err := handler.Submit(ctx, text)
		return replyMsg{err: err}
	}
}

func (m model) View() string {
	var b strings.Builder

	for _, t := range m.handler.History() {
		b.WriteString(m.renderTurn(t))
	}
	if m.pending != "" {
		b.WriteString(hintStyle.Render("Assistant is thinking..."))
		b.WriteString("\n\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(hintStyle.Render(ansi.Truncate("enter: send • /clear: clear chat • q or quit: exit", m.width, "…")))
	b.WriteString("\n")
	return b.String()
}

func (m model) renderTurn(t llm.Turn) string {
	if t.Role == llm.RoleUser {
		return userLabel.Render(t.Role.Label()+":") + " " + t.Text + "\n\n"
	}

	body := t.Text + "\n"
	if m.renderer != nil {
		if out, err := m.renderer.Render(t.Text); err == nil {
			body = out
		}
	}
	return assistantLabel.Render(t.Role.Label()+":") + "\n" + body
}
