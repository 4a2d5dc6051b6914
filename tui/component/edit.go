package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EditorSubmitMsg carries a submitted input line.
type EditorSubmitMsg struct {
	Value string
}

// EditModel is the single-line input. Up and Down recall earlier submissions.
type EditModel struct {
	textarea textarea.Model
	width    int

	history []string
	// position in history while browsing; len(history) means the live line
	cursor int
	draft  string
}

const maxHistory = 50

// NewEditModel creates a focused input line. Enter submits.
func NewEditModel() EditModel {
	ta := textarea.New()
	ta.Placeholder = "Ask a question, or /doc <path> to load a document..."
	ta.Focus()

	ta.Prompt = "> "
	ta.CharLimit = 1000

	ta.SetWidth(30)
	ta.SetHeight(1)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	return EditModel{
		textarea: ta,
		width:    30,
	}
}

func (m EditModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m EditModel) Update(msg tea.Msg) (EditModel, tea.Cmd) {
	var cmd tea.Cmd

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			value := strings.TrimSpace(m.textarea.Value())
			if value == "" {
				return m, nil
			}
			m.remember(value)
			m.textarea.Reset()
			return m, func() tea.Msg {
				return EditorSubmitMsg{Value: value}
			}
		case tea.KeyUp:
			m.browse(-1)
			return m, nil
		case tea.KeyDown:
			m.browse(1)
			return m, nil
		}
	}

	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *EditModel) remember(value string) {
	if n := len(m.history); n == 0 || m.history[n-1] != value {
		m.history = append(m.history, value)
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
	}
	m.cursor = len(m.history)
	m.draft = ""
}

func (m *EditModel) browse(step int) {
	next := m.cursor + step
	if next < 0 || next > len(m.history) {
		return
	}
	if m.cursor == len(m.history) {
		m.draft = m.textarea.Value()
	}
	m.cursor = next
	if next == len(m.history) {
		m.textarea.SetValue(m.draft)
		return
	}
	m.textarea.SetValue(m.history[next])
}

// Value returns the current input text.
func (m *EditModel) Value() string {
	return m.textarea.Value()
}

func (m *EditModel) View() string {
	return m.textarea.View()
}

// SetWidth sets the input width.
func (m *EditModel) SetWidth(width int) {
	m.width = width
	m.textarea.SetWidth(width)
}

// Height returns the rendered height in lines.
func (m *EditModel) Height() int {
	return m.textarea.Height()
}
