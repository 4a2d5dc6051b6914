package component

import (
	"fmt"
	"path/filepath"

	"routeqa/llm/agent"
	"routeqa/pubsub"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DocumentMsg tells the status line which document is active.
type DocumentMsg struct {
	Path string
}

// StatusModel is the spinner and status text between transcript and input.
type StatusModel struct {
	spinner  spinner.Model
	running  bool
	text     string
	document string
	width    int
}

// NewStatusModel creates an idle status line.
func NewStatusModel() StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Jump
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return StatusModel{
		spinner: s,
		text:    "Ready",
	}
}

func (m StatusModel) Init() tea.Cmd {
	return nil
}

func (m StatusModel) Update(msg tea.Msg) (StatusModel, tea.Cmd) {
	switch msg := msg.(type) {
	case pubsub.Event[agent.Turn]:
		switch msg.Type {
		case pubsub.CreatedEvent:
			if !m.running {
				m.running = true
				m.text = "Processing..."
				return m, m.spinner.Tick
			}
		case pubsub.UpdatedEvent:
			if msg.Payload.Stage != "" {
				m.text = msg.Payload.Content
			}
		case pubsub.FinishedEvent:
			m.running = false
			m.text = "Ready"
			return m, nil
		}
	case DocumentMsg:
		m.document = msg.Path
		return m, nil
	}

	if m.running {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m StatusModel) View() string {
	style := lipgloss.NewStyle().Padding(1, 0)
	content := m.text
	if m.running {
		content = fmt.Sprintf("%s %s", m.spinner.View(), m.text)
	}
	if m.document != "" {
		content += lipgloss.NewStyle().Faint(true).Render("  · doc: " + filepath.Base(m.document))
	}
	if m.width > 0 {
		style = style.MaxWidth(m.width)
	}
	return style.Render(content)
}

// SetWidth sets the line width.
func (m *StatusModel) SetWidth(width int) {
	m.width = width
}

// IsRunning reports whether a question is in flight.
func (m StatusModel) IsRunning() bool {
	return m.running
}
