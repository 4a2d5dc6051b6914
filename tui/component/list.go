package component

import (
	"routeqa/llm/agent"
	"routeqa/llm/flow"
	"routeqa/pubsub"
	"routeqa/tui/component/renderer"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// NoticeMsg shows a local system line that is not part of the transcript.
type NoticeMsg struct {
	Text    string
	IsError bool
}

// ListModel is the scrollable transcript. Rendering is delegated to a
// MessageRenderer.
type ListModel struct {
	viewport viewport.Model
	turns    []agent.Turn
	width    int
	height   int
	ready    bool

	renderer *renderer.MessageRenderer
}

// NewListModel creates an empty transcript view.
func NewListModel() ListModel {
	msgRenderer := renderer.NewMessageRenderer(nil)
	vp := viewport.New(30, 5)
	vp.KeyMap = scrollKeys()
	vp.SetContent(msgRenderer.RenderTurns(nil))

	return ListModel{
		viewport: vp,
		renderer: msgRenderer,
		width:    30,
		height:   5,
		ready:    true,
	}
}

// scrollKeys keeps the viewport off letter keys and arrows, which belong to
// the input line.
func scrollKeys() viewport.KeyMap {
	return viewport.KeyMap{
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}
}

func (m ListModel) Init() tea.Cmd {
	return nil
}

func (m ListModel) Update(msg tea.Msg) (ListModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.viewport.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			m.viewport.ScrollDown(3)
		}
	case pubsub.Event[agent.Turn]:
		// stage progress goes to the status line
		if msg.Type == pubsub.UpdatedEvent && msg.Payload.Stage != "" {
			return m, nil
		}
		m.append(msg.Payload)
		return m, nil
	case NoticeMsg:
		turn := agent.Turn{Role: agent.RoleSystem, Content: msg.Text}
		if msg.IsError {
			turn = agent.Turn{Role: agent.RoleAssistant, Content: msg.Text, Result: &flow.Result{Error: msg.Text}}
		}
		m.append(turn)
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *ListModel) append(t agent.Turn) {
	m.turns = append(m.turns, t)
	m.updateViewportContent()
	m.viewport.GotoBottom()
}

// Len returns the number of turns shown.
func (m ListModel) Len() int {
	return len(m.turns)
}

func (m ListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return m.viewport.View()
}

// SetSize resizes the viewport and re-renders.
func (m *ListModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	if height < 1 {
		height = 1
	}

	m.viewport.Width = width
	m.viewport.Height = height
	m.ready = true

	m.renderer.SetViewportWidth(width)
	m.updateViewportContent()
	m.viewport.GotoBottom()
}

func (m *ListModel) updateViewportContent() {
	m.viewport.SetContent(m.renderer.RenderTurns(m.turns))
}
