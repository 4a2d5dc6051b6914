package chat

import (
	"strings"

	"routeqa/llm/agent"
	"routeqa/pubsub"
	"routeqa/tui/component"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const docCommand = "/doc"

// Model is the chat screen: transcript, status line and input.
type Model struct {
	list   component.ListModel
	edit   component.EditModel
	status component.StatusModel

	runtime *agent.Runtime
	sub     <-chan pubsub.Event[agent.Turn]

	width  int
	height int
}

// InitialModel subscribes to the runtime's turn events.
func InitialModel(runtime *agent.Runtime) Model {
	status := component.NewStatusModel()
	status, _ = status.Update(component.DocumentMsg{Path: runtime.Document()})

	return Model{
		list:    component.NewListModel(),
		edit:    component.NewEditModel(),
		status:  status,
		runtime: runtime,
		sub:     runtime.Broker().Subscribe(runtime.Context()),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.list.Init(),
		m.edit.Init(),
		m.status.Init(),
		m.waitForTurn(),
	)
}

// waitForTurn blocks on the next runtime event.
func (m Model) waitForTurn() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.sub
		if !ok {
			return nil
		}
		return event
	}
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.runtime.Ask(m.runtime.Context(), question); err != nil {
			return component.NoticeMsg{Text: err.Error(), IsError: true}
		}
		return nil
	}
}

func (m Model) setDocument(path string) tea.Cmd {
	return func() tea.Msg {
		if err := m.runtime.SetDocument(path); err != nil {
			return component.NoticeMsg{Text: err.Error(), IsError: true}
		}
		return component.DocumentMsg{Path: path}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		statusHeight := lipgloss.Height(m.status.View())
		editHeight := m.edit.Height()
		m.list.SetSize(m.width, m.height-statusHeight-editHeight)
		m.edit.SetWidth(m.width)
		m.status.SetWidth(m.width)

	case component.EditorSubmitMsg:
		if path, ok := parseDocCommand(msg.Value); ok {
			cmds = append(cmds, m.setDocument(path))
		} else if !m.status.IsRunning() {
			cmds = append(cmds, m.ask(msg.Value))
		} else {
			cmds = append(cmds, func() tea.Msg {
				return component.NoticeMsg{Text: "Still working on the previous question."}
			})
		}

	case pubsub.Event[agent.Turn]:
		cmds = append(cmds, m.waitForTurn())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.runtime.Close()
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd

	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)

	m.edit, cmd = m.edit.Update(msg)
	cmds = append(cmds, cmd)

	m.status, cmd = m.status.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.list.View(),
		m.status.View(),
		m.edit.View(),
	)
}

// parseDocCommand recognises "/doc <path>"; a bare "/doc" clears the document.
func parseDocCommand(input string) (string, bool) {
	fields := strings.Fields(input)
	if len(fields) == 0 || fields[0] != docCommand {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), docCommand)), true
}
