package component

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(m EditModel, s string) EditModel {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func submit(t *testing.T, m EditModel) (EditModel, string) {
	t.Helper()
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		return m, ""
	}
	msg, ok := cmd().(EditorSubmitMsg)
	require.True(t, ok)
	return m, msg.Value
}

func TestEditSubmitTrims(t *testing.T) {
	m := typeText(NewEditModel(), "  weather in Rome  ")
	m, got := submit(t, m)
	assert.Equal(t, "weather in Rome", got)
	assert.Empty(t, m.Value())

	m = typeText(m, "   ")
	_, got = submit(t, m)
	assert.Empty(t, got)
}

func TestEditHistory(t *testing.T) {
	m := NewEditModel()
	m, _ = submit(t, typeText(m, "first"))
	m, _ = submit(t, typeText(m, "second"))
	m = typeText(m, "dra")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "second", m.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "first", m.Value())
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "first", m.Value())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "dra", m.Value())
}
