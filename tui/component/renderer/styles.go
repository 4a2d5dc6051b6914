package renderer

import (
	"github.com/charmbracelet/lipgloss"
)

// MessageStyles holds the lipgloss styles of the transcript view.
type MessageStyles struct {
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Error     lipgloss.Style

	// answer footer
	Source lipgloss.Style
	Meta   lipgloss.Style
	Border lipgloss.Style
	Indent lipgloss.Style
}

// DefaultMessageStyles returns the default palette.
func DefaultMessageStyles() *MessageStyles {
	return &MessageStyles{
		User:      lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff")).Bold(true),
		Assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7")).Bold(true),
		System:    lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89")).Italic(true),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")),
		Source:    lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
		Meta:      lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68")),
		Border:    lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89")).Faint(true),
		Indent:    lipgloss.NewStyle().PaddingLeft(2),
	}
}

// Mode icons shown in assistant headers.
const (
	IconWeather  = "☀"
	IconDocument = "📄"
	IconError    = "✗"
)
