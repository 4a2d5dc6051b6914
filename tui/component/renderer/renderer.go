package renderer

import (
	"fmt"
	"strings"

	"routeqa/llm"
	"routeqa/llm/agent"
	"routeqa/llm/flow"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	welcome        = "Ask about the weather in a city, or load a document with /doc <path> and ask about it."
	maxSourceChars = 120
)

// MessageRenderer renders transcript turns for the chat view.
type MessageRenderer struct {
	markdownRenderer *glamour.TermRenderer
	styles           *MessageStyles
	renderedCache    []string
	viewportWidth    int
}

// NewMessageRenderer creates a renderer; nil styles selects the defaults.
func NewMessageRenderer(styles *MessageStyles) *MessageRenderer {
	if styles == nil {
		styles = DefaultMessageStyles()
	}

	markdownRenderer, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dracula"),
		glamour.WithWordWrap(0),
	)
	return &MessageRenderer{
		markdownRenderer: markdownRenderer,
		styles:           styles,
	}
}

// SetViewportWidth sets the wrap width.
func (r *MessageRenderer) SetViewportWidth(width int) {
	r.viewportWidth = width
}

// RenderTurns renders the whole transcript. Turns before the last one are
// cached, since they never change.
func (r *MessageRenderer) RenderTurns(turns []agent.Turn) string {
	if len(turns) == 0 {
		return welcome
	}

	if len(turns) < len(r.renderedCache) {
		r.renderedCache = r.renderedCache[:0]
	}
	for i := len(r.renderedCache); i < len(turns)-1; i++ {
		r.renderedCache = append(r.renderedCache, r.RenderTurn(turns[i]))
	}

	var sb strings.Builder
	for _, cached := range r.renderedCache {
		if cached != "" {
			sb.WriteString(cached)
			sb.WriteString("\n\n")
		}
	}
	sb.WriteString(r.RenderTurn(turns[len(turns)-1]))

	content := sb.String()
	if r.viewportWidth > 0 {
		return lipgloss.NewStyle().Width(r.viewportWidth).Render(content)
	}
	return content
}

// RenderTurn renders a single turn.
func (r *MessageRenderer) RenderTurn(t agent.Turn) string {
	switch t.Role {
	case agent.RoleUser:
		if t.Content == "" {
			return ""
		}
		return r.styles.User.Render("You:") + " " + t.Content
	case agent.RoleAssistant:
		return r.renderAnswer(t)
	case agent.RoleSystem:
		if t.Content == "" {
			return ""
		}
		return r.styles.System.Render("System: " + t.Content)
	}
	return ""
}

func (r *MessageRenderer) renderAnswer(t agent.Turn) string {
	if t.IsError() {
		return r.styles.Error.Render(IconError + " " + t.Content)
	}

	header := "Assistant:"
	if t.Result != nil {
		switch t.Result.Mode {
		case llm.IntentWeather:
			header = IconWeather + " Weather:"
		case llm.IntentRAG:
			header = IconDocument + " Document:"
		}
	}

	parts := []string{r.styles.Assistant.Render(header), r.renderMarkdown(t.Content)}
	if t.Result != nil {
		if footer := r.renderFooter(t.Result); footer != "" {
			parts = append(parts, footer)
		}
	}
	return strings.Join(parts, "\n")
}

func (r *MessageRenderer) renderFooter(res *flow.Result) string {
	var lines []string
	for i, hit := range res.Sources {
		line := fmt.Sprintf("[%d] %.3f %s", i+1, hit.Score, Truncate(OneLine(hit.Text()), maxSourceChars))
		lines = append(lines, r.styles.Border.Render("│ ")+r.styles.Source.Render(line))
	}
	if res.Evaluation != nil {
		lines = append(lines, r.styles.Border.Render("└ ")+
			r.styles.Meta.Render(fmt.Sprintf("score %.2f", res.Evaluation.Score)))
	}
	if len(lines) == 0 {
		return ""
	}
	return r.styles.Indent.Render(strings.Join(lines, "\n"))
}

func (r *MessageRenderer) renderMarkdown(content string) string {
	if r.markdownRenderer == nil {
		return content
	}
	rendered, err := r.markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}
