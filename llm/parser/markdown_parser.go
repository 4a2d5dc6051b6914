package parser

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	mdHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdImage   = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink    = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdEmph    = regexp.MustCompile(`(\*\*|__|\*|~~)`)
	mdFence   = regexp.MustCompile("(?m)^```.*$")
)

// MarkdownParser strips markdown syntax and reads YAML frontmatter into metadata
type MarkdownParser struct{}

// NewMarkdownParser creates a new markdown parser
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

// Parse reads markdown from r
func (p *MarkdownParser) Parse(ctx context.Context, r io.Reader, name string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown: %w", err)
	}

	raw := string(data)
	front, body := splitFrontmatter(raw)

	metadata := map[string]any{}
	if front != "" {
		if err := yaml.Unmarshal([]byte(front), &metadata); err != nil {
			// malformed frontmatter stays in the text
			body = raw
			metadata = map[string]any{}
		}
	}

	title := ExtractTitle(body, name)
	if t, ok := metadata["title"].(string); ok && t != "" {
		title = t
	}

	metadata["file_size"] = len(data)
	metadata["has_frontmatter"] = front != ""

	return &Document{
		Content:  cleanMarkdown(body),
		Title:    title,
		Metadata: metadata,
	}, nil
}

// splitFrontmatter separates a leading "---" delimited YAML block from the body
func splitFrontmatter(content string) (front, body string) {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return "", content
	}
	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n")
		}
	}
	return "", content
}

// cleanMarkdown removes formatting that adds noise to embeddings but keeps the words
func cleanMarkdown(content string) string {
	content = mdFence.ReplaceAllString(content, "")
	content = mdImage.ReplaceAllString(content, "$1")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdEmph.ReplaceAllString(content, "")

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// FileType returns the file type this parser handles
func (p *MarkdownParser) FileType() FileType {
	return FileTypeMD
}
