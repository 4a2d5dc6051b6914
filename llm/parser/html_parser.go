package parser

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var blankLines = regexp.MustCompile(`\n\s*\n\s*\n+`)

// HTMLParser converts HTML pages to markdown-flavoured text so headings and lists survive chunking
type HTMLParser struct {
	converter *md.Converter
}

// NewHTMLParser creates a new HTML parser
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{
		converter: md.NewConverter("", true, nil),
	}
}

// Parse reads and converts HTML from r
func (p *HTMLParser) Parse(ctx context.Context, r io.Reader, name string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	doc.Find("script, style, noscript, nav, footer").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	content := p.converter.Convert(body)
	if strings.TrimSpace(content) == "" {
		// fall back to raw text when conversion yields nothing
		content = body.Text()
	}
	content = strings.TrimSpace(blankLines.ReplaceAllString(content, "\n\n"))

	if title == "" {
		title = ExtractTitle(content, name)
	}

	return &Document{
		Content: content,
		Title:   title,
		Metadata: map[string]any{
			"link_count": doc.Find("a").Length(),
		},
	}, nil
}

// FileType returns the file type this parser handles
func (p *HTMLParser) FileType() FileType {
	return FileTypeHTML
}
