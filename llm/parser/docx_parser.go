package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

const docxDocumentPath = "word/document.xml"

var (
	// paragraph boundaries become newlines
	docxParagraph = regexp.MustCompile(`</w:p>`)
	// <w:t>text</w:t> or <w:t xml:space="preserve">text</w:t>
	docxText = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>|\n`)
)

// DocxParser handles Word documents (.docx) by reading the text runs of word/document.xml
type DocxParser struct{}

// NewDocxParser creates a new DOCX parser
func NewDocxParser() *DocxParser {
	return &DocxParser{}
}

// Parse reads a .docx archive from r
func (p *DocxParser) Parse(ctx context.Context, r io.Reader, name string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read DOCX: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("DOCX is not a zip archive: %w", err)
	}

	var body []byte
	for _, f := range zr.File {
		if f.Name != docxDocumentPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		body, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		break
	}
	if body == nil {
		return nil, fmt.Errorf("%s not found in archive", docxDocumentPath)
	}

	content := docxToText(string(body))
	return &Document{
		Content: content,
		Title:   ExtractTitle(content, name),
		Metadata: map[string]any{
			"file_size":       len(data),
			"paragraph_count": strings.Count(content, "\n") + 1,
		},
	}, nil
}

func docxToText(xml string) string {
	xml = docxParagraph.ReplaceAllString(xml, "\n")

	var b strings.Builder
	for _, m := range docxText.FindAllStringSubmatch(xml, -1) {
		if m[0] == "\n" {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(html.UnescapeString(m[1]))
	}

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

// FileType returns the file type this parser handles
func (p *DocxParser) FileType() FileType {
	return FileTypeDocx
}
