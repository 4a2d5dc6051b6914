package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts the plain text of every page.
// A page that fails to extract contributes an empty string instead of failing the document.
type PDFParser struct{}

// NewPDFParser creates a new PDF parser
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse reads a PDF from r
func (p *PDFParser) Parse(ctx context.Context, r io.Reader, name string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	failed := 0
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, ok := pageText(reader, i)
		if !ok {
			failed++
		}
		pages = append(pages, text)
	}

	content := strings.Join(pages, "\n")
	return &Document{
		Content: content,
		Title:   ExtractTitle(content, name),
		Metadata: map[string]any{
			"file_size":    len(data),
			"page_count":   numPages,
			"failed_pages": failed,
		},
	}, nil
}

// pageText extracts one page; the pdf library can panic on malformed content streams.
func pageText(reader *pdf.Reader, n int) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", true
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return text, true
}

// FileType returns the file type this parser handles
func (p *PDFParser) FileType() FileType {
	return FileTypePDF
}
