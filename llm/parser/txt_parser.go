package parser

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// TxtParser handles plain text files
type TxtParser struct{}

// NewTxtParser creates a new plain text parser
func NewTxtParser() *TxtParser {
	return &TxtParser{}
}

// Parse reads plain text as-is
func (p *TxtParser) Parse(ctx context.Context, r io.Reader, name string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read text: %w", err)
	}

	content := string(data)
	return &Document{
		Content: content,
		Title:   ExtractTitle(content, name),
		Metadata: map[string]any{
			"file_size":  len(data),
			"line_count": strings.Count(content, "\n") + 1,
		},
	}, nil
}

// FileType returns the file type this parser handles
func (p *TxtParser) FileType() FileType {
	return FileTypeTXT
}
