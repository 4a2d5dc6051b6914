package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileType represents the type of document file
type FileType string

const (
	FileTypePDF     FileType = "pdf"
	FileTypeDocx    FileType = "docx"
	FileTypeMD      FileType = "md"
	FileTypeHTML    FileType = "html"
	FileTypeTXT     FileType = "txt"
	FileTypeUnknown FileType = "unknown"
)

// Document is the extracted text of a file plus a few facts about it
type Document struct {
	Content  string
	Title    string
	Metadata map[string]any
}

// Parser extracts plain text from one file type
type Parser interface {
	// Parse reads a document from r. name is used for titles and messages only.
	Parse(ctx context.Context, r io.Reader, name string) (*Document, error)

	// FileType returns the file type this parser handles
	FileType() FileType
}

// Registry maps file types to parsers
type Registry struct {
	parsers map[FileType]Parser
}

// NewRegistry creates an empty parser registry
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[FileType]Parser),
	}
}

// Register adds a parser to the registry
func (r *Registry) Register(p Parser) {
	r.parsers[p.FileType()] = p
}

// ParserForPath returns the parser for the file extension of path
func (r *Registry) ParserForPath(path string) (Parser, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	p, ok := r.parsers[FileTypeFromExt(ext)]
	return p, ok
}

// ParseFile parses a file using the parser registered for its extension
func (r *Registry) ParseFile(ctx context.Context, path string) (*Document, error) {
	p, ok := r.ParserForPath(path)
	if !ok {
		return nil, fmt.Errorf("no parser for file %s", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	doc, err := p.Parse(ctx, f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// LoadText returns the full text of the document at path.
func (r *Registry) LoadText(ctx context.Context, path string) (string, error) {
	doc, err := r.ParseFile(ctx, path)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// Supported reports whether path has a registered parser.
func (r *Registry) Supported(path string) bool {
	_, ok := r.ParserForPath(path)
	return ok
}

// FileTypeFromExt converts a file extension to FileType
func FileTypeFromExt(ext string) FileType {
	switch strings.ToLower(ext) {
	case "pdf":
		return FileTypePDF
	case "docx":
		return FileTypeDocx
	case "md", "markdown":
		return FileTypeMD
	case "html", "htm":
		return FileTypeHTML
	case "txt", "text":
		return FileTypeTXT
	default:
		return FileTypeUnknown
	}
}

// DefaultRegistry returns a registry with all parsers registered
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(NewTxtParser())
	reg.Register(NewMarkdownParser())
	reg.Register(NewHTMLParser())
	reg.Register(NewPDFParser())
	reg.Register(NewDocxParser())
	return reg
}

// ExtractTitle returns the first short non-empty line of content, or the file name
func ExtractTitle(content, name string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		if line == "" {
			continue
		}
		if len(line) < 100 {
			return line
		}
		break
	}
	return fileTitle(name)
}

// fileTitle turns "quarterly-report_v2.pdf" into "quarterly report v2"
func fileTitle(name string) string {
	if name == "" {
		return "Untitled"
	}
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.NewReplacer("-", " ", "_", " ").Replace(base)
}
