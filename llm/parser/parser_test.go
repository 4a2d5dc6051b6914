package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTypeFromExt(t *testing.T) {
	assert.Equal(t, FileTypePDF, FileTypeFromExt("PDF"))
	assert.Equal(t, FileTypeMD, FileTypeFromExt("markdown"))
	assert.Equal(t, FileTypeHTML, FileTypeFromExt("htm"))
	assert.Equal(t, FileTypeUnknown, FileTypeFromExt("xlsx"))
}

func TestRegistryLoadText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Meeting notes\nThe budget is 42 dollars."), 0o644))

	reg := DefaultRegistry()
	assert.True(t, reg.Supported(path))
	assert.False(t, reg.Supported(filepath.Join(dir, "sheet.xlsx")))

	text, err := reg.LoadText(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "42 dollars")

	doc, err := reg.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Meeting notes", doc.Title)
}

func TestRegistryErrors(t *testing.T) {
	reg := DefaultRegistry()

	_, err := reg.LoadText(context.Background(), "report.xlsx")
	assert.ErrorContains(t, err, "no parser")

	_, err = reg.LoadText(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestMarkdownParser(t *testing.T) {
	src := "---\ntitle: Handbook\ntags: [a, b]\n---\n# Welcome\n\nRead the **important** [guide](http://x).\n\n```go\nfmt.Println()\n```\n"

	doc, err := NewMarkdownParser().Parse(context.Background(), strings.NewReader(src), "handbook.md")
	require.NoError(t, err)

	assert.Equal(t, "Handbook", doc.Title)
	assert.Equal(t, true, doc.Metadata["has_frontmatter"])
	assert.Contains(t, doc.Content, "Welcome")
	assert.Contains(t, doc.Content, "Read the important guide.")
	assert.NotContains(t, doc.Content, "title: Handbook")
	assert.NotContains(t, doc.Content, "```")
}

func TestHTMLParser(t *testing.T) {
	src := `<html><head><title>Travel Guide</title><style>.x{}</style></head>
<body><h1>Paris</h1><p>The Louvre is a museum.</p><script>alert(1)</script></body></html>`

	doc, err := NewHTMLParser().Parse(context.Background(), strings.NewReader(src), "guide.html")
	require.NoError(t, err)

	assert.Equal(t, "Travel Guide", doc.Title)
	assert.Contains(t, doc.Content, "Paris")
	assert.Contains(t, doc.Content, "The Louvre is a museum.")
	assert.NotContains(t, doc.Content, "alert")
}

func TestDocxParser(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document><w:body>` +
		`<w:p w:rsidR="1"><w:r><w:t>Quarterly</w:t></w:r><w:r><w:t xml:space="preserve"> report</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Revenue &amp; costs</w:t></w:r></w:p>` +
		`</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	doc, err := NewDocxParser().Parse(context.Background(), &buf, "report.docx")
	require.NoError(t, err)

	assert.Equal(t, "Quarterly report\nRevenue & costs", doc.Content)
	assert.Equal(t, "Quarterly report", doc.Title)
}

func TestDocxParserRejectsNonZip(t *testing.T) {
	_, err := NewDocxParser().Parse(context.Background(), strings.NewReader("plain"), "x.docx")
	assert.Error(t, err)
}

func TestPDFParserRejectsGarbage(t *testing.T) {
	_, err := NewPDFParser().Parse(context.Background(), strings.NewReader("not a pdf"), "x.pdf")
	assert.Error(t, err)
}

func TestExtractTitleFallsBackToFileName(t *testing.T) {
	assert.Equal(t, "annual report", ExtractTitle("", "/tmp/annual-report.pdf"))
	assert.Equal(t, "Untitled", ExtractTitle("  ", ""))
}
