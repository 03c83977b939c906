// Package extract turns raw document files into plain text ready for chunking.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions lists the file types corpus preparation picks up by default.
var DefaultExtensions = []string{".md", ".html", ".htm", ".txt", ".rst", ".pdf", ".docx", ".xlsx"}

// Extractor extracts plain text from document files. Extracted text keeps one
// paragraph (or text node, for HTML) per line.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".html", ".htm":
		return extractHTML(content)
	default:
		return extractPlain(content)
	}
}
