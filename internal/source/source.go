// Package source extracts plain text from law documents in the supported
// file formats. Page or block boundaries become single newlines.
package source

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/lawgest/internal/convert"
)

// Extractor returns the plain text of a document.
type Extractor interface {
	Extract(r io.Reader, filename string) (string, error)
}

// Options tune extractor behaviour.
type Options struct {
	// FallbackPdftotext runs the pdftotext binary when the PDF library
	// yields no text.
	FallbackPdftotext bool
}

// SupportedExtensions lists file extensions that can be converted.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the extractor for a filename.
func ForFile(filename string, opts Options) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".pdf":
		return &PDFExtractor{FallbackPdftotext: opts.FallbackPdftotext}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupported checks if a file extension is supported.
func IsSupported(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Extract picks the extractor for filename and reads r. Whitespace-only
// output is reported as convert.ErrNoText.
func Extract(r io.Reader, filename string, opts Options) (string, error) {
	ex, err := ForFile(filename, opts)
	if err != nil {
		return "", err
	}
	text, err := ex.Extract(r, filename)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", filepath.Base(filename), convert.ErrNoText)
	}
	return text, nil
}
