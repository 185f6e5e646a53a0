// Package parser turns uploaded documents into plain text for chunking.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docquiz/internal/doctree"
)

// DefaultMinChars is the shortest trimmed text accepted from a document.
const DefaultMinChars = 50

// ErrExtractionFailed means a document yielded no usable text.
var ErrExtractionFailed = errors.New("extraction failed")

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

var extensions = map[string]func() Parser{
	".txt":      func() Parser { return &TextParser{} },
	".md":       func() Parser { return &MarkdownParser{} },
	".markdown": func() Parser { return &MarkdownParser{} },
	".csv":      func() Parser { return &CSVParser{} },
	".html":     func() Parser { return &HTMLParser{} },
	".htm":      func() Parser { return &HTMLParser{} },
	".pdf":      func() Parser { return &PDFParser{} },
	".docx":     func() Parser { return &DOCXParser{} },
}

// ForFile returns the parser for a filename's extension.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mk, ok := extensions[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file extension %q", ext)
	}
	return mk(), nil
}

// IsSupportedExtension reports whether ForFile would accept filename.
func IsSupportedExtension(filename string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Options tune extraction.
type Options struct {
	MinChars          int  // Shortest accepted trimmed text; < 1 uses DefaultMinChars.
	PdftotextFallback bool // Retry failed PDFs with the pdftotext binary.
}

// Extract parses r with the parser for filename and returns its plain text.
// Any parse failure, unsupported format, or text shorter than minChars after
// trimming is reported as ErrExtractionFailed.
func Extract(r io.Reader, filename string, minChars int) (string, error) {
	return Options{MinChars: minChars}.Extract(r, filename)
}

// Extract is the package-level Extract with o applied.
func (o Options) Extract(r io.Reader, filename string) (string, error) {
	minChars := o.MinChars
	if minChars < 1 {
		minChars = DefaultMinChars
	}
	p, err := ForFile(filename)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtractionFailed, filename, err)
	}
	if pdf, ok := p.(*PDFParser); ok {
		pdf.FallbackPdftotext = o.PdftotextFallback
	}
	tree, err := p.Parse(r, filename)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtractionFailed, filename, err)
	}
	text := strings.TrimSpace(tree.PlainText())
	if n := len([]rune(text)); n < minChars {
		return "", fmt.Errorf("%w: %s: %d characters of text, need %d", ErrExtractionFailed, filename, n, minChars)
	}
	return text, nil
}

// trimExt strips the given extensions (case-insensitive) from a filename to
// form a document title.
func trimExt(filename string, exts ...string) string {
	for _, ext := range exts {
		if strings.HasSuffix(strings.ToLower(filename), ext) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return filename
}
