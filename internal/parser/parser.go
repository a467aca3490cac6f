package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docrank/internal/document"
)

// BodySize is the font size assigned to body text by sources without real
// layout information.
const BodySize = 12.0

// Parser converts raw document bytes into a Document of pages and text blocks.
type Parser interface {
	Parse(r io.Reader, filename string) (*document.Document, error)
}

// Options tunes format-specific parser behavior.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// HeadingSize maps a structural heading level (1-6) to a synthetic font size
// so that outline-aware formats flow through the same font-based extractor as
// PDFs. h1 is 24pt, h6 is 14pt.
func HeadingSize(level int) float64 {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return BodySize + 2*float64(7-level)
}

// blockWriter accumulates single-page blocks with increasing vertical position.
type blockWriter struct {
	blocks []document.TextBlock
	top    float64
}

func (w *blockWriter) add(text string, size float64, bold bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	w.blocks = append(w.blocks, document.TextBlock{
		Text:     text,
		FontSize: size,
		Bold:     bold,
		Top:      w.top,
	})
	w.top += size * 1.2
}

func (w *blockWriter) document(filename string) *document.Document {
	doc := &document.Document{Name: filename}
	if len(w.blocks) > 0 {
		doc.Pages = []document.Page{{Number: 1, Blocks: w.blocks}}
	}
	return doc
}
