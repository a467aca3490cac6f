package parser

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/dgallion1/docrank/internal/document"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. It reads glyph runs with the Go library and
// rebuilds lines with font size, weight and vertical position. When that
// yields nothing and FallbackPdftotext is set, it falls back to pdftotext,
// which loses styling.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	// ledongthuc/pdf requires a ReaderAt+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docrank-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPDFPages(tmpPath)
	if (err != nil || len(pages) == 0) && p.FallbackPdftotext {
		if text, ferr := extractPdftotext(tmpPath); ferr == nil && strings.TrimSpace(text) != "" {
			return (&TextParser{}).Parse(strings.NewReader(text), filename)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	return &document.Document{Name: filename, Pages: pages}, nil
}

func extractPDFPages(path string) (pages []document.Page, err error) {
	// The reader panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		blocks := groupLines(page.Content().Text)
		if len(blocks) > 0 {
			pages = append(pages, document.Page{Number: i, Blocks: blocks})
		}
	}
	return pages, nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// groupLines turns positioned glyph runs into one block per visual line,
// ordered top to bottom. PDF y grows upward, so Top is measured down from
// the highest glyph on the page.
func groupLines(texts []pdflib.Text) []document.TextBlock {
	glyphs := make([]pdflib.Text, 0, len(texts))
	pageTop := math.Inf(-1)
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		glyphs = append(glyphs, t)
		pageTop = math.Max(pageTop, t.Y+t.FontSize)
	}
	if len(glyphs) == 0 {
		return nil
	}
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].Y > glyphs[j].Y })

	var blocks []document.TextBlock
	var line []pdflib.Text
	flush := func() {
		if b, ok := buildLine(line, pageTop); ok {
			blocks = append(blocks, b)
		}
		line = line[:0]
	}
	for _, g := range glyphs {
		if len(line) > 0 {
			tol := math.Max(1, 0.3*line[0].FontSize)
			if math.Abs(g.Y-line[0].Y) > tol {
				flush()
			}
		}
		line = append(line, g)
	}
	flush()
	return blocks
}

func buildLine(line []pdflib.Text, pageTop float64) (document.TextBlock, bool) {
	if len(line) == 0 {
		return document.TextBlock{}, false
	}
	glyphs := append([]pdflib.Text(nil), line...)
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	var sb strings.Builder
	sizeChars := make(map[float64]int)
	boldChars, chars := 0, 0
	prevEnd := math.Inf(-1)
	for _, g := range glyphs {
		gap := g.X - prevEnd
		if sb.Len() > 0 && gap > 0.15*g.FontSize && !strings.HasPrefix(g.S, " ") && !strings.HasSuffix(sb.String(), " ") {
			sb.WriteByte(' ')
		}
		sb.WriteString(g.S)
		prevEnd = g.X + g.W

		n := len(strings.TrimSpace(g.S))
		if n == 0 {
			continue
		}
		chars += n
		sizeChars[g.FontSize] += n
		if isBoldFont(g.Font) {
			boldChars += n
		}
	}
	text := strings.Join(strings.Fields(sb.String()), " ")
	if text == "" {
		return document.TextBlock{}, false
	}

	// Dominant size by character count; ties go to the larger size.
	size, best := 0.0, -1
	for s, n := range sizeChars {
		if n > best || (n == best && s > size) {
			size, best = s, n
		}
	}

	return document.TextBlock{
		Text:     text,
		FontSize: size,
		Bold:     boldChars*2 > chars,
		Top:      pageTop - glyphs[0].Y,
	}, true
}

func isBoldFont(font string) bool {
	f := strings.ToLower(font)
	for _, marker := range []string{"bold", "black", "heavy", "semibold", "demi"} {
		if strings.Contains(f, marker) {
			return true
		}
	}
	return false
}
