package parser

import (
	"strings"
	"testing"

	pdflib "github.com/ledongthuc/pdf"
)

// glyphs lays a word out as per-character runs the way the pdf reader reports them.
func glyphs(word, font string, size, x, y float64) []pdflib.Text {
	var out []pdflib.Text
	w := size * 0.5
	for i, r := range word {
		out = append(out, pdflib.Text{Font: font, FontSize: size, X: x + float64(i)*w, Y: y, W: w, S: string(r)})
	}
	return out
}

func TestGroupLines_RebuildsLinesTopToBottom(t *testing.T) {
	var texts []pdflib.Text
	// Body line first in stream order but lower on the page.
	texts = append(texts, glyphs("Body", "Helvetica", 10, 72, 680)...)
	texts = append(texts, glyphs("text", "Helvetica", 10, 72+4*5+4, 680)...)
	texts = append(texts, glyphs("Methodology", "Helvetica-Bold", 16, 72, 700)...)

	blocks := groupLines(texts)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 lines, got %d: %+v", len(blocks), blocks)
	}
	if blocks[0].Text != "Methodology" || !blocks[0].Bold || blocks[0].FontSize != 16 {
		t.Errorf("unexpected heading line: %+v", blocks[0])
	}
	if blocks[1].Text != "Body text" || blocks[1].Bold || blocks[1].FontSize != 10 {
		t.Errorf("unexpected body line: %+v", blocks[1])
	}
	if blocks[0].Top >= blocks[1].Top {
		t.Errorf("expected heading above body, got tops %v and %v", blocks[0].Top, blocks[1].Top)
	}
}

func TestGroupLines_SmallBaselineJitterStaysOnOneLine(t *testing.T) {
	texts := glyphs("Hello", "Times-Roman", 12, 72, 500)
	texts[2].Y += 0.8
	blocks := groupLines(texts)
	if len(blocks) != 1 || blocks[0].Text != "Hello" {
		t.Fatalf("expected one line %q, got %+v", "Hello", blocks)
	}
}

func TestGroupLines_EmptyInput(t *testing.T) {
	if blocks := groupLines(nil); blocks != nil {
		t.Errorf("expected nil blocks, got %+v", blocks)
	}
	if blocks := groupLines([]pdflib.Text{{S: ""}}); blocks != nil {
		t.Errorf("expected nil blocks for empty strings, got %+v", blocks)
	}
}

func TestIsBoldFont(t *testing.T) {
	for _, f := range []string{"Helvetica-Bold", "ABCDEE+Arial-BoldMT", "Montserrat-SemiBold", "Roboto-Black"} {
		if !isBoldFont(f) {
			t.Errorf("expected %q to be bold", f)
		}
	}
	for _, f := range []string{"Helvetica", "Times-Italic", ""} {
		if isBoldFont(f) {
			t.Errorf("expected %q not to be bold", f)
		}
	}
}

func TestPDFParser_CorruptInput(t *testing.T) {
	p := &PDFParser{}
	_, err := p.Parse(strings.NewReader("this is not a pdf"), "broken.pdf")
	if err == nil {
		t.Fatal("expected error for corrupt pdf")
	}
}

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.MD", "c.markdown", "d.htm", "e.docx", "f.txt"} {
		if _, err := ForFile(name, Options{}); err != nil {
			t.Errorf("ForFile(%q): unexpected error %v", name, err)
		}
	}
	if _, err := ForFile("sheet.csv", Options{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
