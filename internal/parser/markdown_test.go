package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docrank/internal/document"
)

func allBlocks(doc *document.Document) []document.TextBlock {
	var out []document.TextBlock
	for _, p := range doc.Pages {
		out = append(out, p.Blocks...)
	}
	return out
}

func TestMarkdownParser_HeadingSizes(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.
`
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	blocks := allBlocks(doc)
	want := []struct {
		text string
		size float64
		bold bool
	}{
		{"Title", HeadingSize(1), true},
		{"Intro text.", BodySize, false},
		{"Section A", HeadingSize(2), true},
		{"Section A content.", BodySize, false},
		{"Subsection A1", HeadingSize(3), true},
		{"Subsection A1 content.", BodySize, false},
	}
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d", len(want), len(blocks))
	}
	for i, w := range want {
		b := blocks[i]
		if b.Text != w.text || b.FontSize != w.size || b.Bold != w.bold {
			t.Errorf("block[%d]: expected {%q %v %v}, got {%q %v %v}", i, w.text, w.size, w.bold, b.Text, b.FontSize, b.Bold)
		}
	}
}

func TestMarkdownParser_StrongParagraphIsBold(t *testing.T) {
	input := "**Packing Tips**\n\nBring a light jacket and *comfortable* shoes.\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "tips.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blocks := allBlocks(doc)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if !blocks[0].Bold || blocks[0].Text != "Packing Tips" {
		t.Errorf("expected bold %q, got %+v", "Packing Tips", blocks[0])
	}
	if blocks[1].Bold {
		t.Errorf("expected mixed-emphasis paragraph to be plain, got %+v", blocks[1])
	}
	if blocks[1].Text != "Bring a light jacket and comfortable shoes." {
		t.Errorf("unexpected paragraph text %q", blocks[1].Text)
	}
}

func TestMarkdownParser_CodeBlockKeepsContent(t *testing.T) {
	input := "# API Reference\n\nList of endpoints:\n\n```\nGET /api/users\nPOST /api/users\n```\n"
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blocks := allBlocks(doc)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if !strings.Contains(blocks[2].Text, "GET /api/users") || !strings.Contains(blocks[2].Text, "POST /api/users") {
		t.Errorf("expected code block content, got %q", blocks[2].Text)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", len(doc.Pages))
	}
}

func TestHeadingSize_Clamped(t *testing.T) {
	tests := []struct {
		level int
		want  float64
	}{
		{0, 24}, {1, 24}, {2, 22}, {6, 14}, {9, 14},
	}
	for _, tt := range tests {
		if got := HeadingSize(tt.level); got != tt.want {
			t.Errorf("HeadingSize(%d) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
