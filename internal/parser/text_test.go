package parser

import (
	"strings"
	"testing"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Name != "notes.txt" {
		t.Errorf("expected name %q, got %q", "notes.txt", doc.Name)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	blocks := doc.Pages[0].Blocks
	want := []string{
		"First paragraph line one.\nFirst paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d", len(want), len(blocks))
	}
	for i, w := range want {
		if blocks[i].Text != w {
			t.Errorf("block[%d]: expected %q, got %q", i, w, blocks[i].Text)
		}
		if blocks[i].FontSize != BodySize || blocks[i].Bold {
			t.Errorf("block[%d]: expected unstyled body text, got size=%v bold=%v", i, blocks[i].FontSize, blocks[i].Bold)
		}
	}
	if !(blocks[0].Top < blocks[1].Top && blocks[1].Top < blocks[2].Top) {
		t.Errorf("expected increasing vertical positions, got %v %v %v", blocks[0].Top, blocks[1].Top, blocks[2].Top)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", len(doc.Pages))
	}
}

func TestTextParser_FormFeedStartsNewPage(t *testing.T) {
	input := "Page one text.\n\fPage two text.\n\f\fPage four text."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "paged.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 3 {
		t.Fatalf("expected 3 non-empty pages, got %d", len(doc.Pages))
	}
	wantNums := []int{1, 2, 4}
	for i, n := range wantNums {
		if doc.Pages[i].Number != n {
			t.Errorf("page[%d]: expected number %d, got %d", i, n, doc.Pages[i].Number)
		}
	}
	if doc.Pages[2].Blocks[0].Text != "Page four text." {
		t.Errorf("unexpected text on last page: %q", doc.Pages[2].Blocks[0].Text)
	}
}

func TestTextParser_WhitespaceOnlyLines(t *testing.T) {
	// Lines with only whitespace should be treated as blank.
	input := "Para one.\n   \nPara two."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "ws.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doc.BlockCount(); got != 2 {
		t.Fatalf("expected 2 blocks, got %d", got)
	}
}
