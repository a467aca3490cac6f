package structure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dgallion1/docrank/internal/document"
)

const bodyText = "The experimental procedure was repeated for every sample in the cohort."

func bl(text string, size float64, bold bool) document.TextBlock {
	return document.TextBlock{Text: text, FontSize: size, Bold: bold}
}

// pg lays blocks out at a uniform 14pt line pitch.
func pg(n int, blocks ...document.TextBlock) document.Page {
	for i := range blocks {
		blocks[i].Top = float64(i) * 14
	}
	return document.Page{Number: n, Blocks: blocks}
}

func TestExtract_FontSizeLevels(t *testing.T) {
	doc := &document.Document{Name: "paper.pdf", Index: 2, Pages: []document.Page{
		pg(1,
			bl("Deep Learning Survey", 20, true),
			bl(bodyText, 10, false),
			bl(bodyText, 10, false),
			bl("Methodology", 16, true),
			bl(bodyText, 10, false),
		),
		pg(2,
			bl("Sampling", 13, false),
			bl(bodyText, 10, false),
		),
		pg(3,
			bl("Results", 16, true),
			bl(bodyText, 10, false),
		),
	}}

	sections := Extract(doc, DefaultOptions())
	require.Len(t, sections, 4)

	want := []struct {
		title      string
		level      int
		start, end int
	}{
		{"Deep Learning Survey", 1, 1, 3},
		{"Methodology", 2, 1, 2},
		{"Sampling", 3, 2, 2},
		{"Results", 2, 3, 3},
	}
	for i, w := range want {
		s := sections[i]
		assert.Equal(t, w.title, s.Title, "section %d title", i)
		assert.Equal(t, w.level, s.Level, "section %d level", i)
		assert.Equal(t, w.start, s.StartPage, "section %d start page", i)
		assert.Equal(t, w.end, s.EndPage, "section %d end page", i)
		assert.Equal(t, i, s.Index)
		assert.Equal(t, "paper.pdf", s.Document)
		assert.Equal(t, 2, s.DocIndex)
	}
	assert.Equal(t, bodyText+"\n"+bodyText, sections[0].Body)
	assert.Equal(t, bodyText, sections[2].Body)
}

func TestExtract_BoldSeparatedHeadingAtBodySize(t *testing.T) {
	doc := &document.Document{Name: "guide.pdf", Pages: []document.Page{
		pg(1,
			bl(bodyText, 10, false),
			bl("Packing Tips", 10, true),
			bl("Bring layers.", 10, false),
			bl("A bold sentence in running text", 10, true),
			bl("that wraps onto a second bold line.", 10, true),
		),
	}}

	sections := Extract(doc, DefaultOptions())
	require.Len(t, sections, 3)
	assert.Equal(t, "The experimental procedure was repeated for every sample in the cohort.", sections[0].Title)
	assert.Equal(t, "Packing Tips", sections[1].Title)
	assert.Equal(t, "Bring layers.", sections[1].Body)
	// The continuation line follows a bold line at normal pitch, so it is body text.
	assert.Equal(t, "A bold sentence in running text", sections[2].Title)
	assert.Equal(t, "that wraps onto a second bold line.", sections[2].Body)
}

func TestExtract_WideGapSeparatesConsecutiveBoldLines(t *testing.T) {
	p := pg(1,
		bl(bodyText, 10, false),
		bl(bodyText, 10, false),
		bl("Summary", 10, true),
		bl("Nightlife", 10, true),
		bl(bodyText, 10, false),
	)
	p.Blocks[3].Top += 30
	p.Blocks[4].Top += 30
	doc := &document.Document{Name: "d.pdf", Pages: []document.Page{p}}

	sections := Extract(doc, DefaultOptions())
	// "Summary" has no body and is dropped; "Nightlife" is separated by the gap.
	require.Len(t, sections, 2)
	assert.Equal(t, "Nightlife", sections[1].Title)
	assert.Equal(t, 1, sections[1].Index)
}

func TestExtract_LongBoldBlockIsNotHeading(t *testing.T) {
	long := strings.Repeat("bold words ", 20)
	doc := &document.Document{Name: "d.pdf", Pages: []document.Page{
		pg(1, bl(bodyText, 10, false), bl(long, 10, true), bl(bodyText, 10, false)),
	}}
	sections := Extract(doc, DefaultOptions())
	require.Len(t, sections, 1)
	assert.Contains(t, sections[0].Body, "bold words")
}

func TestExtract_NoHeadingsUsesFirstLine(t *testing.T) {
	doc := &document.Document{Name: "notes.txt", Pages: []document.Page{
		pg(2, bl("  \n  Trip notes\nday one", 12, false), bl(bodyText, 12, false)),
		pg(3, bl(bodyText, 12, false)),
	}}
	sections := Extract(doc, DefaultOptions())
	require.Len(t, sections, 1)
	s := sections[0]
	assert.Equal(t, "Trip notes", s.Title)
	assert.Equal(t, 1, s.Level)
	assert.Equal(t, 2, s.StartPage)
	assert.Equal(t, 3, s.EndPage)
	assert.Contains(t, s.Body, "day one")
}

func TestExtract_HeadingsOnlyKeepsWholeDocument(t *testing.T) {
	doc := &document.Document{Name: "cover.pdf", Pages: []document.Page{
		pg(1, bl("Annual Report", 10, true)),
	}}
	sections := Extract(doc, DefaultOptions())
	require.Len(t, sections, 1)
	assert.Equal(t, "Annual Report", sections[0].Title)
	assert.Equal(t, "Annual Report", sections[0].Body)
}

func TestExtract_NumberedHeadingsAtBodySize(t *testing.T) {
	doc := &document.Document{Name: "guide.pdf", Pages: []document.Page{
		pg(1,
			bl("Field Guide", 16, true),
			bl("1. Introduction", 10, false),
			bl(bodyText, 10, false),
			bl("1.1 Scope", 10, false),
			bl(bodyText, 10, false),
			bl("2. Methods", 10, false),
			bl(bodyText, 10, false),
		),
	}}

	sections := Extract(doc, DefaultOptions())
	require.Len(t, sections, 3)
	want := []struct {
		title string
		level int
	}{
		{"1. Introduction", 2},
		{"1.1 Scope", 3},
		{"2. Methods", 2},
	}
	for i, w := range want {
		assert.Equal(t, w.title, sections[i].Title, "section %d", i)
		assert.Equal(t, w.level, sections[i].Level, "section %d", i)
		assert.Equal(t, bodyText, sections[i].Body, "section %d", i)
	}
}

func TestExtract_NumberedLinesInBodyAreNotHeadings(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"ingredients", []string{"1 cup flour", "2 Eggs", "3 tbsp sugar"}},
		{"steps", []string{"1. Preheat the oven", "2. Grease the tray"}},
		{"wrapped sentence", []string{"The samples were split into", "2 Groups for the control run"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := []document.TextBlock{bl("Pancakes", 16, true), bl(bodyText, 10, false)}
			for _, l := range tt.lines {
				blocks = append(blocks, bl(l, 10, false))
			}
			blocks = append(blocks, bl(bodyText, 10, false))
			doc := &document.Document{Name: "recipe.pdf", Pages: []document.Page{pg(1, blocks...)}}

			sections := Extract(doc, DefaultOptions())
			require.Len(t, sections, 1)
			assert.Equal(t, "Pancakes", sections[0].Title)
			for _, l := range tt.lines {
				assert.Contains(t, sections[0].Body, l)
			}
		})
	}
}

func TestNumberDepth(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"2.1 Sampling", 2},
		{"3.2.1) Error Bars", 3},
		{"IV. Results", 1},
		{"I. Overview", 1},
		{"b) Budget", 2},
		{"C. Appendix", 2},
		{"1 cup flour", 0},
		{"3.5 kg of rice", 0},
		{"2024 Report", 0},
		{"1. Mix well.", 0},
		{"Chapter 1", 0},
		{"1. Intro\nmore", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, numberDepth(tt.text), "numberDepth(%q)", tt.text)
	}
}

func TestExtract_EmptyDocument(t *testing.T) {
	assert.Nil(t, Extract(&document.Document{Name: "empty.pdf"}, DefaultOptions()))
	blank := &document.Document{Name: "blank.pdf", Pages: []document.Page{pg(1, bl("   ", 10, false))}}
	assert.Nil(t, Extract(blank, DefaultOptions()))
}

func TestBodySize_CharacterWeightedMode(t *testing.T) {
	doc := &document.Document{Pages: []document.Page{
		pg(1, bl("Big", 18, false), bl("small body text that dominates", 9.8, false), bl("ab", 12, false)),
	}}
	assert.Equal(t, 10.0, BodySize(doc))

	tie := &document.Document{Pages: []document.Page{pg(1, bl("abcd", 14, false), bl("wxyz", 11, false))}}
	assert.Equal(t, 11.0, BodySize(tie))
}

func TestLevelBands(t *testing.T) {
	levels := levelBands([]float64{16, 20, 16, 13})
	assert.Equal(t, map[float64]int{20: 1, 16: 2, 13: 3}, levels)
}

func TestExtract_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		nPages := rapid.IntRange(1, 4).Draw(t, "pages")
		doc := &document.Document{Name: "gen.pdf"}
		hasText := false
		for p := 1; p <= nPages; p++ {
			nBlocks := rapid.IntRange(0, 6).Draw(t, "blocks")
			var blocks []document.TextBlock
			for b := 0; b < nBlocks; b++ {
				text := rapid.SampledFrom([]string{"Overview", "Nightlife", bodyText, "Tips and tricks", "2. Findings", "   "}).Draw(t, "text")
				size := rapid.SampledFrom([]float64{10, 12, 16, 20}).Draw(t, "size")
				bold := rapid.Bool().Draw(t, "bold")
				blocks = append(blocks, bl(text, size, bold))
				if strings.TrimSpace(text) != "" {
					hasText = true
				}
			}
			doc.Pages = append(doc.Pages, pg(p, blocks...))
		}

		first := Extract(doc, DefaultOptions())
		second := Extract(doc, DefaultOptions())
		if !hasText {
			if first != nil {
				t.Fatalf("expected no sections for a document without text")
			}
			return
		}
		if len(first) == 0 {
			t.Fatalf("expected at least one section")
		}
		if len(first) != len(second) {
			t.Fatalf("extraction is not deterministic")
		}

		prevStart := 0
		for i, s := range first {
			if s != second[i] {
				t.Fatalf("section %d differs between runs", i)
			}
			if s.Index != i {
				t.Fatalf("section %d has index %d", i, s.Index)
			}
			if s.StartPage < prevStart {
				t.Fatalf("sections out of page order at %d", i)
			}
			if s.EndPage < s.StartPage || s.EndPage > nPages || s.StartPage < 1 {
				t.Fatalf("section %d has invalid span %d-%d", i, s.StartPage, s.EndPage)
			}
			if s.Level < 1 || strings.TrimSpace(s.Body) == "" {
				t.Fatalf("section %d has level %d body %q", i, s.Level, s.Body)
			}
			prevStart = s.StartPage
		}
	})
}
