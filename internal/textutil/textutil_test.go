package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"word", 1},
		{"one two three", 3},
		{strings.Repeat("word ", 300), 399},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d words) = %d, want %d", len(strings.Fields(tt.text)), got, tt.want)
		}
	}
}

func TestExcerpt(t *testing.T) {
	text := "alpha  beta\ngamma delta epsilon"
	if got := Excerpt(text, 0); got != "alpha beta gamma delta epsilon" {
		t.Errorf("unlimited excerpt: got %q", got)
	}
	// 4 tokens / 1.33 = 3 words.
	if got := Excerpt(text, 4); got != "alpha beta gamma" {
		t.Errorf("bounded excerpt: got %q", got)
	}
	if got := Excerpt(text, 1); got != "alpha" {
		t.Errorf("minimum excerpt: got %q", got)
	}
	if got := Excerpt("", 10); got != "" {
		t.Errorf("empty excerpt: got %q", got)
	}
}

func TestCollapse(t *testing.T) {
	if got := Collapse("  a\t\tb \n\n c  "); got != "a b c" {
		t.Errorf("Collapse: got %q", got)
	}
}

func TestRefine_ShortTextUnchanged(t *testing.T) {
	in := "Short   text.\nStill short."
	if got := Refine(in, DefaultTruncateOptions()); got != "Short text. Still short." {
		t.Errorf("got %q", got)
	}
}

func TestRefine_CutsAtSentenceEnd(t *testing.T) {
	sentence := strings.Repeat("x", 59) + "." // 60 runes
	in := strings.Repeat(sentence+" ", 10)     // ~610 runes
	got := Refine(in, DefaultTruncateOptions())

	if !strings.HasSuffix(got, ".") {
		t.Fatalf("expected sentence ending, got suffix %q", got[len(got)-5:])
	}
	n := utf8.RuneCountInString(got)
	if n > 400 || n <= 200 {
		t.Errorf("expected length in (200, 400], got %d", n)
	}
	// Sentences are 61 runes apart; the last period inside 400 runes is at 6*61-2.
	if n != 6*61-1 {
		t.Errorf("expected %d runes, got %d", 6*61-1, n)
	}
}

func TestRefine_FallbackCutWithEllipsis(t *testing.T) {
	in := strings.Repeat("word ", 150) // no sentence ends
	got := Refine(in, DefaultTruncateOptions())
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if n := utf8.RuneCountInString(strings.TrimSuffix(got, "...")); n > 300 {
		t.Errorf("expected at most 300 runes before ellipsis, got %d", n)
	}
}

func TestRefine_RuneSafe(t *testing.T) {
	in := strings.Repeat("é", 600)
	got := Refine(in, DefaultTruncateOptions())
	if !utf8.ValidString(got) {
		t.Fatal("refined text is not valid UTF-8")
	}
	if got != strings.Repeat("é", 300)+"..." {
		t.Errorf("unexpected refined text length %d", utf8.RuneCountInString(got))
	}
}
