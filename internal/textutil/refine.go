package textutil

import (
	"strings"
	"unicode/utf8"
)

// TruncateOptions bounds refined text length. Lengths are in runes.
type TruncateOptions struct {
	TruncateAbove  int // Text at or below this length is returned unchanged.
	CutAt          int // Window searched for the last sentence end.
	MinSentenceCut int // A sentence end must lie past this offset to be used.
	FallbackCut    int // Hard cut length, followed by an ellipsis.
}

// DefaultTruncateOptions returns the limits used for subsection text.
func DefaultTruncateOptions() TruncateOptions {
	return TruncateOptions{
		TruncateAbove:  500,
		CutAt:          400,
		MinSentenceCut: 200,
		FallbackCut:    300,
	}
}

// Collapse replaces every run of whitespace with a single space and trims.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Refine collapses whitespace and shortens long text, preferring to end on a
// sentence boundary.
func Refine(s string, opts TruncateOptions) string {
	text := Collapse(s)
	if opts.TruncateAbove <= 0 || utf8.RuneCountInString(text) <= opts.TruncateAbove {
		return text
	}
	runes := []rune(text)

	window := runes[:min(opts.CutAt, len(runes))]
	if end := lastSentenceEnd(window); end > opts.MinSentenceCut {
		return string(window[:end+1])
	}
	cut := min(opts.FallbackCut, len(runes))
	return strings.TrimRight(string(runes[:cut]), " ") + "..."
}

func lastSentenceEnd(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i
		}
	}
	return -1
}
