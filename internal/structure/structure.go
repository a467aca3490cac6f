// Package structure infers a document outline from text block layout.
//
// Heading detection is a pure function of the blocks: no I/O and no state.
// Headings are found by font size, by bold separated lines, and by outline
// numbering such as "2.1 Sampling" on otherwise plain lines.
package structure

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docrank/internal/document"
)

// Options controls heading classification.
type Options struct {
	SizeRatio       float64 // A block larger than body*SizeRatio is a heading.
	GapRatio        float64 // A bold block with a gap above larger than GapRatio*median gap is separated.
	MaxHeadingRunes int     // Bold blocks longer than this are never headings.
}

// DefaultOptions returns the thresholds used in production.
func DefaultOptions() Options {
	return Options{
		SizeRatio:       1.1,
		GapRatio:        1.25,
		MaxHeadingRunes: 100,
	}
}

type line struct {
	page      int
	firstOnPg bool
	gapAbove  float64 // < 0 when unknown (first on page)
	block     document.TextBlock
	text      string
}

type head struct {
	title string
	level int
	start int // index into lines of the heading (or first preamble line)
	body  []string
}

// Extract splits a document into ordered, non-overlapping sections.
// A document without text yields no sections.
func Extract(doc *document.Document, opts Options) []document.Section {
	opts = withDefaults(opts)
	lines := flatten(doc)
	if len(lines) == 0 {
		return nil
	}

	body := BodySize(doc)
	median := medianGap(lines)

	isHead := make([]bool, len(lines))
	depth := make([]int, len(lines)) // > 0 for headings found only by their numbering
	var headSizes []float64
	for i, ln := range lines {
		switch {
		case isHeading(lines, i, body, median, opts):
			isHead[i] = true
			headSizes = append(headSizes, bucket(ln.block.FontSize))
		case isNumberedHeading(lines, i, isHead, median, opts):
			isHead[i] = true
			depth[i] = numberDepth(ln.text)
		}
	}
	levels := levelBands(headSizes)

	var heads []head
	for i, ln := range lines {
		switch {
		case isHead[i]:
			level := levels[bucket(ln.block.FontSize)]
			if depth[i] > 0 {
				level = bandsAbove(headSizes, ln.block.FontSize) + depth[i]
			}
			heads = append(heads, head{
				title: oneLine(ln.text),
				level: level,
				start: i,
			})
		case len(heads) == 0:
			// Preamble before the first heading, titled by its first line.
			heads = append(heads, head{title: oneLine(firstLine(ln.text)), level: 1, start: i, body: []string{ln.text}})
		default:
			cur := &heads[len(heads)-1]
			cur.body = append(cur.body, ln.text)
		}
	}

	sections := make([]document.Section, 0, len(heads))
	for i, h := range heads {
		if len(h.body) == 0 {
			continue
		}
		title := h.title
		if title == "" {
			title = doc.Name
		}
		sections = append(sections, document.Section{
			Document:  doc.Name,
			DocIndex:  doc.Index,
			Index:     len(sections),
			Title:     title,
			Level:     h.level,
			StartPage: lines[h.start].page,
			EndPage:   endPage(heads, i, lines),
			Body:      strings.Join(h.body, "\n"),
		})
	}
	if len(sections) == 0 {
		// Only headings and no body text: keep the document as one section.
		return []document.Section{wholeDocument(doc, lines)}
	}
	return sections
}

func wholeDocument(doc *document.Document, lines []line) document.Section {
	texts := make([]string, len(lines))
	for i, ln := range lines {
		texts[i] = ln.text
	}
	title := oneLine(doc.FirstLine())
	if title == "" {
		title = doc.Name
	}
	return document.Section{
		Document:  doc.Name,
		DocIndex:  doc.Index,
		Title:     title,
		Level:     1,
		StartPage: lines[0].page,
		EndPage:   lines[len(lines)-1].page,
		Body:      strings.Join(texts, "\n"),
	}
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.SizeRatio <= 0 {
		opts.SizeRatio = def.SizeRatio
	}
	if opts.GapRatio <= 0 {
		opts.GapRatio = def.GapRatio
	}
	if opts.MaxHeadingRunes <= 0 {
		opts.MaxHeadingRunes = def.MaxHeadingRunes
	}
	return opts
}

func flatten(doc *document.Document) []line {
	var lines []line
	for _, p := range doc.Pages {
		first := true
		var prevTop float64
		for _, b := range p.Blocks {
			text := strings.TrimSpace(b.Text)
			if text == "" {
				continue
			}
			gap := -1.0
			if !first {
				gap = b.Top - prevTop
			}
			lines = append(lines, line{page: p.Number, firstOnPg: first, gapAbove: gap, block: b, text: text})
			prevTop = b.Top
			first = false
		}
	}
	return lines
}

// BodySize returns the document's body text size: the font size (in half
// point buckets) covering the most characters, ties going to the smaller size.
func BodySize(doc *document.Document) float64 {
	chars := make(map[float64]int)
	for _, p := range doc.Pages {
		for _, b := range p.Blocks {
			if n := utf8.RuneCountInString(strings.TrimSpace(b.Text)); n > 0 {
				chars[bucket(b.FontSize)] += n
			}
		}
	}
	size, best := 0.0, -1
	for s, n := range chars {
		if n > best || (n == best && s < size) {
			size, best = s, n
		}
	}
	return size
}

func medianGap(lines []line) float64 {
	var gaps []float64
	for _, ln := range lines {
		if ln.gapAbove > 0 {
			gaps = append(gaps, ln.gapAbove)
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	sort.Float64s(gaps)
	mid := len(gaps) / 2
	if len(gaps)%2 == 0 {
		return (gaps[mid-1] + gaps[mid]) / 2
	}
	return gaps[mid]
}

func isHeading(lines []line, i int, body, median float64, opts Options) bool {
	ln := lines[i]
	if bucket(ln.block.FontSize) > body*opts.SizeRatio {
		return true
	}
	if !ln.block.Bold || utf8.RuneCountInString(ln.text) > opts.MaxHeadingRunes {
		return false
	}
	return separated(lines, i, median, opts)
}

// separated reports whether a bold block stands apart from its neighbours:
// first on its page, preceded by a wider than usual gap, or following
// non-bold text.
func separated(lines []line, i int, median float64, opts Options) bool {
	ln := lines[i]
	if ln.firstOnPg {
		return true
	}
	if median > 0 && ln.gapAbove > opts.GapRatio*median {
		return true
	}
	return !lines[i-1].block.Bold
}

var (
	decimalHeading = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3})*)[.)]?\s+(.+)$`)
	romanHeading   = regexp.MustCompile(`^[IVXLCDMivxlcdm]+[.)]\s+(.+)$`)
	letterHeading  = regexp.MustCompile(`^([A-Za-z])[.)]\s+(.+)$`)
)

// numbering returns the outline depth of a line's leading number and the text
// after it, or 0 when the line is not numbered. "2.1 Sampling" has depth 2,
// roman numerals depth 1 and letters depth 2.
func numbering(text string) (int, string) {
	if strings.Contains(text, "\n") {
		return 0, ""
	}
	if m := decimalHeading.FindStringSubmatch(text); m != nil {
		return strings.Count(m[1], ".") + 1, m[2]
	}
	if m := letterHeading.FindStringSubmatch(text); m != nil && !strings.ContainsAny(m[1], "IVXivx") {
		return 2, m[2]
	}
	if m := romanHeading.FindStringSubmatch(text); m != nil {
		return 1, m[1]
	}
	return 0, ""
}

// numberDepth is the numbering depth of a line that reads as a heading: the
// title must start upper-case and must not end like a sentence.
func numberDepth(text string) int {
	depth, rest := numbering(text)
	if depth == 0 {
		return 0
	}
	first, _ := utf8.DecodeRuneInString(rest)
	last, _ := utf8.DecodeLastRuneInString(rest)
	if !unicode.IsUpper(first) || strings.ContainsRune(".,;", last) {
		return 0
	}
	return depth
}

func listDepth(text string) int {
	d, _ := numbering(text)
	return d
}

// isNumberedHeading reports whether a body-styled line is a numbered heading:
// short, numbered, not one item of a list, and not the continuation of a
// sentence. A neighbour numbered at the same depth makes it a list item unless
// it is first on its page or preceded by a wide gap. isHead holds the
// decisions for lines before i.
func isNumberedHeading(lines []line, i int, isHead []bool, median float64, opts Options) bool {
	ln := lines[i]
	d := numberDepth(ln.text)
	if d == 0 || utf8.RuneCountInString(ln.text) > opts.MaxHeadingRunes {
		return false
	}
	if ln.firstOnPg || (median > 0 && ln.gapAbove > opts.GapRatio*median) {
		return true
	}
	prev := lines[i-1]
	if !isHead[i-1] && !endsSentence(prev.text) {
		return false
	}
	if listDepth(prev.text) == d {
		return false
	}
	if i+1 < len(lines) && !lines[i+1].firstOnPg && listDepth(lines[i+1].text) == d {
		return false
	}
	return true
}

func endsSentence(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return strings.ContainsRune(".!?:", r)
}

// bandsAbove counts the distinct heading sizes larger than size.
func bandsAbove(headSizes []float64, size float64) int {
	b := bucket(size)
	seen := make(map[float64]bool)
	for _, s := range headSizes {
		if s > b {
			seen[s] = true
		}
	}
	return len(seen)
}

// levelBands maps each distinct heading size to a level, largest first.
func levelBands(sizes []float64) map[float64]int {
	uniq := make(map[float64]struct{}, len(sizes))
	for _, s := range sizes {
		uniq[s] = struct{}{}
	}
	ordered := make([]float64, 0, len(uniq))
	for s := range uniq {
		ordered = append(ordered, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ordered)))
	levels := make(map[float64]int, len(ordered))
	for i, s := range ordered {
		levels[s] = i + 1
	}
	return levels
}

// endPage is the page of the last line before the next heading at the same or
// a more prominent level, or the document's last page.
func endPage(heads []head, i int, lines []line) int {
	for j := i + 1; j < len(heads); j++ {
		if heads[j].level <= heads[i].level {
			return lines[heads[j].start-1].page
		}
	}
	return lines[len(lines)-1].page
}

func bucket(size float64) float64 {
	return math.Round(size*2) / 2
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
