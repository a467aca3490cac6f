package rank

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgallion1/docrank/internal/document"
	"github.com/dgallion1/docrank/internal/embedding"
	"github.com/dgallion1/docrank/internal/textutil"
)

// Options tunes scoring and selection.
type Options struct {
	TopK             int
	MaxExcerptTokens int // Estimated tokens of body text embedded per section
	TitleTermBonus   float64
	BodyTermBonus    float64
	MaxBoost         float64
}

func DefaultOptions() Options {
	return Options{
		TopK:             5,
		MaxExcerptTokens: 256,
		TitleTermBonus:   0.03,
		BodyTermBonus:    0.015,
		MaxBoost:         0.1,
	}
}

// ScoredSection is a section with its scores. Rank is set only on selected
// sections.
type ScoredSection struct {
	Section      document.Section
	RawScore     float64
	Boost        float64
	BoostedScore float64
	Rank         int
}

// Dropped is a section that could not be embedded.
type Dropped struct {
	Section document.Section
	Err     error
}

// Result is the outcome of one ranking pass.
type Result struct {
	Selected   []ScoredSection
	Dropped    []Dropped
	Candidates int
}

// Ranker scores sections with an embedding engine.
type Ranker struct {
	engine   embedding.Engine
	opts     Options
	keywords func(Query) []string
}

// New returns a Ranker. Non-positive TopK and MaxExcerptTokens take their
// defaults, as do the boost weights when all three are zero.
func New(engine embedding.Engine, opts Options) *Ranker {
	def := DefaultOptions()
	if opts.TopK <= 0 {
		opts.TopK = def.TopK
	}
	if opts.MaxExcerptTokens <= 0 {
		opts.MaxExcerptTokens = def.MaxExcerptTokens
	}
	if opts.TitleTermBonus == 0 && opts.BodyTermBonus == 0 && opts.MaxBoost == 0 {
		opts.TitleTermBonus = def.TitleTermBonus
		opts.BodyTermBonus = def.BodyTermBonus
		opts.MaxBoost = def.MaxBoost
	}
	if opts.TitleTermBonus < 0 {
		opts.TitleTermBonus = 0
	}
	if opts.BodyTermBonus < 0 {
		opts.BodyTermBonus = 0
	}
	if opts.MaxBoost < 0 {
		opts.MaxBoost = 0
	}
	return &Ranker{engine: engine, opts: opts, keywords: Keywords}
}

// Options returns the effective options.
func (r *Ranker) Options() Options { return r.opts }

// ScoringText is the text embedded for a section: the title twice followed by
// a bounded excerpt of the body.
func ScoringText(s document.Section, maxTokens int) string {
	return s.Title + " " + s.Title + " " + textutil.Excerpt(s.Body, maxTokens)
}

// Rank embeds the query and all sections in one batch, scores and boosts
// them, and selects up to TopK. Sections that fail to embed are dropped; a
// failed query or a batch where every section failed is a
// *embedding.CapabilityError.
func (r *Ranker) Rank(ctx context.Context, sections []document.Section, q Query) (*Result, error) {
	res := &Result{Selected: []ScoredSection{}}
	if len(sections) == 0 {
		return res, nil
	}

	texts := make([]string, 0, len(sections)+1)
	texts = append(texts, q.Text())
	for _, s := range sections {
		texts = append(texts, ScoringText(s, r.opts.MaxExcerptTokens))
	}

	vecs, err := r.engine.EmbedMany(ctx, texts)
	if err != nil {
		var batchErr *embedding.BatchError
		if !errors.As(err, &batchErr) {
			return nil, r.capability(err)
		}
		if qErr, ok := batchErr.Failed[0]; ok {
			return nil, r.capability(fmt.Errorf("embed query: %w", qErr))
		}
		if len(batchErr.Failed) >= len(sections) {
			return nil, r.capability(fmt.Errorf("every section failed to embed: %w", err))
		}
	}
	if len(vecs) != len(texts) {
		return nil, r.capability(fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts)))
	}

	terms := r.keywords(q)
	query := vecs[0]
	scored := make([]ScoredSection, 0, len(sections))
	for i, s := range sections {
		v := vecs[i+1]
		if v == nil {
			res.Dropped = append(res.Dropped, Dropped{Section: s, Err: itemErr(err, i+1)})
			continue
		}
		raw := embedding.Cosine(query, v)
		boost := r.boost(s, terms)
		scored = append(scored, ScoredSection{
			Section:      s,
			RawScore:     raw,
			Boost:        boost,
			BoostedScore: raw + boost,
		})
	}

	res.Candidates = len(scored)
	res.Selected = Select(scored, r.opts.TopK)
	return res, nil
}

func (r *Ranker) capability(err error) error {
	var capErr *embedding.CapabilityError
	if errors.As(err, &capErr) {
		return err
	}
	return &embedding.CapabilityError{Engine: r.engine.Name(), Err: err}
}

func itemErr(err error, i int) error {
	var batchErr *embedding.BatchError
	if errors.As(err, &batchErr) {
		if e := batchErr.Failed[i]; e != nil {
			return e
		}
	}
	return errors.New("no embedding returned")
}

// boost adds a bonus per term found in the title, or failing that in the
// body, clamped to MaxBoost.
func (r *Ranker) boost(s document.Section, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	title := tokenSet(s.Title)
	body := tokenSet(s.Body)
	var b float64
	for _, t := range terms {
		switch {
		case title[t]:
			b += r.opts.TitleTermBonus
		case body[t]:
			b += r.opts.BodyTermBonus
		}
	}
	return min(b, r.opts.MaxBoost)
}

func tokenSet(text string) map[string]bool {
	toks := embedding.Tokenize(text)
	set := make(map[string]bool, len(toks))
	for _, t := range toks {
		set[t] = true
	}
	return set
}

// Select orders sections by boosted score (ties by document order, then
// section order) and accepts up to k of them. A first pass accepts at most
// ceil(k/D) sections per document, D being the number of distinct documents
// among the candidates; a second pass fills the remaining slots in score
// order. Ranks follow acceptance order.
func Select(scored []ScoredSection, k int) []ScoredSection {
	if k <= 0 {
		k = DefaultOptions().TopK
	}
	sorted := make([]ScoredSection, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.BoostedScore != b.BoostedScore {
			return a.BoostedScore > b.BoostedScore
		}
		if a.Section.DocIndex != b.Section.DocIndex {
			return a.Section.DocIndex < b.Section.DocIndex
		}
		return a.Section.Index < b.Section.Index
	})

	docs := make(map[int]int)
	for _, s := range sorted {
		docs[s.Section.DocIndex] = 0
	}
	if len(docs) == 0 {
		return []ScoredSection{}
	}
	perDoc := (k + len(docs) - 1) / len(docs)

	selected := make([]ScoredSection, 0, min(k, len(sorted)))
	taken := make([]bool, len(sorted))
	for i, s := range sorted {
		if len(selected) == k {
			break
		}
		if docs[s.Section.DocIndex] >= perDoc {
			continue
		}
		docs[s.Section.DocIndex]++
		taken[i] = true
		selected = append(selected, s)
	}
	for i, s := range sorted {
		if len(selected) == k {
			break
		}
		if !taken[i] {
			selected = append(selected, s)
		}
	}
	for i := range selected {
		selected[i].Rank = i + 1
	}
	return selected
}
