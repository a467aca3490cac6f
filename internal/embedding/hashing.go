package embedding

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/bbalet/stopwords"
	"github.com/cespare/xxhash/v2"
)

// DefaultDimension is the vector size of the hashing engine.
const DefaultDimension = 384

// Feature weights relative to a word unigram.
const (
	bigramWeight  = 0.7
	trigramWeight = 0.3
)

// Hashing is an offline engine using signed feature hashing over word
// unigrams, word bigrams and character trigrams.
type Hashing struct {
	dim int
}

// NewHashing returns a hashing engine with dim buckets (DefaultDimension when
// dim <= 0).
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Hashing{dim: dim}
}

func (h *Hashing) Name() string   { return "hashing" }
func (h *Hashing) Dimension() int { return h.dim }

func (h *Hashing) Embed(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CapabilityError{Engine: h.Name(), Err: err}
	}
	return h.vector(text), nil
}

func (h *Hashing) EmbedMany(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, &CapabilityError{Engine: h.Name(), Err: err}
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *Hashing) vector(text string) Vector {
	v := make(Vector, h.dim)
	if strings.TrimSpace(text) == "" {
		return v
	}
	counts := make(map[string]float64)
	words := Tokenize(stopwords.CleanString(text, "en", false))
	for i, w := range words {
		counts["w:"+w]++
		if i > 0 {
			counts["b:"+words[i-1]+" "+w] += bigramWeight
		}
		padded := []rune(" " + w + " ")
		for j := 0; j+3 <= len(padded); j++ {
			counts["c:"+string(padded[j:j+3])] += trigramWeight
		}
	}
	// Buckets are summed in sorted feature order; equal text gives
	// bitwise-equal vectors.
	feats := make([]string, 0, len(counts))
	for feat := range counts {
		feats = append(feats, feat)
	}
	sort.Strings(feats)
	acc := make([]float64, h.dim)
	for _, feat := range feats {
		sum := xxhash.Sum64String(feat)
		weight := 1 + math.Log1p(counts[feat])
		if sum>>63 == 1 {
			weight = -weight
		}
		acc[sum%uint64(h.dim)] += weight
	}
	for i, x := range acc {
		v[i] = float32(x)
	}
	normalize(v)
	return v
}

// Tokenize lower-cases text and splits it into runs of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
