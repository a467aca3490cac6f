// Package embedding maps text to fixed-length vectors.
//
// Engines are frozen: the same text always produces the same vector, and
// empty text produces the zero vector. An Engine is safe for concurrent use.
package embedding

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgallion1/docrank/internal/config"
)

// Vector is a dense embedding.
type Vector []float32

// Engine turns text into vectors.
type Engine interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) (Vector, error)
	// EmbedMany embeds texts in order. When only some items fail it returns
	// the partial result with nil slots and a *BatchError.
	EmbedMany(ctx context.Context, texts []string) ([]Vector, error)
}

// BatchError reports the items of an EmbedMany call that could not be embedded.
type BatchError struct {
	Total  int
	Failed map[int]error
}

func (e *BatchError) Error() string {
	idx := make([]int, 0, len(e.Failed))
	for i := range e.Failed {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	if len(idx) == 0 {
		return "embedding batch: no failures"
	}
	return fmt.Sprintf("embedding batch: %d of %d items failed (item %d: %v)",
		len(idx), e.Total, idx[0], e.Failed[idx[0]])
}

// AllFailed reports whether no item of the batch succeeded.
func (e *BatchError) AllFailed() bool {
	return e.Total > 0 && len(e.Failed) >= e.Total
}

// CapabilityError means the engine itself is unusable for this run.
type CapabilityError struct {
	Engine string
	Err    error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("embedding engine %s unavailable: %v", e.Engine, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// Config selects and tunes an engine.
type Config struct {
	Backend    string // "hashing" or "ollama"
	Dimension  int
	Model      string
	BaseURL    string
	BatchSize  int
	MaxRetries int
	Timeout    time.Duration // Per request, ollama only
}

// New builds the engine named by cfg.Backend. When stats is non-nil every
// call is timed into it.
func New(cfg Config, logger *zap.Logger, stats *Stats) (Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var eng Engine
	switch strings.ToLower(cfg.Backend) {
	case "", "hashing":
		eng = NewHashing(cfg.Dimension)
	case "ollama":
		o, err := NewOllama(cfg, logger)
		if err != nil {
			return nil, err
		}
		eng = o
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
	if stats != nil {
		eng = Instrument(eng, stats)
	}
	logger.Info("embedding engine ready",
		zap.String("engine", eng.Name()),
		zap.Int("dimension", eng.Dimension()),
	)
	return eng, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero
// norm or the lengths differ.
func Cosine(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func normalize(v Vector) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
}

// FromConfig converts the file and environment settings into an engine Config.
func FromConfig(c config.EmbeddingConfig) Config {
	return Config{
		Backend:    c.Backend,
		Dimension:  c.Dimension,
		Model:      c.Model,
		BaseURL:    c.BaseURL,
		BatchSize:  c.BatchSize,
		MaxRetries: c.MaxRetries,
		Timeout:    c.Timeout,
	}
}
