package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

const (
	DefaultOllamaModel   = "all-minilm"
	DefaultOllamaURL     = "http://localhost:11434"
	DefaultBatchSize     = 32
	DefaultOllamaRetries = 2
)

// embedClient is the subset of the langchaingo client used here.
type embedClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Ollama embeds text with a model served by a local Ollama instance.
type Ollama struct {
	client     embedClient
	model      string
	dim        int
	batchSize  int
	maxRetries int
	timeout    time.Duration
	backoff    func(attempt int) time.Duration
	logger     *zap.Logger
}

// NewOllama connects to the server at cfg.BaseURL. The model must produce
// vectors of cfg.Dimension components.
func NewOllama(cfg Config, logger *zap.Logger) (*Ollama, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	llm, err := ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("init ollama client: %w", err)
	}
	return newOllama(llm, cfg, logger), nil
}

func newOllama(client embedClient, cfg Config, logger *zap.Logger) *Ollama {
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ollama{
		client:     client,
		model:      cfg.Model,
		dim:        cfg.Dimension,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		timeout:    cfg.Timeout,
		backoff:    Backoff,
		logger:     logger.With(zap.String("component", "embedding"), zap.String("model", cfg.Model)),
	}
}

func (o *Ollama) Name() string   { return "ollama:" + o.model }
func (o *Ollama) Dimension() int { return o.dim }

func (o *Ollama) Embed(ctx context.Context, text string) (Vector, error) {
	vs, err := o.EmbedMany(ctx, []string{text})
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		return nil, &CapabilityError{Engine: o.Name(), Err: batchErr.Failed[0]}
	}
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (o *Ollama) EmbedMany(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	var pending []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = make(Vector, o.dim)
			continue
		}
		pending = append(pending, i)
	}

	failed := make(map[int]error)
	for start := 0; start < len(pending); start += o.batchSize {
		idx := pending[start:min(start+o.batchSize, len(pending))]
		batch := make([]string, len(idx))
		for j, i := range idx {
			batch[j] = texts[i]
		}

		vecs, err := o.call(ctx, batch)
		if err == nil {
			for j, i := range idx {
				out[i] = vecs[j]
			}
			continue
		}
		var capErr *CapabilityError
		if errors.As(err, &capErr) {
			return nil, err
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return nil, &CapabilityError{Engine: o.Name(), Err: err}
		}

		// Isolate the failing items with one request each; the batch
		// already used up the retries.
		o.logger.Warn("embedding batch failed, retrying per item",
			zap.Int("batch_size", len(idx)),
			zap.Error(err),
		)
		chunk := &BatchError{Total: len(idx), Failed: make(map[int]error)}
		for j, i := range idx {
			one, itemErr := o.attempt(ctx, batch[j:j+1])
			if errors.As(itemErr, &capErr) {
				return nil, itemErr
			}
			if itemErr != nil {
				chunk.Failed[j] = itemErr
				failed[i] = itemErr
				continue
			}
			out[i] = one[0]
		}
		if len(idx) > 1 && chunk.AllFailed() && sameCause(chunk.Failed) {
			return nil, &CapabilityError{Engine: o.Name(), Err: err}
		}
	}

	if len(failed) > 0 {
		return out, &BatchError{Total: len(texts), Failed: failed}
	}
	return out, nil
}

// call sends one request with retry. Context cancellation and vectors of the
// wrong size are capability failures; anything else is returned as is.
func (o *Ollama) call(ctx context.Context, batch []string) ([]Vector, error) {
	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &CapabilityError{Engine: o.Name(), Err: ctx.Err()}
			case <-time.After(o.backoff(attempt - 1)):
			}
		}
		vecs, err := o.attempt(ctx, batch)
		if err == nil {
			return vecs, nil
		}
		var capErr *CapabilityError
		if errors.As(err, &capErr) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// attempt sends one request without retry.
func (o *Ollama) attempt(ctx context.Context, batch []string) ([]Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CapabilityError{Engine: o.Name(), Err: err}
	}
	raw, err := o.request(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(batch) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(raw), len(batch))
	}
	vecs := make([]Vector, len(raw))
	for i, r := range raw {
		if len(r) != o.dim {
			return nil, &CapabilityError{
				Engine: o.Name(),
				Err:    fmt.Errorf("model returned %d dimensions, configured %d", len(r), o.dim),
			}
		}
		vecs[i] = Vector(r)
	}
	return vecs, nil
}

// sameCause reports whether every error in failed has the same message.
func sameCause(failed map[int]error) bool {
	var msg string
	for _, err := range failed {
		if msg == "" {
			msg = err.Error()
		} else if err.Error() != msg {
			return false
		}
	}
	return true
}

func (o *Ollama) request(ctx context.Context, batch []string) ([][]float32, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.client.CreateEmbedding(ctx, batch)
}
