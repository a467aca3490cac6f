package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docrank/internal/output"
)

// RunStatus represents the state of a ranking run.
type RunStatus string

const (
	StatusQueued    RunStatus = "queued"
	StatusParsing   RunStatus = "parsing"
	StatusRanking   RunStatus = "ranking"
	StatusCompleted RunStatus = "completed"
	StatusPartial   RunStatus = "partial"
	StatusFailed    RunStatus = "failed"
)

// Exclusion is a document left out of a run.
type Exclusion struct {
	Document string `json:"document"`
	Stage    string `json:"stage"`
	Error    string `json:"error"`
}

// DroppedSection is a section that could not be scored.
type DroppedSection struct {
	Document string `json:"document"`
	Title    string `json:"section_title"`
	Page     int    `json:"page_number"`
	Error    string `json:"error"`
}

// Progress tracks processing progress.
type Progress struct {
	DocumentsTotal   int              `json:"documents_total"`
	DocumentsParsed  int              `json:"documents_parsed"`
	SectionsTotal    int              `json:"sections_total"`
	SectionsSelected int              `json:"sections_selected"`
	Excluded         []Exclusion      `json:"excluded"`
	Dropped          []DroppedSection `json:"dropped"`
	Errors           []string         `json:"errors"`
}

// Run tracks the state of a single ranking run.
type Run struct {
	mu sync.Mutex

	ID     string    `json:"run_id"`
	Status RunStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	result *output.Record
}

// NewRun returns a queued run with a fresh id.
func NewRun() *Run {
	now := time.Now()
	return &Run{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status RunStatus, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.Phase = phase
	r.UpdatedAt = time.Now()
}

// AddError records an error.
func (r *Run) AddError(err string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.Errors = append(r.Progress.Errors, err)
	r.UpdatedAt = time.Now()
}

// Exclude records a document left out of the run.
func (r *Run) Exclude(e *DocumentError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.Excluded = append(r.Progress.Excluded, Exclusion{
		Document: e.Document,
		Stage:    e.Stage,
		Error:    e.Err.Error(),
	})
	r.UpdatedAt = time.Now()
}

// AddDropped records sections that could not be embedded.
func (r *Run) AddDropped(d ...DroppedSection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.Dropped = append(r.Progress.Dropped, d...)
	r.UpdatedAt = time.Now()
}

// SetCounts records document and section totals.
func (r *Run) SetCounts(docsTotal, docsParsed, sections int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Progress.DocumentsTotal = docsTotal
	r.Progress.DocumentsParsed = docsParsed
	r.Progress.SectionsTotal = sections
	r.UpdatedAt = time.Now()
}

// Complete stores the output record and marks the run completed, or partial
// when documents were excluded or sections dropped.
func (r *Run) Complete(rec *output.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = rec
	r.Progress.SectionsSelected = len(rec.ExtractedSections)
	r.Status = StatusCompleted
	if len(r.Progress.Excluded) > 0 || len(r.Progress.Dropped) > 0 {
		r.Status = StatusPartial
	}
	r.Phase = "done"
	r.UpdatedAt = time.Now()
}

// Result returns the output record of a finished run.
func (r *Run) Result() *output.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string         `json:"run_id"`
	Status    RunStatus      `json:"status"`
	Phase     string         `json:"phase"`
	Progress  Progress       `json:"progress"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Result    *output.Record `json:"result,omitempty"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunSnapshot{
		ID:     r.ID,
		Status: r.Status,
		Phase:  r.Phase,
		Progress: Progress{
			DocumentsTotal:   r.Progress.DocumentsTotal,
			DocumentsParsed:  r.Progress.DocumentsParsed,
			SectionsTotal:    r.Progress.SectionsTotal,
			SectionsSelected: r.Progress.SectionsSelected,
			Excluded:         append([]Exclusion{}, r.Progress.Excluded...),
			Dropped:          append([]DroppedSection{}, r.Progress.Dropped...),
			Errors:           append([]string{}, r.Progress.Errors...),
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Result:    r.result,
	}
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Len returns the number of tracked runs.
func (s *RunStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Cleanup removes expired runs.
func (s *RunStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, run := range s.runs {
		run.mu.Lock()
		updated := run.UpdatedAt
		run.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.runs, id)
		}
	}
}

// StartCleanup evicts expired runs every interval until ctx is done.
func (s *RunStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}
