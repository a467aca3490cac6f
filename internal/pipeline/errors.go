package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/docrank/internal/embedding"
)

// ErrNoText marks a document that parsed but contained no text.
var ErrNoText = errors.New("no extractable text")

// InputError is a missing or malformed run input. Nothing is processed.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// DocumentError excludes one document from a run; the run continues.
type DocumentError struct {
	Document string
	Stage    string
	Err      error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s: %s: %v", e.Document, e.Stage, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// BudgetExceeded reports that a run outlived its time budget during Stage.
type BudgetExceeded struct {
	Stage  string
	Budget time.Duration
}

func (e *BudgetExceeded) Error() string {
	return fmt.Sprintf("run budget of %s exceeded during %s", e.Budget, e.Stage)
}

// CapabilityError is the failure of the embedding engine. It is fatal.
type CapabilityError = embedding.CapabilityError
