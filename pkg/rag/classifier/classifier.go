package classifier

import (
	"context"
	"fmt"

	"marketplace-assistant-be/pkg/store"
)

// Classifier infers the current stage from the transcript.
// Implementations are fallible oracles, callers must not assume purity.
type Classifier interface {
	Classify(ctx context.Context, history []store.Turn, visited []store.Stage) (store.Stage, error)
}

// ClassificationError means the backend could not produce a stage at all
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("stage classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// UnrecognizedStageError carries a reply that is not an enumerated stage name
type UnrecognizedStageError struct {
	Raw string
}

func (e *UnrecognizedStageError) Error() string {
	return fmt.Sprintf("classifier replied with unrecognized stage %q", e.Raw)
}
