package pipeline

import (
	"fmt"
)

// DocumentError is an extraction failure for one uploaded document. The
// rest of the request carries on without it.
type DocumentError struct {
	Source string
	Err    error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s: %v", e.Source, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// GenerationError is a failed generation call for one unit, after retries.
type GenerationError struct {
	Source   string
	Index    int
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("unit %d (%s): generation failed after %d attempt(s): %v", e.Index, e.Source, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
