package errors

import (
	"errors"
	"fmt"
)

// IndexingFailure records a single value that could not be indexed.
// Value holds the offending value as seen by the key mapper.
type IndexingFailure struct {
	Index string
	Value any
	Err   error
}

// Error implements the error interface
func (f *IndexingFailure) Error() string {
	return fmt.Sprintf("index %q: generating keys for %v: %v", f.Index, f.Value, f.Err)
}

// Unwrap returns the key mapper's error
func (f *IndexingFailure) Unwrap() error {
	return f.Err
}

// Is reports ErrIndexingFailed so callers can match any indexing failure.
func (f *IndexingFailure) Is(target error) bool {
	return target == ErrIndexingFailed
}

// IndexError aggregates every failure collected while indexing a batch.
// Sibling values that indexed successfully remain indexed.
type IndexError struct {
	Failures []*IndexingFailure
}

// Error implements the error interface
func (e *IndexError) Error() string {
	if len(e.Failures) == 1 {
		return "1 error occurred during indexing"
	}
	return fmt.Sprintf("%d errors occurred during indexing", len(e.Failures))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *IndexError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Is reports ErrIndexingFailed for non-empty aggregates.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexingFailed && len(e.Failures) > 0
}

// CollectIndexing merges the failures carried by errs into one IndexError.
// Nil errors are skipped; IndexError values are flattened. Returns nil when
// nothing failed.
func CollectIndexing(errs ...error) error {
	var failures []*IndexingFailure
	for _, err := range errs {
		if err == nil {
			continue
		}

		var agg *IndexError
		if errors.As(err, &agg) {
			failures = append(failures, agg.Failures...)
			continue
		}

		var single *IndexingFailure
		if errors.As(err, &single) {
			failures = append(failures, single)
			continue
		}

		failures = append(failures, &IndexingFailure{Err: err})
	}

	if len(failures) == 0 {
		return nil
	}
	return &IndexError{Failures: failures}
}
