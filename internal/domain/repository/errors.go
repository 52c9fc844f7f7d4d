package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned by providers that answered but had nothing for the symbol.
	ErrNoData = errors.New("provider returned no data")
	// ErrNoSymbol is returned by symbol-scoped collectors called without a symbol.
	ErrNoSymbol = errors.New("symbol required")
)

// ClassificationError reports that the chart signal could not be produced.
type ClassificationError struct {
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chart classification failed: %s: %v", e.Reason, e.Err)
	}
	return "chart classification failed: " + e.Reason
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// NewClassificationError wraps err as a ClassificationError.
func NewClassificationError(reason string, err error) *ClassificationError {
	return &ClassificationError{Reason: reason, Err: err}
}
