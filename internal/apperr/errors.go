// Package apperr defines the error taxonomy shared by the pipeline stages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies where in the run a failure originated.
type Kind string

const (
	KindFetch               Kind = "fetch"
	KindAlignment           Kind = "alignment"
	KindInsufficientHistory Kind = "insufficient_history"
	KindNumerical           Kind = "numerical"
	KindConfig              Kind = "config"
	KindOutput              Kind = "output"
)

var (
	// ErrInsufficientData is returned when a stage has too few rows for the fit it must perform.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrSingular is returned when a moment or design matrix cannot be inverted.
	ErrSingular = errors.New("singular matrix")
	// ErrNotPositiveDefinite is returned when a covariance matrix has no Cholesky factor.
	ErrNotPositiveDefinite = errors.New("matrix not positive definite")
	// ErrGap is returned when a model needs consecutive months and the sample skips one.
	ErrGap = errors.New("gap in monthly sample")
)

// StageError records the pipeline stage at which a run stopped.
type StageError struct {
	Kind  Kind
	Stage string
	Cause error
}

// Error implements the error interface
func (e *StageError) Error() string {
	if e == nil {
		return "unknown stage error"
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Stage, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Stage)
}

// Unwrap allows errors.Is and errors.As to reach the cause
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Wrap returns a StageError for cause, or nil when cause is nil.
func Wrap(kind Kind, stage string, cause error) error {
	if cause == nil {
		return nil
	}
	return &StageError{Kind: kind, Stage: stage, Cause: cause}
}

// Classify picks a Kind for an error raised by a modelling stage.
func Classify(err error, fallback Kind) Kind {
	switch {
	case errors.Is(err, ErrInsufficientData):
		return KindInsufficientHistory
	case errors.Is(err, ErrSingular), errors.Is(err, ErrNotPositiveDefinite):
		return KindNumerical
	case errors.Is(err, ErrGap):
		return KindAlignment
	default:
		return fallback
	}
}
