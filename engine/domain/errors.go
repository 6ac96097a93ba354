package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine.
var (
	// ErrIndexNotBuilt means the persisted index or metadata artifacts are
	// missing. Callers should surface the remediation text to the operator.
	ErrIndexNotBuilt = errors.New("index not built: run the indexer build step first")

	// ErrCorruptArtifacts means the persisted index and metadata do not form a
	// valid pair. Unlike ErrIndexNotBuilt this is not fixed by just running a
	// build; the operator should find out how the artifacts diverged first.
	ErrCorruptArtifacts = errors.New("corrupt artifacts: index and metadata disagree")

	// ErrEmptyCorpus aborts an offline build invoked over zero documents.
	ErrEmptyCorpus = errors.New("empty corpus: no source documents found")

	// ErrMalformedDocument marks a document that failed text extraction
	// entirely. The build pipeline skips it and continues.
	ErrMalformedDocument = errors.New("malformed source document")

	// ErrAnswererUnavailable covers a missing credential or a failed call to
	// the external answerer. Retrieval and link matching proceed regardless;
	// only the narrative answer is replaced by the error text.
	ErrAnswererUnavailable = errors.New("answerer unavailable")
)

// Profile validation sentinels.
var (
	ErrUnsupportedState    = errors.New("unsupported state")
	ErrAgeOutOfRange       = errors.New("age out of range")
	ErrNegativeIncome      = errors.New("negative income")
	ErrUnknownCategory     = errors.New("unknown category")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
