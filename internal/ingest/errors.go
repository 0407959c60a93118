package ingest

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery marks query construction failures such as an empty source
// or both pattern sets supplied at once. Callers test for it with errors.Is.
var ErrInvalidQuery = errors.New("invalid query")

// PatternError reports a glob pattern that could not be compiled. It fails
// the whole request; no partial compilation is accepted.
type PatternError struct {
	Pattern string
	Err     error
}

func (patternError *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", patternError.Pattern, patternError.Err)
}

func (patternError *PatternError) Unwrap() error {
	return patternError.Err
}

// SourceNotFoundError reports a source string that resolved to neither a
// readable local directory nor a recognizable repository location.
type SourceNotFoundError struct {
	Source string
	Err    error
}

func (notFoundError *SourceNotFoundError) Error() string {
	if notFoundError.Err != nil {
		return fmt.Sprintf("source %q not found: %v", notFoundError.Source, notFoundError.Err)
	}
	return fmt.Sprintf("source %q not found", notFoundError.Source)
}

func (notFoundError *SourceNotFoundError) Unwrap() error {
	return notFoundError.Err
}

// CloneError reports a repository clone that failed or exceeded its bounded
// wait. Timeout discriminates the two outcomes for callers that surface them
// differently.
type CloneError struct {
	URL     string
	Timeout bool
	Err     error
}

func (cloneError *CloneError) Error() string {
	if cloneError.Timeout {
		return fmt.Sprintf("clone of %q timed out: %v", cloneError.URL, cloneError.Err)
	}
	return fmt.Sprintf("clone of %q failed: %v", cloneError.URL, cloneError.Err)
}

func (cloneError *CloneError) Unwrap() error {
	return cloneError.Err
}

// EngineError wraps unexpected failures such as an unreadable traversal root.
// Per-file conditions are recorded on nodes instead and never surface here.
type EngineError struct {
	Stage string
	Err   error
}

func (engineError *EngineError) Error() string {
	return fmt.Sprintf("ingestion %s failed: %v", engineError.Stage, engineError.Err)
}

func (engineError *EngineError) Unwrap() error {
	return engineError.Err
}
