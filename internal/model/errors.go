package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when no extractor handles the format
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCorruptFile is returned when the bytes cannot be decoded as text
	ErrCorruptFile = errors.New("corrupt file")

	// ErrTextTooShort is returned when the submission is too short to check
	ErrTextTooShort = errors.New("text too short for analysis")

	// ErrBudgetExceeded marks web gathering cut off by its wall-clock budget
	ErrBudgetExceeded = errors.New("web evidence budget exceeded")

	// ErrAlreadyArchived is returned when the corpus already holds the document
	ErrAlreadyArchived = errors.New("document already archived")

	// ErrNotFound is returned when a stored document does not exist
	ErrNotFound = errors.New("document not found")
)

// ExtractionError wraps a failure to turn the submitted file into text.
// It aborts the check for that document.
type ExtractionError struct {
	Format string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError wraps a provider failure for a set of texts
type EmbeddingError struct {
	Provider string
	Count    int
	Err      error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed %d texts with %s: %v", e.Count, e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// FetchError wraps a failure to retrieve one candidate URL
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SearchError wraps an unavailable or failing search backend
type SearchError struct {
	Query string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q: %v", e.Query, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }
