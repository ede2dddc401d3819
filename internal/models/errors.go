package models

import (
	"errors"
	"fmt"
)

// ErrVerseNotFound is returned when no rows exist for a verse id
var ErrVerseNotFound = errors.New("verse not found")

// MalformedInputError reports a source record missing its identity fields
type MalformedInputError struct {
	TextID string
	// Dataset names the translation file a record came from; empty for canonical records
	Dataset string
	Index   int
	Reason  string
}

func (e *MalformedInputError) Error() string {
	if e.Dataset != "" {
		return fmt.Sprintf("malformed verse record %s %s[%d]: %s", e.TextID, e.Dataset, e.Index, e.Reason)
	}
	return fmt.Sprintf("malformed verse record %s[%d]: %s", e.TextID, e.Index, e.Reason)
}

// EmbeddingServiceError reports a failed or unusable embedding model call
type EmbeddingServiceError struct {
	Attempts int
	Err      error
}

func (e *EmbeddingServiceError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("embedding service failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("embedding service failed: %v", e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// IndexWriteError reports a single document rejected by the index
type IndexWriteError struct {
	DocID string
	Err   error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index write %s: %v", e.DocID, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }

// IndexTransportError reports that the index rejected or never received a
// whole batch. It aborts an ingestion run.
type IndexTransportError struct {
	Err error
}

func (e *IndexTransportError) Error() string {
	return fmt.Sprintf("index unreachable: %v", e.Err)
}

func (e *IndexTransportError) Unwrap() error { return e.Err }

// InvalidQueryError reports a query rejected before any remote call
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return "invalid query: " + e.Reason
}

// RetrievalServiceError wraps any failure while answering a query
type RetrievalServiceError struct {
	Err error
}

func (e *RetrievalServiceError) Error() string {
	return fmt.Sprintf("retrieval failed: %v", e.Err)
}

func (e *RetrievalServiceError) Unwrap() error { return e.Err }
