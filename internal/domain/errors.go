package domain

import (
	"errors"
	"fmt"
)

// Rejection causes for InvalidRecordError.
var (
	ErrMissingID         = errors.New("missing GLOBALEVENTID")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidTimestamp  = errors.New("invalid event date")
)

// ErrEmbeddingUnavailable marks a recoverable embedding failure: the event
// is persisted without a vector and a later re-ingestion may backfill it.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// InvalidRecordError reports a raw record that can never normalize
// successfully. It is permanent for that record: skip and log, don't retry.
type InvalidRecordError struct {
	ID    string // GLOBALEVENTID if present, "" otherwise
	Field string
	Err   error
}

func (e *InvalidRecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid record %q: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("invalid record %q: field %s: %v", e.ID, e.Field, e.Err)
}

func (e *InvalidRecordError) Unwrap() error { return e.Err }

// FetchError reports a transient feed failure. Callers retry with backoff
// up to a bounded attempt count.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteResult reports the outcome of upserting one event. A store write
// failure is retryable per record; the batch around it continues.
type WriteResult struct {
	ID  string
	Err error
}
