package errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ExtractionError reports a strategy-level extraction failure that has no
// defined fallback (for example a structurally invalid payload).
type ExtractionError struct {
	Kind string
	Op   string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s/%s): %v", e.Kind, e.Op, e.Err)
}
func (e *ExtractionError) Unwrap() error { return e.Err }

// UnsupportedFormatError rejects legacy binary formats with the modern
// replacement named in the message.
type UnsupportedFormatError struct {
	Extension  string
	Suggestion string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported legacy format %q: please convert to %s and re-upload", e.Extension, e.Suggestion)
}

// TimeoutError marks a network or transcription call that exceeded its bound.
type TimeoutError struct {
	Op    string
	Limit time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s: %v", e.Op, e.Limit, e.Err)
}
func (e *TimeoutError) Unwrap() error { return e.Err }

// UploadError marks a blob store write failure.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("blob upload %q: %v", e.Key, e.Err)
}
func (e *UploadError) Unwrap() error { return e.Err }

// PersistenceError marks a store-level write failure, including constraint
// violations.
type PersistenceError struct {
	Entity string
	Op     string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s (%s): %v", e.Entity, e.Op, e.Err)
}
func (e *PersistenceError) Unwrap() error { return e.Err }

// NoSourcesError means generation was requested for a topic with no sources.
type NoSourcesError struct {
	TopicID uuid.UUID
}

func (e *NoSourcesError) Error() string {
	return fmt.Sprintf("topic %s has no sources to generate from", e.TopicID)
}

// EmptyIntersectionError means none of the requested source ids belong to the
// topic.
type EmptyIntersectionError struct {
	TopicID   uuid.UUID
	Requested []uuid.UUID
}

func (e *EmptyIntersectionError) Error() string {
	return fmt.Sprintf("none of the %d requested sources belong to topic %s", len(e.Requested), e.TopicID)
}

// GenerationError marks a malformed or failed completion-service response.
type GenerationError struct {
	GenerationID uuid.UUID
	Reason       string
	Err          error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation %s: %s: %v", e.GenerationID, e.Reason, e.Err)
	}
	return fmt.Sprintf("generation %s: %s", e.GenerationID, e.Reason)
}
func (e *GenerationError) Unwrap() error { return e.Err }

// QuotaError surfaces completion-service rate or credit limits so callers can
// back off instead of retrying immediately.
type QuotaError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("completion service quota exceeded (retry after %s): %v", e.RetryAfter, e.Err)
}
func (e *QuotaError) Unwrap() error { return e.Err }

func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

func IsNoSources(err error) bool {
	var ns *NoSourcesError
	var ei *EmptyIntersectionError
	return errors.As(err, &ns) || errors.As(err, &ei)
}
