package attendance

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned before any I/O when a required field is
	// missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRemoteStoreFailed marks a failed remote store call. The Adapter
	// demotes itself and retries the call locally.
	ErrRemoteStoreFailed = errors.New("remote store failed")

	// ErrStorageUnavailable is fatal: the local fallback store could not be
	// read or written and there is nothing left to fall back to.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrRecordNotFound is returned when an edit target does not exist.
	ErrRecordNotFound = errors.New("record not found")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// RemoteErrorKind distinguishes transport failures from explicit rejections.
// Both demote the Adapter.
type RemoteErrorKind int

const (
	RemoteTransport RemoteErrorKind = iota
	RemoteRejected
)

func (k RemoteErrorKind) String() string {
	if k == RemoteRejected {
		return "rejected"
	}
	return "transport"
}

// RemoteError is the failure result of a RemoteStore call.
type RemoteError struct {
	Op      string
	Kind    RemoteErrorKind
	Status  int    // HTTP status for rejections, 0 otherwise
	Message string // service error message for rejections
	Err     error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("remote %s %s: %s", e.Op, e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("remote %s %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("remote %s %s", e.Op, e.Kind)
}

func (e *RemoteError) Unwrap() []error { return []error{ErrRemoteStoreFailed, e.Err} }

// StorageError wraps a local store failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("local storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorageUnavailable, e.Err} }

// ValidationError lists offending fields.
type ValidationError struct {
	Fields map[string]string // field -> rule
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, f := range names {
		parts[i] = f + " " + e.Fields[f]
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NotFoundError carries the key that was looked up.
type NotFoundError struct {
	Key      Key
	RemoteID string
}

func (e *NotFoundError) Error() string {
	if e.RemoteID != "" {
		return fmt.Sprintf("record not found: id %s", e.RemoteID)
	}
	return fmt.Sprintf("record not found: %s", e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrRecordNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsUserError reports errors that are the user's to fix.
func IsUserError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrRecordNotFound)
}

// IsFatal reports errors that leave the session without working storage.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
