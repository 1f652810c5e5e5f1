package base

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConfiguration reports a missing or malformed project key or base name.
	ErrConfiguration = errors.New("base: invalid configuration")
	// ErrEmptyKey is returned when an operation requiring a key receives "".
	ErrEmptyKey = errors.New("base: key cannot be empty")
	// ErrConflictingOptions is returned when both ExpireIn and ExpireAt are set.
	ErrConflictingOptions = errors.New("base: cannot set both a relative and an absolute expiration")
	// ErrInvalidOptionType is returned when an expiry option has an unsupported type.
	ErrInvalidOptionType = errors.New("base: invalid option type")
	// ErrInternalProcessing is returned when the server accepted a put but
	// processed none of its items.
	ErrInternalProcessing = errors.New("base: failed to save item because of internal processing")
	// ErrProtocol is returned when a successful response cannot be used.
	ErrProtocol = errors.New("base: unusable response")

	// ErrNotFound matches a RemoteError with status 404. Get and Delete never
	// return it.
	ErrNotFound = errors.New("base: not found")
	// ErrConflict matches a RemoteError with status 409, e.g. Insert on an
	// existing key.
	ErrConflict = errors.New("base: key already exists")
)

const unknownRemoteError = "unknown error"

// RemoteError is a non-2xx response classified by status and the first
// server-reported message.
type RemoteError struct {
	StatusCode int
	Message    string
}

// NewRemoteError builds a RemoteError, substituting a generic message when the
// server reported none.
func NewRemoteError(status int, message string) *RemoteError {
	if message == "" {
		message = unknownRemoteError
	}
	return &RemoteError{StatusCode: status, Message: message}
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("base: remote error: %d | %s", e.StatusCode, e.Message)
}

// Is lets callers match well-known statuses with errors.Is.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	}
	return false
}

// TransportError wraps network and decoding failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("base: transport error: %v", e.Err)
	}
	return fmt.Sprintf("base: %s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func isNotFound(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.StatusCode == http.StatusNotFound
}
