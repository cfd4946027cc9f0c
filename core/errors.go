package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	// ErrBackend is the base error for completion backend failures. Fatal to the request.
	ErrBackend = errors.New("backend error")

	// ErrEmbedding indicates the embedding backend failed to embed a text.
	ErrEmbedding = errors.New("embedding error")

	// ErrIndex indicates a vector index failure (dimension mismatch, duplicate id).
	ErrIndex = errors.New("index error")

	// ErrTool is the base error for tool invocation failures.
	ErrTool = errors.New("tool error")

	// ErrUnknownTool indicates a tool call named an unregistered capability.
	ErrUnknownTool = fmt.Errorf("%w: unknown tool", ErrTool)

	// ErrCancelled is returned when the prompt loop observed a cancellation.
	ErrCancelled = errors.New("request cancelled")

	// ErrMaxTurnsExceeded is returned when the configured turn budget is exhausted.
	ErrMaxTurnsExceeded = errors.New("max turns exceeded")

	// ErrInvalidConfig indicates an agent or backend configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidHistory indicates the caller supplied an ill-formed conversation.
	ErrInvalidHistory = errors.New("invalid history")
)

// BackendErrorKind categorizes completion backend failures.
type BackendErrorKind string

const (
	BackendErrorNetwork           BackendErrorKind = "network"
	BackendErrorAuth              BackendErrorKind = "auth"
	BackendErrorRateLimit         BackendErrorKind = "rate_limit"
	BackendErrorMalformedResponse BackendErrorKind = "malformed_response"
	BackendErrorUnknown           BackendErrorKind = "unknown"
)

// BackendError provides context for completion backend failures.
// Use errors.As to extract it from a wrapped error chain.
type BackendError struct {
	Kind    BackendErrorKind
	Message string
	Err     error
}

// NewBackendError wraps err as a BackendError of the given kind.
func NewBackendError(kind BackendErrorKind, msg string, err error) *BackendError {
	return &BackendError{Kind: kind, Message: msg, Err: err}
}

func (e *BackendError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("backend error (%s): %s", e.Kind, msg)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Is reports ErrBackend membership so callers can test the category without errors.As.
func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// BackendErrorKindFromStatus maps an HTTP status code reported by a provider
// SDK onto a BackendErrorKind.
func BackendErrorKindFromStatus(status int) BackendErrorKind {
	switch {
	case status == 401 || status == 403:
		return BackendErrorAuth
	case status == 429:
		return BackendErrorRateLimit
	case status >= 500:
		return BackendErrorNetwork
	case status >= 400:
		return BackendErrorMalformedResponse
	default:
		return BackendErrorUnknown
	}
}

// AsBackendError returns err unchanged when it already carries a BackendError,
// otherwise wraps it with BackendErrorUnknown.
func AsBackendError(err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return NewBackendError(BackendErrorUnknown, "", err)
}
