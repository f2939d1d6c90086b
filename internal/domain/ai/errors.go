package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AI provider failure. Handlers and the pipeline
// branch on the kind, never on error message text.
type ErrorKind string

const (
	KindAuthentication ErrorKind = "AUTHENTICATION"
	KindRateLimit      ErrorKind = "RATE_LIMIT"
	KindQuotaExceeded  ErrorKind = "QUOTA_EXCEEDED"
	KindTimeout        ErrorKind = "TIMEOUT"
	KindConnection     ErrorKind = "CONNECTION"
	KindServer         ErrorKind = "SERVER"
	KindUnknown        ErrorKind = "UNKNOWN"
)

// Retryable reports whether a failure of this kind is safe to retry.
// Authentication and quota failures never resolve by retrying.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimit, KindTimeout, KindConnection, KindServer:
		return true
	default:
		return false
	}
}

// Error is a classified AI provider failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a classified kind.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from an error chain. Unclassified errors
// report KindUnknown.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}
