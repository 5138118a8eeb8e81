// Package domain provides shared domain-level sentinel errors and the error
// taxonomy used by the task router and the integration bridge.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the store rejected a duplicate write (unique key).
var ErrConflict = errors.New("conflict: record already exists")

// Sentinels for each ErrorKind. errors.Is(err, ErrInvalidRequest) is true
// for any *Error of kind KindInvalidRequest.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUpstream         = errors.New("upstream failure")
	ErrSignatureInvalid = errors.New("invalid signature")
	ErrUnknownAction    = errors.New("unknown action")
	ErrPersistence      = errors.New("persistence soft failure")
)

// ErrorKind classifies failures at the service boundary.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidRequest
	KindUpstreamFailure
	KindSignatureInvalid
	KindUnknownAction
	KindPersistenceSoftFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindUpstreamFailure:
		return "upstream_failure"
	case KindSignatureInvalid:
		return "signature_invalid"
	case KindUnknownAction:
		return "unknown_action"
	case KindPersistenceSoftFailure:
		return "persistence_soft_failure"
	case KindInternal:
		return "internal"
	}
	return "internal"
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidRequest:
		return ErrInvalidRequest
	case KindUpstreamFailure:
		return ErrUpstream
	case KindSignatureInvalid:
		return ErrSignatureInvalid
	case KindUnknownAction:
		return ErrUnknownAction
	case KindPersistenceSoftFailure:
		return ErrPersistence
	case KindInternal:
		return nil
	}
	return nil
}

// Error is a classified error carrying a caller-facing message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Invalid returns a KindInvalidRequest error with the given message.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// UnknownAction returns a KindUnknownAction error for the given action name.
func UnknownAction(action string) *Error {
	return &Error{Kind: KindUnknownAction, Message: fmt.Sprintf("unknown action: %q", action)}
}

// KindOf extracts the ErrorKind of err, defaulting to KindInternal.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// UpstreamError describes a non-success response from the completion service.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("completion service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("completion service returned status %d: %s", e.StatusCode, e.Message)
}

// Is makes every UpstreamError match ErrUpstream.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }
