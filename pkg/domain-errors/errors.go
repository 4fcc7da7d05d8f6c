// Package domainerrors carries the error taxonomy shared by services and transport.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate them into
// coded errors here so handlers can map them to HTTP without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is the stable, client-visible error identifier.
type Code string

const (
	CodeInvalidPayload       Code = "INVALID_PAYLOAD"
	CodeMissingRevision      Code = "MISSING_IF_MATCH_REV"
	CodePayloadTooLarge      Code = "PAYLOAD_TOO_LARGE"
	CodeRevisionMismatch     Code = "REVISION_MISMATCH"
	CodeDataLossPrevented    Code = "DATA_LOSS_PREVENTED"
	CodeTransitionNotAllowed Code = "STATUS_TRANSITION_NOT_ALLOWED"
	CodeNotFound             Code = "NOT_FOUND"
	CodeRateLimited          Code = "RATE_LIMITED"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeForbidden            Code = "FORBIDDEN_ROLE"
	CodeForbiddenOrigin      Code = "FORBIDDEN_ORIGIN"
	CodeTimeout              Code = "TIMEOUT"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Class groups codes by the remedy a client should apply.
type Class string

const (
	// ClassValidation: fix the input and resubmit.
	ClassValidation Class = "validation"
	// ClassConflict: refetch the current state, merge, and retry.
	ClassConflict Class = "conflict"
	ClassAuth     Class = "auth"
	ClassThrottle Class = "throttle"
	ClassNotFound Class = "not_found"
	ClassInternal Class = "internal"
)

var codeClasses = map[Code]Class{
	CodeInvalidPayload:       ClassValidation,
	CodeMissingRevision:      ClassValidation,
	CodePayloadTooLarge:      ClassValidation,
	CodeRevisionMismatch:     ClassConflict,
	CodeDataLossPrevented:    ClassConflict,
	CodeTransitionNotAllowed: ClassConflict,
	CodeNotFound:             ClassNotFound,
	CodeRateLimited:          ClassThrottle,
	CodeUnauthorized:         ClassAuth,
	CodeForbidden:            ClassAuth,
	CodeForbiddenOrigin:      ClassAuth,
	CodeTimeout:              ClassInternal,
	CodeInternal:             ClassInternal,
}

// Class returns the remedy class for the code. Unknown codes are internal.
func (c Code) Class() Class {
	if class, ok := codeClasses[c]; ok {
		return class
	}
	return ClassInternal
}

// Error is a coded domain error with optional structured context.
type Error struct {
	Code    Code
	Message string
	Meta    map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithMeta attaches structured context (server/client revisions, counts, statuses).
func (e *Error) WithMeta(meta map[string]any) *Error {
	e.Meta = meta
	return e
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error that keeps the cause for logs and errors.Is.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// From extracts the outermost domain error from the chain.
func From(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// IsConflict reports whether the client should refetch before retrying.
func IsConflict(err error) bool {
	de, ok := From(err)
	return ok && de.Code.Class() == ClassConflict
}
