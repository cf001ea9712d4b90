package domain

import (
	"errors"
	"strings"
)

// ErrorKind classifies a failure so callers can tell "bad input" apart from
// "transient infra problem" and "needs manual intervention".
type ErrorKind string

const (
	KindNotFound               ErrorKind = "not_found"
	KindConflict               ErrorKind = "conflict"
	KindInvalid                ErrorKind = "invalid"
	KindEnvironmentUnavailable ErrorKind = "environment_unavailable"
	KindAuthenticationFailed   ErrorKind = "authentication_failed"
	KindOperationFailed        ErrorKind = "operation_failed"
	KindInconsistent           ErrorKind = "inconsistent"
	KindTimeout                ErrorKind = "timeout"
)

// Sentinel errors, one per kind. A *Error matches the sentinel of its kind
// with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInvalid                = errors.New("invalid input")
	ErrEnvironmentUnavailable = errors.New("container engine unavailable")
	ErrAuthenticationFailed   = errors.New("registry authentication failed")
	ErrOperationFailed        = errors.New("operation failed")
	ErrInconsistent           = errors.New("inconsistent state")
	ErrTimeout                = errors.New("operation timed out")
)

// Domain-specific errors wrapped by the kinds above.
var (
	ErrContainerNotFound  = errors.New("container not found")
	ErrServiceNotFound    = errors.New("service not found")
	ErrServiceExists      = errors.New("service already exists")
	ErrManifestNotFound   = errors.New("manifest not found")
	ErrManifestInvalid    = errors.New("manifest is invalid")
	ErrRegistryNotFound   = errors.New("registry not found")
	ErrRegistryExists     = errors.New("registry already exists")
	ErrCredentialNotFound = errors.New("no credentials for registry")
	ErrImageNotFound      = errors.New("image not found")
	ErrPathTraversal      = errors.New("invalid name: path traversal or forbidden characters")
)

var kindSentinels = map[ErrorKind]error{
	KindNotFound:               ErrNotFound,
	KindConflict:               ErrConflict,
	KindInvalid:                ErrInvalid,
	KindEnvironmentUnavailable: ErrEnvironmentUnavailable,
	KindAuthenticationFailed:   ErrAuthenticationFailed,
	KindOperationFailed:        ErrOperationFailed,
	KindInconsistent:           ErrInconsistent,
	KindTimeout:                ErrTimeout,
}

// Error is the error type returned by use cases and adapters.
// Output carries captured engine/command diagnostics; it never contains
// credential material.
type Error struct {
	Kind    ErrorKind
	Op      string
	Stage   Stage
	Message string
	Output  string
	Err     error
}

// NewError creates a new *Error.
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Kind))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// WithStage returns a copy of e tagged with stage, unless a stage is already set.
func (e *Error) WithStage(stage Stage) *Error {
	cp := *e
	if cp.Stage == "" {
		cp.Stage = stage
	}
	return &cp
}

// WithOutput returns a copy of e carrying captured diagnostic output.
func (e *Error) WithOutput(output string) *Error {
	cp := *e
	cp.Output = output
	return &cp
}

// KindOf returns the kind of err. Errors that are not a *Error are reported as
// KindOperationFailed.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindOperationFailed
}

// AsError returns err as a *Error, classifying unknown errors as
// KindOperationFailed.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return NewError(KindOperationFailed, "", "", err)
}
