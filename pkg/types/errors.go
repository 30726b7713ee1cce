package types

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind classifies failures of the audio subsystem.
type Kind int

const (
	KindUnknown Kind = iota
	KindInitialization
	KindIO
	KindFormat
	KindResourceCreation
	KindSubmit
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindInitialization:
		return "initialization"
	case KindIO:
		return "io"
	case KindFormat:
		return "format"
	case KindResourceCreation:
		return "resource creation"
	case KindSubmit:
		return "submit"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrInitialization   = &Error{Kind: KindInitialization}
	ErrIO               = &Error{Kind: KindIO}
	ErrFormat           = &Error{Kind: KindFormat}
	ErrResourceCreation = &Error{Kind: KindResourceCreation}
	ErrSubmit           = &Error{Kind: KindSubmit}
	ErrState            = &Error{Kind: KindState}
)

// Error carries the failure kind, the operation and the underlying cause.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "decode", "acquire"
	Path string // asset path, if any
	Err  error
}

// NewError wraps err with kind and op.
func NewError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

// Code returns the low-level system error code behind e, if there is one.
func (e *Error) Code() (int, bool) {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return int(errno), true
	}
	return 0, false
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
