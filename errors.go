package pattrns

import (
	"errors"
	"fmt"

	"github.com/cbegin/pattrns-go/cycle"
	"github.com/cbegin/pattrns-go/note"
)

// ErrorKind classifies pattern engine failures.
type ErrorKind int

const (
	ErrParse   ErrorKind = iota + 1 // grammar or semantic violation in a cycle string
	ErrValue                        // out-of-range literal
	ErrName                         // unknown chord or scale name
	ErrRuntime                      // emitter closure failed at a step
	ErrConfig                       // invalid time base, duplicate parameter id
)

func (k ErrorKind) String() string {
	switch k {
	case ErrParse:
		return "parse error"
	case ErrValue:
		return "value error"
	case ErrName:
		return "name error"
	case ErrRuntime:
		return "runtime error"
	case ErrConfig:
		return "config error"
	default:
		return "error"
	}
}

// Error is the structured error surfaced by the engine. Wrapped causes may
// carry a source span (see cycle.ParseError).
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// wrapError classifies an error from a subpackage into an engine Error.
func wrapError(err error) *Error {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr
	}
	kind := ErrRuntime
	var parseErr *cycle.ParseError
	var valueErr *note.ValueError
	var nameErr *note.NameError
	switch {
	case errors.As(err, &parseErr):
		kind = ErrParse
	case errors.As(err, &valueErr):
		kind = ErrValue
	case errors.As(err, &nameErr):
		kind = ErrName
	}
	return &Error{Kind: kind, Err: err}
}
