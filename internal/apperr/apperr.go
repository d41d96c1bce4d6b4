package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide between rejecting,
// retrying, or degrading to the local queue.
type Kind int

const (
	Authentication Kind = iota
	Validation
	Connection
	Server
)

func (k Kind) String() string {
	switch k {
	case Authentication:
		return "authentication"
	case Validation:
		return "validation"
	case Connection:
		return "connection"
	case Server:
		return "server"
	}
	return "unknown"
}

type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
