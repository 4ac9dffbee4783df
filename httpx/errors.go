package httpx

import (
	"errors"
	"fmt"
)

var (
	ErrServerClosed   = errors.New("httpx: server closed")
	ErrServerStarted  = errors.New("httpx: server already started")
	ErrHeaderTooLarge = errors.New("httpx: header too large")
)

// ErrorKind classifies a failure by who detected it and how the session
// must react.
type ErrorKind int

const (
	// KindProtocol is a malformed request; answered with its Status and the
	// connection is closed.
	KindProtocol ErrorKind = iota
	// KindResource is a temp-file failure; fatal for the current request.
	KindResource
	// KindHandler is raised by handler code; keep-alive rules still apply.
	KindHandler
	// KindIO is a broken socket; the connection is abandoned silently.
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindResource:
		return "resource"
	case KindHandler:
		return "handler"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is a failure tagged, where it is detected, with the status code the
// client should receive.
type Error struct {
	Kind   ErrorKind
	Status Status
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewProtocolError reports a malformed request (400).
func NewProtocolError(msg string) *Error {
	return &Error{Kind: KindProtocol, Status: StatusBadRequest, Msg: msg}
}

// NewResourceError reports a failure to allocate or write request backing
// storage (500).
func NewResourceError(msg string, err error) *Error {
	return &Error{Kind: KindResource, Status: StatusInternalError, Msg: msg, Err: err}
}

// NewStatusError lets handler code pick the status sent back to the client.
func NewStatusError(status Status, msg string) *Error {
	return &Error{Kind: KindHandler, Status: status, Msg: msg}
}

func newIOError(msg string, err error) *Error {
	return &Error{Kind: KindIO, Status: StatusInternalError, Msg: msg, Err: err}
}

// asError returns err as an *Error, classifying untagged errors as handler
// failures with status 500.
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindHandler, Status: StatusInternalError, Msg: err.Error()}
}
