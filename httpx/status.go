package httpx

import (
	"strconv"

	"dqx0.com/go/nanoweb/httpx/internal/http1"
)

// Status is an HTTP response status code.
type Status int

const (
	StatusSwitchingProtocols  Status = 101
	StatusOK                  Status = 200
	StatusCreated             Status = 201
	StatusAccepted            Status = 202
	StatusNoContent           Status = 204
	StatusPartialContent      Status = 206
	StatusMovedPermanently    Status = 301
	StatusNotModified         Status = 304
	StatusBadRequest          Status = 400
	StatusUnauthorized        Status = 401
	StatusForbidden           Status = 403
	StatusNotFound            Status = 404
	StatusMethodNotAllowed    Status = 405
	StatusNotAcceptable       Status = 406
	StatusRequestTimeout      Status = 408
	StatusConflict            Status = 409
	StatusRangeNotSatisfiable Status = 416
	StatusInternalError       Status = 500
	StatusNotImplemented      Status = 501
	StatusVersionNotSupported Status = 505
)

// Reason returns the reason phrase, e.g. "Not Found".
func (s Status) Reason() string { return http1.Reason(int(s)) }

// Description returns the code and reason as sent on the status line,
// e.g. "404 Not Found".
func (s Status) Description() string {
	return strconv.Itoa(int(s)) + " " + s.Reason()
}

// bodyless reports whether responses with this status never carry a body.
func (s Status) bodyless() bool {
	return (s >= 100 && s < 200) || s == StatusNoContent || s == StatusNotModified
}
