package httpx

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// Response is what a handler returns. The server sends it exactly once and
// then closes its body, whether or not sending succeeded.
type Response struct {
	Status   Status
	MimeType string
	// Header holds explicit headers. An explicit Date, Connection or
	// Content-Length replaces the value the server would compute; an
	// explicit Content-Length also turns off chunking and gzip.
	Header Header

	body      io.Reader
	length    int64 // -1 means unknown, sent chunked
	keepAlive bool
	gzip      bool
	method    Method
	closeOnce sync.Once
}

// NewResponse returns a response streaming length bytes from body. A
// negative length sends the body chunked. A nil body is empty.
func NewResponse(status Status, mimeType string, body io.Reader, length int64) *Response {
	if body == nil {
		body, length = bytes.NewReader(nil), 0
	}
	if length < 0 {
		length = -1
	}
	return &Response{
		Status:    status,
		MimeType:  mimeType,
		Header:    Header{},
		body:      body,
		length:    length,
		keepAlive: true,
	}
}

// NewChunkedResponse returns a response whose body is sent with chunked
// transfer coding until body reports io.EOF.
func NewChunkedResponse(status Status, mimeType string, body io.Reader) *Response {
	return NewResponse(status, mimeType, body, -1)
}

func NewBytesResponse(status Status, mimeType string, b []byte) *Response {
	return NewResponse(status, mimeType, bytes.NewReader(b), int64(len(b)))
}

// NewFixedLengthResponse returns a text response. The length is that of the
// text encoded as UTF-8.
func NewFixedLengthResponse(status Status, mimeType, text string) *Response {
	if mimeType == "" {
		mimeType = MimePlaintext
	}
	return NewResponse(status, mimeType, strings.NewReader(text), int64(len(text)))
}

// AddHeader appends an explicit header value.
func (r *Response) AddHeader(key, value string) {
	if r.Header == nil {
		r.Header = Header{}
	}
	r.Header.Add(key, value)
}

// CloseConnection asks the server to close the connection after this
// response even if the client would allow reuse.
func (r *Response) CloseConnection(close bool) { r.keepAlive = !close }

// Body returns the reader the response is sent from.
func (r *Response) Body() io.Reader { return r.body }

// Length returns the body length, or -1 when it is sent chunked.
func (r *Response) Length() int64 { return r.length }

// KeepAlive reports whether the response allows connection reuse.
func (r *Response) KeepAlive() bool { return r.keepAlive }

// Chunked reports whether the body will be sent with chunked framing.
func (r *Response) Chunked() bool {
	if r.Header.Has("Content-Length") {
		return false
	}
	return r.length < 0 || r.gzip
}

// Close closes the body if it is an io.Closer. Only the first call has an
// effect.
func (r *Response) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if c, ok := r.body.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
