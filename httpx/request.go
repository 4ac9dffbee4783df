package httpx

import (
	"context"
	"strings"
)

// Request is one parsed request. It lives until the response has been sent;
// files named in Files are deleted afterwards.
type Request struct {
	Method Method
	// URI is the percent-decoded path, without the query string.
	URI   string
	Proto string
	// QueryString is the raw text after '?', if any.
	QueryString string
	// Headers is keyed by lower-cased field name; a repeated field keeps
	// its last value.
	Headers map[string]string
	// Params holds query parameters and, once the body is decoded, form
	// fields. A key may carry several values.
	Params map[string][]string
	// Files maps a multipart field name to the temp file holding its data.
	Files      map[string]string
	Cookies    *CookieHandler
	RemoteAddr string
	// ContentLength is -1 when the request declared no length.
	ContentLength int64

	// RequestID is generated by the server for every request.
	RequestID string
	// CorrelationID is propagated from the peer's X-Request-ID header.
	CorrelationID string
	// Trace is filled from a valid traceparent header.
	Trace Trace

	ctx  context.Context
	body *requestBody
}

func newRequest(method Method, proto string) *Request {
	return &Request{
		Method:        method,
		Proto:         proto,
		Headers:       make(map[string]string),
		Params:        make(map[string][]string),
		Files:         make(map[string]string),
		Cookies:       newCookieHandler(nil),
		ContentLength: -1,
	}
}

// Header returns a request header value, looked up case-insensitively.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// Param returns the first value of a parameter, or "".
func (r *Request) Param(name string) string {
	if vv := r.Params[name]; len(vv) > 0 {
		return vv[0]
	}
	return ""
}

// ParseBody decodes the request body into Params and Files. The body is
// decoded at most once; later calls return the first result. PUT and POST
// bodies are decoded by the server before the handler runs.
func (r *Request) ParseBody() error {
	if r.body == nil {
		return nil
	}
	r.body.once.Do(func() { r.body.err = r.decodeBody() })
	return r.body.err
}

// keepAlive reports whether the client allows the connection to be reused.
func (r *Request) keepAlive() bool {
	return r.Proto == "HTTP/1.1" && !strings.EqualFold(r.Headers["connection"], "close")
}

// Context returns the request's context. If nil, returns Background.
func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context changed to ctx.
func WithContext(r *Request, ctx context.Context) *Request {
	if r == nil {
		return nil
	}
	r2 := *r
	r2.ctx = ctx
	return &r2
}
