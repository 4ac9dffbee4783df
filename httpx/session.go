package httpx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"dqx0.com/go/nanoweb/httpx/internal/http1"
	"dqx0.com/go/nanoweb/internal/obs"
)

const (
	lingerTimeout  = 500 * time.Millisecond
	lingerMaxBytes = 256 << 10
)

// session runs the request loop of one connection: read a head, build the
// request, dispatch it, send the response, and repeat while both peers
// allow keep-alive.
type session struct {
	srv    *Server
	conn   net.Conn
	status *ConnStatus
	br     *bufio.Reader
	bw     *bufio.Writer
	log    obs.Logger
	meter  obs.Meter
}

func newSession(s *Server, c net.Conn, st *ConnStatus) *session {
	return &session{
		srv:    s,
		conn:   c,
		status: st,
		br:     bufio.NewReaderSize(&idleReader{conn: c, timeout: s.readTimeout()}, s.headerLimit()),
		bw:     bufio.NewWriter(c),
		log:    s.logger(),
		meter:  s.meter(),
	}
}

func (ss *session) serve() {
	for ss.handleOne() {
	}
}

// handleOne serves a single request and reports whether the connection
// should be kept for another one.
func (ss *session) handleOne() bool {
	head, err := http1.ReadHead(ss.br)
	if err != nil {
		switch {
		case errors.Is(err, http1.ErrHeadTooLarge):
			ss.sendError(&Error{Kind: KindProtocol, Status: StatusBadRequest, Msg: "BAD REQUEST: Request header too large.", Err: ErrHeaderTooLarge})
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		case errors.Is(err, os.ErrDeadlineExceeded):
			ss.log.Logf(obs.Debug, "%s: idle timeout", ss.status.Remote)
		default:
			ss.log.Logf(obs.Debug, "%s: reading request head: %v", ss.status.Remote, err)
		}
		return false
	}
	start := time.Now()

	tmp := ss.srv.newTempFileManager()
	defer tmp.Clear()

	req, perr := ss.parseRequest(head, tmp)
	if perr != nil {
		ss.sendError(perr)
		return false
	}

	if strings.EqualFold(req.Headers["expect"], "100-continue") && (req.body.chunked || req.body.length > 0) {
		if err := http1.WriteContinue(ss.bw); err != nil {
			ss.log.Logf(obs.Debug, "%s: writing 100 Continue: %v", ss.status.Remote, err)
			return false
		}
	}

	if req.Method == MethodPost || req.Method == MethodPut {
		if err := req.ParseBody(); err != nil {
			e := asError(err)
			if e.Kind == KindIO {
				ss.log.Logf(obs.Debug, "%s: %v", ss.status.Remote, e)
				return false
			}
			ss.sendError(e)
			return false
		}
	}

	resp, herr := ss.invoke(req)
	if herr != nil {
		e := asError(herr)
		if e.Kind == KindIO {
			ss.log.Logf(obs.Debug, "%s: handler: %v", ss.status.Remote, e)
			if resp != nil {
				_ = resp.Close()
			}
			return false
		}
		if resp != nil {
			_ = resp.Close()
		}
		resp = NewFixedLengthResponse(e.Status, MimePlaintext, e.Msg)
		if e.Kind != KindHandler {
			resp.CloseConnection(true)
		}
	} else if resp == nil {
		resp = NewFixedLengthResponse(StatusInternalError, MimePlaintext, "SERVER INTERNAL ERROR: Serve() returned a null response.")
	}

	req.Cookies.unloadQueue(resp)
	resp.method = req.Method
	resp.gzip = ss.srv.useGzip(resp) && acceptsGzip(req.Headers["accept-encoding"]) && !resp.Header.Has("Content-Length")
	keepAlive := req.keepAlive() && resp.keepAlive && !strings.EqualFold(resp.Header.Get("Connection"), "close")
	resp.keepAlive = keepAlive

	if err := resp.writeTo(ss.bw, time.Now()); err != nil {
		ss.log.Logf(obs.Debug, "%s: writing response: %v", ss.status.Remote, err)
		return false
	}
	ss.status.requests.Add(1)
	ss.observe(req.Method, req.URI, resp.Status, start)

	if !keepAlive {
		return false
	}
	if err := req.body.drain(); err != nil {
		ss.log.Logf(obs.Debug, "%s: draining request body: %v", ss.status.Remote, err)
		return false
	}
	return true
}

// parseRequest turns a head block into a Request whose body is still
// unread in the connection's reader.
func (ss *session) parseRequest(head []byte, tmp TempFileManager) (*Request, *Error) {
	line, lines := http1.SplitHead(head)
	verb, uri, proto, err := http1.ParseRequestLine(line)
	switch {
	case errors.Is(err, http1.ErrMissingMethod):
		return nil, NewProtocolError("BAD REQUEST: Syntax error. Usage: GET /example/file.html")
	case errors.Is(err, http1.ErrMissingURI):
		return nil, NewProtocolError("BAD REQUEST: Missing URI. Usage: GET /example/file.html")
	}
	method, ok := ParseMethod(verb)
	if !ok {
		return nil, NewProtocolError("BAD REQUEST: Syntax error. HTTP verb " + verb + " unhandled.")
	}
	if !strings.HasPrefix(proto, "HTTP/1.") {
		return nil, &Error{Kind: KindProtocol, Status: StatusVersionNotSupported, Msg: "HTTP Version Not Supported: " + proto}
	}

	req := newRequest(method, proto)
	path, query, _ := strings.Cut(uri, "?")
	req.URI = http1.DecodePath(path)
	req.QueryString = query
	http1.DecodeQuery(query, req.Params)

	req.Headers = http1.ParseHeaderLines(lines)
	req.RemoteAddr = ss.status.Remote
	if host, _, err := net.SplitHostPort(req.RemoteAddr); err == nil {
		req.Headers["remote-addr"] = host
		req.Headers["http-client-ip"] = host
	}
	req.Cookies = newCookieHandler(req.Headers)

	body := &requestBody{
		br:      ss.br,
		length:  -1,
		limit:   ss.srv.memoryLimit(),
		maxLine: ss.srv.headerLimit(),
		window:  http1.DefaultScanWindow,
		tmp:     tmp,
	}
	cl, hasCL := req.Headers["content-length"]
	te := req.Headers["transfer-encoding"]
	if hasCL && te != "" {
		return nil, NewProtocolError("BAD REQUEST: Content-Length and Transfer-Encoding are both set.")
	}
	if hasCL {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			return nil, NewProtocolError("BAD REQUEST: Invalid Content-Length " + strconv.Quote(cl) + ".")
		}
		body.length = n
	}
	if te != "" {
		if !strings.EqualFold(strings.TrimSpace(te), "chunked") {
			return nil, &Error{Kind: KindProtocol, Status: StatusNotImplemented, Msg: "Transfer-Encoding " + te + " not implemented."}
		}
		body.chunked = true
	}
	req.ContentLength = body.length
	req.body = body

	req.RequestID = genID()
	req.CorrelationID = req.Headers["x-request-id"]
	req.Trace = traceFromHeader(req.Headers["traceparent"])
	req.ctx = requestContext(req)
	return req, nil
}

// invoke calls the handler, turning a panic into a 500 error.
func (ss *session) invoke(req *Request) (resp *Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			ss.log.Logf(obs.Error, "panic serving %s %s: %v\n%s", req.Method, req.URI, p, debug.Stack())
			resp = nil
			err = &Error{Kind: KindHandler, Status: StatusInternalError, Msg: fmt.Sprintf("SERVER INTERNAL ERROR: %v", p)}
		}
	}()
	return ss.srv.handler().Serve(req)
}

// sendError answers with a text/plain error and marks the connection for
// closing.
func (ss *session) sendError(e *Error) {
	resp := NewFixedLengthResponse(e.Status, MimePlaintext, e.Msg)
	resp.CloseConnection(true)
	if err := resp.writeTo(ss.bw, time.Now()); err != nil {
		ss.log.Logf(obs.Debug, "%s: writing error response: %v", ss.status.Remote, err)
		return
	}
	ss.meter.Counter("httpx.requests", 1, obs.Label{Key: "status", Value: strconv.Itoa(int(e.Status))})
	ss.closeWriteAndWait()
}

// closeWriteAndWait half-closes the connection and discards what the peer
// is still sending, so closing with unread input does not reset the
// connection before the client has read the error response.
func (ss *session) closeWriteAndWait() {
	cw, ok := ss.conn.(interface{ CloseWrite() error })
	if !ok {
		return
	}
	if err := cw.CloseWrite(); err != nil {
		return
	}
	_, _ = ss.br.Discard(ss.br.Buffered())
	_ = ss.conn.SetReadDeadline(time.Now().Add(lingerTimeout))
	_, _ = io.CopyN(io.Discard, ss.conn, lingerMaxBytes)
}

// idleReader re-arms the read deadline before every socket read, so the
// timeout bounds each silence from the peer, not the whole request.
type idleReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	if r.timeout > 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
			return 0, err
		}
	}
	return r.conn.Read(p)
}

func (ss *session) observe(m Method, uri string, st Status, start time.Time) {
	dur := time.Since(start)
	ss.log.Logf(obs.Debug, "%s %s %s -> %d (%s)", ss.status.Remote, m, uri, int(st), dur)
	ss.meter.Counter("httpx.requests", 1, obs.Label{Key: "status", Value: strconv.Itoa(int(st))})
	ss.meter.Histogram("httpx.request.duration_ms", float64(dur.Milliseconds()))
}

// acceptsGzip reports whether an Accept-Encoding value lists gzip with a
// non-zero quality.
func acceptsGzip(v string) bool {
	for _, tok := range strings.Split(v, ",") {
		name, params, _ := strings.Cut(tok, ";")
		if !strings.EqualFold(strings.TrimSpace(name), "gzip") {
			continue
		}
		for _, p := range strings.Split(params, ";") {
			k, q, ok := strings.Cut(strings.TrimSpace(p), "=")
			if ok && strings.EqualFold(k, "q") {
				if f, err := strconv.ParseFloat(strings.TrimSpace(q), 64); err == nil && f == 0 {
					return false
				}
			}
		}
		return true
	}
	return false
}
