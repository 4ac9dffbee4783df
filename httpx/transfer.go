package httpx

import (
	"bufio"
	"compress/gzip"
	"errors"
	"io"
	"strconv"
	"time"

	"dqx0.com/go/nanoweb/httpx/internal/http1"
)

// writeTo sends the status line, headers and body. The head goes out in a
// fixed order: status line, Content-Type, Date, explicit headers by name,
// Connection, Content-Encoding, then the framing header.
func (r *Response) writeTo(bw *bufio.Writer, now time.Time) (err error) {
	defer func() {
		if cerr := r.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	explicitLen := r.Header.Has("Content-Length")
	chunked := r.Chunked()
	gz := r.gzip && !explicitLen
	noBody := r.Status.bodyless() || r.method == MethodHead

	if err := http1.WriteStatusLine(bw, int(r.Status), r.Status.Reason()); err != nil {
		return err
	}
	if r.MimeType != "" && !r.Header.Has("Content-Type") {
		http1.WriteHeader(bw, "Content-Type", r.MimeType)
	}
	if !r.Header.Has("Date") {
		http1.WriteHeader(bw, "Date", now.UTC().Format(TimeFormat))
	}
	for _, k := range r.Header.sortedKeys() {
		for _, v := range r.Header[k] {
			http1.WriteHeader(bw, k, v)
		}
	}
	if !r.Header.Has("Connection") {
		if r.keepAlive {
			http1.WriteHeader(bw, "Connection", "keep-alive")
		} else {
			http1.WriteHeader(bw, "Connection", "close")
		}
	}
	if gz && !r.Status.bodyless() {
		http1.WriteHeader(bw, "Content-Encoding", "gzip")
	}
	switch {
	case r.Status.bodyless() || explicitLen:
	case chunked:
		if r.method != MethodHead {
			http1.WriteHeader(bw, "Transfer-Encoding", "chunked")
		}
	default:
		http1.WriteHeader(bw, "Content-Length", strconv.FormatInt(r.length, 10))
	}
	if err := http1.EndHead(bw); err != nil {
		return err
	}
	if noBody {
		return bw.Flush()
	}

	switch {
	case chunked:
		err = r.sendChunked(bw, gz)
	case explicitLen:
		err = r.sendExplicit(bw)
	default:
		err = r.sendFixed(bw, r.length)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

func (r *Response) sendChunked(bw *bufio.Writer, gz bool) error {
	cw := &http1.ChunkedWriter{W: bw}
	if !gz {
		if _, err := io.Copy(cw, r.body); err != nil {
			return err
		}
		return cw.Close()
	}
	zw := gzip.NewWriter(cw)
	if _, err := io.Copy(zw, r.body); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return cw.Close()
}

// sendFixed copies exactly n bytes; a body that ends early is an error
// because the framing already promised n.
func (r *Response) sendFixed(bw *bufio.Writer, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(bw, r.body, n); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// sendExplicit honours a caller-supplied Content-Length when it parses;
// otherwise the body is copied as is.
func (r *Response) sendExplicit(bw *bufio.Writer) error {
	if n, err := strconv.ParseInt(r.Header.Get("Content-Length"), 10, 64); err == nil {
		return r.sendFixed(bw, n)
	}
	_, err := io.Copy(bw, r.body)
	return err
}
