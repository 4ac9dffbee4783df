package httpx

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"

	"dqx0.com/go/nanoweb/httpx/internal/http1"
)

// DefaultMemoryStoreLimit is the largest body kept in memory; larger bodies
// are spooled to a temp file.
const DefaultMemoryStoreLimit = 1024

// requestBody is the still-undecoded body of one request, read from the
// session's buffered connection reader.
type requestBody struct {
	br      *bufio.Reader
	length  int64 // declared Content-Length, -1 if none
	chunked bool
	limit   int64
	maxLine int
	window  int
	tmp     TempFileManager

	loaded bool
	once   sync.Once
	err    error
}

// load reads the whole body. Bodies up to limit bytes stay in memory, the
// rest go to a temp file. Without Content-Length or chunked framing the
// body is whatever already arrived after the head.
func (b *requestBody) load() (io.ReaderAt, int64, error) {
	b.loaded = true
	var src io.Reader
	size := b.length
	switch {
	case b.chunked:
		src = http1.NewChunkedReader(b.br, b.maxLine)
	case b.length >= 0:
		src = io.LimitReader(b.br, b.length)
	default:
		size = int64(b.br.Buffered())
		src = io.LimitReader(b.br, size)
	}

	mem, err := io.ReadAll(io.LimitReader(src, b.limit+1))
	if err != nil {
		return nil, 0, bodyReadError(err)
	}
	if int64(len(mem)) <= b.limit {
		if !b.chunked && int64(len(mem)) < size {
			return nil, 0, newIOError("reading request body", io.ErrUnexpectedEOF)
		}
		return bytes.NewReader(mem), int64(len(mem)), nil
	}

	f, err := b.tmp.CreateTempFile("")
	if err != nil {
		return nil, 0, NewResourceError("SERVER INTERNAL ERROR: cannot create temp file for request body", err)
	}
	if _, err := f.Write(mem); err != nil {
		return nil, 0, NewResourceError("SERVER INTERNAL ERROR: cannot write temp file", err)
	}
	total := int64(len(mem))
	buf := make([]byte, 32<<10)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return nil, 0, NewResourceError("SERVER INTERNAL ERROR: cannot write temp file", werr)
			}
			total += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, 0, bodyReadError(rerr)
		}
	}
	if !b.chunked && total < size {
		return nil, 0, newIOError("reading request body", io.ErrUnexpectedEOF)
	}
	return f, total, nil
}

// bodyReadError classifies a failed body read: broken chunk framing is the
// client's fault and gets a 400, anything else is a socket failure.
func bodyReadError(err error) error {
	if errors.Is(err, http1.ErrChunkFormat) {
		return &Error{Kind: KindProtocol, Status: StatusBadRequest, Msg: "BAD REQUEST: Malformed chunked request body.", Err: err}
	}
	return newIOError("reading request body", err)
}

// drain discards a body nobody decoded so the next request on the
// connection starts at its request line.
func (b *requestBody) drain() error {
	if b == nil || b.loaded {
		return nil
	}
	b.loaded = true
	switch {
	case b.chunked:
		if _, err := io.Copy(io.Discard, http1.NewChunkedReader(b.br, b.maxLine)); err != nil {
			return bodyReadError(err)
		}
		return nil
	case b.length > 0:
		_, err := io.CopyN(io.Discard, b.br, b.length)
		return err
	}
	return nil
}

func (r *Request) decodeBody() error {
	src, size, err := r.body.load()
	if err != nil {
		return err
	}
	switch r.Method {
	case MethodPost:
		ct := ParseContentType(r.Headers["content-type"])
		if ct.IsMultipart() {
			if ct.Boundary == "" {
				return NewProtocolError("BAD REQUEST: Content type is multipart/form-data but boundary missing. Usage: GET /example/file.html")
			}
			return r.decodeMultipart(ct, src, size)
		}
		data, err := io.ReadAll(io.NewSectionReader(src, 0, size))
		if err != nil {
			return NewResourceError("SERVER INTERNAL ERROR: cannot read request body", err)
		}
		if ct.MimeType == MimeFormURLEncoded {
			ct.decodeParams(strings.TrimSpace(string(data)), r.Params)
		} else if len(data) != 0 {
			r.Params["postData"] = []string{ct.DecodeText(data)}
		}
	case MethodPut:
		path, err := r.saveTempFile(src, 0, size, "")
		if err != nil {
			return err
		}
		r.Files["content"] = path
	}
	return nil
}

// saveTempFile copies n bytes at off from src into a new temp file and
// returns its path.
func (r *Request) saveTempFile(src io.ReaderAt, off, n int64, hint string) (string, error) {
	f, err := r.body.tmp.CreateTempFile(hint)
	if err != nil {
		return "", NewResourceError("SERVER INTERNAL ERROR: cannot create temp file", err)
	}
	if _, err := io.Copy(f, io.NewSectionReader(src, off, n)); err != nil {
		return "", NewResourceError("SERVER INTERNAL ERROR: cannot write temp file", err)
	}
	return f.Name(), nil
}
