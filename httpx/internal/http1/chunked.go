package http1

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrChunkFormat reports malformed chunked framing sent by the peer.
var ErrChunkFormat = errors.New("http1: invalid chunk format")

// chunkedBody implements io.Reader for Transfer-Encoding: chunked.
type chunkedBody struct {
	br       *bufio.Reader
	remain   int64
	finished bool
	maxLine  int // line limit for chunk header and trailer lines
}

// NewChunkedReader decodes a chunked body from br, stopping after the
// terminating zero-length chunk and its trailers.
func NewChunkedReader(br *bufio.Reader, maxLine int) io.Reader {
	return &chunkedBody{br: br, remain: -1, maxLine: maxLine}
}

func (c *chunkedBody) Read(p []byte) (int, error) {
	if c.finished {
		return 0, io.EOF
	}
	if c.remain <= 0 {
		size, err := c.readChunkSize()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			if err := c.readTrailers(); err != nil {
				return 0, err
			}
			c.finished = true
			return 0, io.EOF
		}
		c.remain = size
	}
	if len(p) == 0 {
		return 0, nil
	}
	if int64(len(p)) > c.remain {
		p = p[:c.remain]
	}
	n, err := io.ReadFull(c.br, p)
	c.remain -= int64(n)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return n, err
	}
	if c.remain == 0 {
		if err := c.expectCRLF(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (c *chunkedBody) readChunkSize() (int64, error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	// Strip chunk extensions if any: "<hex>;<ext>"
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, ErrChunkFormat
	}
	n, err := strconv.ParseInt(line, 16, 64)
	if err != nil || n < 0 {
		return 0, ErrChunkFormat
	}
	return n, nil
}

func (c *chunkedBody) expectCRLF() error {
	b1, err := c.br.ReadByte()
	if err != nil {
		return err
	}
	b2, err := c.br.ReadByte()
	if err != nil {
		return err
	}
	if b1 != '\r' || b2 != '\n' {
		return fmt.Errorf("%w: expected CRLF after chunk, got %q%q", ErrChunkFormat, b1, b2)
	}
	return nil
}

func (c *chunkedBody) readTrailers() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		// Trailer fields are ignored.
	}
}

// readLine reads a chunk-size or trailer line; an over-long line is a
// framing error rather than an I/O failure.
func (c *chunkedBody) readLine() (string, error) {
	line, err := readLineLimit(c.br, c.maxLine)
	if errors.Is(err, io.ErrShortBuffer) {
		return "", fmt.Errorf("%w: line exceeds %d bytes", ErrChunkFormat, c.maxLine)
	}
	return line, err
}

func readLineLimit(br *bufio.Reader, limit int) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		if b == '\n' {
			break
		}
		if b != '\r' {
			sb.WriteByte(b)
		}
		if limit > 0 && sb.Len() > limit {
			return "", io.ErrShortBuffer
		}
	}
	return sb.String(), nil
}

// ChunkedWriter frames every Write as one chunk and flushes it so the peer
// sees data as it is produced. Close writes the zero-length terminator; it
// does not close W.
type ChunkedWriter struct {
	W      *bufio.Writer
	closed bool
}

func (w *ChunkedWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("http1: write after chunked close")
	}
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := fmt.Fprintf(w.W, "%x\r\n", len(p)); err != nil {
		return 0, err
	}
	if _, err := w.W.Write(p); err != nil {
		return 0, err
	}
	if _, err := w.W.WriteString("\r\n"); err != nil {
		return 0, err
	}
	if err := w.W.Flush(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *ChunkedWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if _, err := w.W.WriteString("0\r\n\r\n"); err != nil {
		return err
	}
	return w.W.Flush()
}
