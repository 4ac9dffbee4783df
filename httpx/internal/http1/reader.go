package http1

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

var (
	// ErrHeadTooLarge is returned when no blank line terminates the head
	// within the reader's buffer.
	ErrHeadTooLarge = errors.New("http1: request head too large")
	ErrMissingMethod = errors.New("http1: missing method")
	ErrMissingURI    = errors.New("http1: missing URI")
)

// ReadHead returns the request head (request line and header lines, without
// the terminating blank line). The head must fit inside br's buffer; bytes
// following the terminator stay buffered in br for the body. Empty lines
// preceding the request line are skipped. io.EOF is returned only if the
// peer closed before sending anything.
func ReadHead(br *bufio.Reader) ([]byte, error) {
	for {
		if n := br.Buffered(); n > 0 {
			buf, _ := br.Peek(n)
			if lead := leadingNewlines(buf); lead > 0 {
				_, _ = br.Discard(lead)
				continue
			}
			if end, skip := FindHeadEnd(buf); end >= 0 {
				head := make([]byte, end)
				copy(head, buf[:end])
				_, _ = br.Discard(end + skip)
				return head, nil
			}
			if n >= br.Size() {
				return nil, ErrHeadTooLarge
			}
		}
		// Ask for one byte more than is buffered to force a read.
		if _, err := br.Peek(br.Buffered() + 1); err != nil {
			switch {
			case err == bufio.ErrBufferFull:
				return nil, ErrHeadTooLarge
			case err == io.EOF && br.Buffered() > 0:
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}
}

// FindHeadEnd locates the blank line ending a head block. It returns the
// index where the terminator starts and its length, or -1. "\r\n\r\n" is
// the normal terminator; a bare "\n\n" is accepted too.
func FindHeadEnd(buf []byte) (int, int) {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == '\r' && i+3 < len(buf) && buf[i+1] == '\n' && buf[i+2] == '\r' && buf[i+3] == '\n' {
			return i, 4
		}
		if buf[i] == '\n' && buf[i+1] == '\n' {
			return i, 2
		}
	}
	return -1, 0
}

func leadingNewlines(buf []byte) int {
	n := 0
	for n < len(buf) && (buf[n] == '\r' || buf[n] == '\n') {
		n++
	}
	// A lone trailing '\r' may be the start of "\r\n"; keep it until more arrives.
	if n == len(buf) && n > 0 && buf[n-1] == '\r' {
		n--
	}
	return n
}

// SplitHead splits a head into its request line and header lines, with any
// carriage returns removed.
func SplitHead(head []byte) (string, []string) {
	lines := strings.Split(string(head), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines[0], lines[1:]
}

// ParseRequestLine tokenizes "METHOD URI [PROTO]". The protocol defaults to
// HTTP/1.1 when absent.
func ParseRequestLine(line string) (method, uri, proto string, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", "", "", ErrMissingMethod
	}
	if len(fields) < 2 {
		return fields[0], "", "", ErrMissingURI
	}
	proto = "HTTP/1.1"
	if len(fields) > 2 {
		proto = fields[2]
	}
	return fields[0], fields[1], proto, nil
}

// ParseHeaderLines splits each line on its first colon. Keys are lower-cased
// and a repeated key keeps the last value. Lines without a colon, or whose
// name is not a token, are skipped.
func ParseHeaderLines(lines []string) map[string]string {
	h := make(map[string]string, len(lines))
	for _, line := range lines {
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			continue
		}
		k := SanitizeHeaderKey(strings.TrimSpace(line[:i]))
		if k == "" {
			continue
		}
		h[strings.ToLower(k)] = strings.TrimSpace(line[i+1:])
	}
	return h
}
