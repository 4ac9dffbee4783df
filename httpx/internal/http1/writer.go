package http1

import (
	"bufio"
	"strconv"
)

// WriteStatusLine writes "HTTP/1.1 <code> <reason>\r\n". An empty reason is
// replaced by Reason(code).
func WriteStatusLine(bw *bufio.Writer, code int, reason string) error {
	if reason == "" {
		reason = Reason(code)
	}
	bw.WriteString("HTTP/1.1 ")
	bw.WriteString(strconv.Itoa(code))
	bw.WriteByte(' ')
	bw.WriteString(reason)
	_, err := bw.WriteString("\r\n")
	return err
}

// WriteHeader writes one header line. Invalid names are dropped and control
// characters are removed from the value.
func WriteHeader(bw *bufio.Writer, key, value string) error {
	if key = SanitizeHeaderKey(key); key == "" {
		return nil
	}
	bw.WriteString(key)
	bw.WriteString(": ")
	bw.WriteString(SanitizeHeaderValue(value))
	_, err := bw.WriteString("\r\n")
	return err
}

// EndHead writes the blank line separating head and body.
func EndHead(bw *bufio.Writer) error {
	_, err := bw.WriteString("\r\n")
	return err
}

// Reason returns the standard reason phrase for the status codes this
// server produces, or "" for unknown codes.
func Reason(code int) string {
	switch code {
	case 100:
		return "Continue"
	case 101:
		return "Switching Protocols"
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 202:
		return "Accepted"
	case 204:
		return "No Content"
	case 206:
		return "Partial Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 303:
		return "See Other"
	case 304:
		return "Not Modified"
	case 307:
		return "Temporary Redirect"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 406:
		return "Not Acceptable"
	case 408:
		return "Request Timeout"
	case 409:
		return "Conflict"
	case 413:
		return "Payload Too Large"
	case 416:
		return "Requested Range Not Satisfiable"
	case 431:
		return "Request Header Fields Too Large"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	case 503:
		return "Service Unavailable"
	case 505:
		return "HTTP Version Not Supported"
	default:
		return ""
	}
}
