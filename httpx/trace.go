package httpx

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Trace carries minimal W3C trace context taken from an incoming
// traceparent header. TraceID is 32-hex, SpanID is 16-hex and is generated
// for the request being served; ParentSpanID is the peer's span.
type Trace struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
	Flags        string // 2-hex, e.g. "01"
}

// Valid reports whether a trace id was received.
func (t Trace) Valid() bool { return t.TraceID != "" }

// traceFromHeader builds the server-side trace for a request, or the zero
// Trace when the traceparent header is absent or invalid.
func traceFromHeader(v string) Trace {
	tid, sid, flags, ok := parseTraceparent(v)
	if !ok {
		return Trace{}
	}
	return Trace{TraceID: tid, SpanID: genSpanID(), ParentSpanID: sid, Flags: flags}
}

// genSpanID returns a non-zero 16-hex span id, falling back to the clock
// and a sequence when the random source fails.
func genSpanID() string {
	var b [8]byte
	if _, err := randRead(b[:]); err == nil && b != [8]byte{} {
		return hex.EncodeToString(b[:])
	}
	v := uint64(time.Now().UnixNano()) ^ idSeq.Add(1)<<48
	if v == 0 {
		v = 1
	}
	return fmt.Sprintf("%016x", v)
}

// parseTraceparent extracts trace-id, span-id, flags. Returns ok=false if invalid.
func parseTraceparent(v string) (traceID, spanID, flags string, ok bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", "", "", false
	}
	parts := strings.Split(v, "-")
	if len(parts) < 4 {
		return "", "", "", false
	}
	ver, tid, sid, fl := parts[0], parts[1], parts[2], parts[3]
	if len(ver) != 2 || len(tid) != 32 || len(sid) != 16 || len(fl) != 2 {
		return "", "", "", false
	}
	if !isHex(ver) || !isHex(tid) || !isHex(sid) || !isHex(fl) {
		return "", "", "", false
	}
	tid, sid = strings.ToLower(tid), strings.ToLower(sid)
	if tid == strings.Repeat("0", 32) || sid == strings.Repeat("0", 16) {
		return "", "", "", false
	}
	return tid, sid, strings.ToLower(fl), true
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			continue
		}
		return false
	}
	return true
}
