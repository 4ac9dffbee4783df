package httpx

import (
	"errors"
	"strings"
	"testing"
)

func TestParseTraceparent(t *testing.T) {
	tid, sid, fl, ok := parseTraceparent("00-4BF92F3577B34DA6A3CE929D0E0E4736-00F067AA0BA902B7-01")
	if !ok || tid != "4bf92f3577b34da6a3ce929d0e0e4736" || sid != "00f067aa0ba902b7" || fl != "01" {
		t.Fatalf("got %q %q %q %v", tid, sid, fl, ok)
	}
	bad := []string{
		"",
		"00-abc-def-01",
		"00-00000000000000000000000000000000-00f067aa0ba902b7-01",
		"00-4bf92f3577b34da6a3ce929d0e0e4736-0000000000000000-01",
		"00-4bf92f3577b34da6a3ce929d0e0e473g-00f067aa0ba902b7-01",
	}
	for _, v := range bad {
		if _, _, _, ok := parseTraceparent(v); ok {
			t.Fatalf("accepted %q", v)
		}
	}
}

func TestTraceFromHeader(t *testing.T) {
	tr := traceFromHeader("00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	if !tr.Valid() || tr.ParentSpanID != "00f067aa0ba902b7" || len(tr.SpanID) != 16 || tr.SpanID == tr.ParentSpanID {
		t.Fatalf("trace=%+v", tr)
	}
	if traceFromHeader("garbage").Valid() {
		t.Fatalf("invalid header produced a trace")
	}
}

func TestIDFallbackWhenRandomFails(t *testing.T) {
	saved := randRead
	randRead = func([]byte) (int, error) { return 0, errors.New("no entropy") }
	defer func() { randRead = saved }()

	a, b := genSpanID(), genSpanID()
	if len(a) != 16 || !isHex(a) || a == strings.Repeat("0", 16) || a == b {
		t.Fatalf("span ids %q %q", a, b)
	}
	if x, y := genID(), genID(); x == "" || x == y {
		t.Fatalf("request ids %q %q", x, y)
	}
}
