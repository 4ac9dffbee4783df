package http1

import (
	"bytes"
	"strings"
	"testing"
)

func TestScanBoundaries_SmallBody(t *testing.T) {
	body := "--XyZ\r\nA\r\n--XyZ\r\nB\r\n--XyZ--\r\n"
	got, err := ScanBoundaries(strings.NewReader(body), int64(len(body)), []byte("--XyZ"), DefaultScanWindow)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []int64{0, 10, 20}
	if len(got) != len(want) {
		t.Fatalf("offsets=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("offsets=%v want %v", got, want)
		}
	}
}

// Delimiters straddling window edges must be found exactly once.
func TestScanBoundaries_AcrossWindows(t *testing.T) {
	delim := []byte("--boundary42")
	var body bytes.Buffer
	var want []int64
	for i := 0; i < 50; i++ {
		want = append(want, int64(body.Len()))
		body.Write(delim)
		body.WriteString("\r\n")
		body.Write(bytes.Repeat([]byte{'x'}, 7*i+3))
		body.WriteString("\r\n")
	}
	for _, window := range []int{13, 16, 31, 64, 4096} {
		got, err := ScanBoundaries(bytes.NewReader(body.Bytes()), int64(body.Len()), delim, window)
		if err != nil {
			t.Fatalf("window %d: %v", window, err)
		}
		if len(got) != len(want) {
			t.Fatalf("window %d: found %d, want %d", window, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("window %d: offset[%d]=%d want %d", window, i, got[i], want[i])
			}
		}
	}
}

func TestScanBoundaries_NoMatch(t *testing.T) {
	got, err := ScanBoundaries(strings.NewReader("plain"), 5, []byte("--b"), 8)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}
