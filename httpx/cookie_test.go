package httpx

import (
	"testing"
	"time"
)

func TestCookieHandler_Parse(t *testing.T) {
	h := newCookieHandler(map[string]string{"cookie": "a=1; b = 2;junk; c=x=y"})
	if h.Read("a") != "1" || h.Read("c") != "x=y" {
		t.Fatalf("a=%q c=%q", h.Read("a"), h.Read("c"))
	}
	if h.Read("junk") != "" {
		t.Fatalf("cookie without '=' parsed")
	}
	if names := h.Names(); len(names) != 3 {
		t.Fatalf("names=%v", names)
	}
}

func TestCookieHandler_Queue(t *testing.T) {
	h := newCookieHandler(nil)
	h.SetCookie(&Cookie{Name: "s", Value: "v", Expires: "never"})
	h.Delete("old")
	resp := NewFixedLengthResponse(StatusOK, MimePlaintext, "")
	h.unloadQueue(resp)
	got := resp.Header.Values("Set-Cookie")
	if len(got) != 2 || got[0] != "s=v; expires=never" {
		t.Fatalf("Set-Cookie=%q", got)
	}
	h.unloadQueue(resp)
	if n := len(resp.Header.Values("Set-Cookie")); n != 2 {
		t.Fatalf("queue not emptied: %d headers", n)
	}
}

func TestCookieExpiry(t *testing.T) {
	now := time.Date(2024, 2, 28, 23, 30, 0, 0, time.FixedZone("X", 3600))
	if got, want := cookieExpiry(now, 1), "Thu, 29 Feb 2024 22:30:00 GMT"; got != want {
		t.Fatalf("expiry=%q, want %q", got, want)
	}
}
