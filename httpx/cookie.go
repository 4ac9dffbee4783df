package httpx

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimeFormat is the IMF-fixdate layout used for Date and cookie expiry.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Cookie is a cookie queued for a Set-Cookie response header.
type Cookie struct {
	Name    string
	Value   string
	Expires string
}

// NewCookie builds a cookie expiring numDays from now. A negative count
// yields an expiry in the past, which makes the client drop the cookie.
func NewCookie(name, value string, numDays int) *Cookie {
	return &Cookie{Name: name, Value: value, Expires: cookieExpiry(time.Now(), numDays)}
}

func cookieExpiry(now time.Time, numDays int) string {
	return now.UTC().AddDate(0, 0, numDays).Format(TimeFormat)
}

// HTTPHeader renders the Set-Cookie header value.
func (c *Cookie) HTTPHeader() string {
	return fmt.Sprintf("%s=%s; expires=%s", c.Name, c.Value, c.Expires)
}

// CookieHandler exposes the cookies sent with a request and collects the
// ones to send back with its response.
type CookieHandler struct {
	cookies map[string]string
	queue   []*Cookie
}

func newCookieHandler(headers map[string]string) *CookieHandler {
	h := &CookieHandler{cookies: make(map[string]string)}
	raw := headers["cookie"]
	if raw == "" {
		return h
	}
	for _, token := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(token), "=")
		if !ok || name == "" {
			continue
		}
		h.cookies[name] = value
	}
	return h
}

// Read returns the value of a request cookie, or "".
func (h *CookieHandler) Read(name string) string { return h.cookies[name] }

// Names lists request cookie names in sorted order.
func (h *CookieHandler) Names() []string {
	names := make([]string, 0, len(h.cookies))
	for n := range h.cookies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Set queues a cookie for the response.
func (h *CookieHandler) Set(name, value string, expiresDays int) {
	h.queue = append(h.queue, NewCookie(name, value, expiresDays))
}

// SetCookie queues a prepared cookie for the response.
func (h *CookieHandler) SetCookie(c *Cookie) { h.queue = append(h.queue, c) }

// Delete asks the client to drop a cookie.
func (h *CookieHandler) Delete(name string) { h.Set(name, "-delete-", -30) }

// unloadQueue moves queued cookies onto resp as Set-Cookie headers.
func (h *CookieHandler) unloadQueue(resp *Response) {
	for _, c := range h.queue {
		resp.AddHeader("Set-Cookie", c.HTTPHeader())
	}
	h.queue = nil
}
