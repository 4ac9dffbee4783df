package http1

import (
	"net/url"
	"strings"
)

// DecodePercent decodes %XX escapes and '+' as space. Malformed input is
// returned unchanged.
func DecodePercent(s string) string {
	v, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return v
}

// DecodePath percent-decodes a request path. '+' is kept literally.
func DecodePath(s string) string {
	v, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return v
}

// DecodeQuery parses "a=1&b=&c" style parameters into dst. Keys may repeat;
// values keep arrival order. A pair without '=' gets an empty value and
// empty segments are ignored.
func DecodeQuery(raw string, dst map[string][]string) {
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		k, v, _ := strings.Cut(seg, "=")
		k = strings.TrimSpace(DecodePercent(k))
		if k == "" {
			continue
		}
		dst[k] = append(dst[k], DecodePercent(v))
	}
}
