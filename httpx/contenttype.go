package httpx

import (
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"dqx0.com/go/nanoweb/httpx/internal/http1"
)

const (
	MimePlaintext      = "text/plain"
	MimeHTML           = "text/html"
	MimeMultipartForm  = "multipart/form-data"
	MimeFormURLEncoded = "application/x-www-form-urlencoded"

	defaultCharset = "UTF-8"
)

var (
	charsetPattern  = regexp.MustCompile(`(?i)[ |\t]*charset[ |\t]*=[ |\t]*['|"]?([^"';,]*)['|"]?`)
	boundaryPattern = regexp.MustCompile(`(?i)[ |\t]*boundary[ |\t]*=[ |\t]*['|"]?([^"';,]*)['|"]?`)
)

// ContentType is a parsed Content-Type request header.
type ContentType struct {
	Header   string
	MimeType string // lower-cased, parameters stripped
	Charset  string
	Boundary string
}

func ParseContentType(header string) ContentType {
	ct := ContentType{Header: header}
	mt, _, _ := strings.Cut(header, ";")
	ct.MimeType = strings.ToLower(strings.TrimSpace(mt))
	if ct.MimeType == "" {
		ct.MimeType = MimePlaintext
	}
	if m := charsetPattern.FindStringSubmatch(header); m != nil {
		ct.Charset = strings.TrimSpace(m[1])
	}
	if ct.IsMultipart() {
		if m := boundaryPattern.FindStringSubmatch(header); m != nil {
			ct.Boundary = strings.TrimSpace(m[1])
		}
	}
	return ct
}

func (c ContentType) IsMultipart() bool { return c.MimeType == MimeMultipartForm }

// EncodingOrDefault returns the declared charset, or UTF-8.
func (c ContentType) EncodingOrDefault() string {
	if c.Charset == "" {
		return defaultCharset
	}
	return c.Charset
}

// DecodeText converts body text in the declared charset to UTF-8. Text
// without a charset, in UTF-8, or in a charset the WHATWG index does not
// know is returned unchanged.
func (c ContentType) DecodeText(b []byte) string {
	cs := strings.ToLower(c.Charset)
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return string(b)
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return string(b)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// decodeParams converts url-encoded pairs, already percent-decoded, from the
// declared charset and appends them to dst.
func (c ContentType) decodeParams(raw string, dst map[string][]string) {
	tmp := make(map[string][]string)
	http1.DecodeQuery(raw, tmp)
	for k, vv := range tmp {
		key := c.DecodeText([]byte(k))
		for _, v := range vv {
			dst[key] = append(dst[key], c.DecodeText([]byte(v)))
		}
	}
}
