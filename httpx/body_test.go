package httpx

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"

	"dqx0.com/go/nanoweb/httpx/internal/http1"
)

// newBodyRequest builds a request whose body is read from raw, the way a
// session leaves it after parsing the head.
func newBodyRequest(t *testing.T, m Method, contentType, raw string, limit int64) (*Request, *DefaultTempFileManager) {
	t.Helper()
	tmp := NewDefaultTempFileManager(t.TempDir(), nil)
	t.Cleanup(tmp.Clear)
	r := newRequest(m, "HTTP/1.1")
	r.Headers["content-type"] = contentType
	r.Headers["content-length"] = strconv.Itoa(len(raw))
	r.body = &requestBody{
		br:      bufio.NewReader(strings.NewReader(raw)),
		length:  int64(len(raw)),
		limit:   limit,
		maxLine: 4096,
		window:  http1.DefaultScanWindow,
		tmp:     tmp,
	}
	return r, tmp
}

func multipartBody(boundary string, parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString("--" + boundary + "\r\n" + p + "\r\n")
	}
	b.WriteString("--" + boundary + "--\r\n")
	return b.String()
}

func TestParseBody_URLEncoded(t *testing.T) {
	r, _ := newBodyRequest(t, MethodPost, MimeFormURLEncoded+"; charset=UTF-8", "a=1&b=x%20y&a=2&empty=", DefaultMemoryStoreLimit)
	if err := r.ParseBody(); err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if got := r.Params["a"]; len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Fatalf("a=%q", got)
	}
	if r.Param("b") != "x y" {
		t.Fatalf("b=%q", r.Param("b"))
	}
	if vv, ok := r.Params["empty"]; !ok || vv[0] != "" {
		t.Fatalf("empty=%q ok=%v", vv, ok)
	}
}

func TestParseBody_PostData(t *testing.T) {
	r, _ := newBodyRequest(t, MethodPost, "application/json", `{"k":"v"}`, DefaultMemoryStoreLimit)
	if err := r.ParseBody(); err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if got := r.Param("postData"); got != `{"k":"v"}` {
		t.Fatalf("postData=%q", got)
	}
}

func TestParseBody_Multipart(t *testing.T) {
	const bnd = "XyZ"
	raw := multipartBody(bnd,
		"Content-Disposition: form-data; name=\"title\"\r\n\r\nhello world",
		"Content-Disposition: form-data; name=\"f\"; filename=\"a.txt\"\r\nContent-Type: text/plain\r\n\r\nAAA",
		"Content-Disposition: form-data; name=\"f\"; filename=\"b.txt\"\r\nContent-Type: text/plain\r\n\r\nBBBB",
		"Content-Disposition: form-data; name=\"title\"\r\n\r\nsecond",
	)
	r, _ := newBodyRequest(t, MethodPost, "multipart/form-data; boundary=\""+bnd+"\"", raw, DefaultMemoryStoreLimit)
	if err := r.ParseBody(); err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if got := r.Params["title"]; len(got) != 2 || got[0] != "hello world" || got[1] != "second" {
		t.Fatalf("title=%q", got)
	}
	if got := r.Params["f"]; len(got) != 2 || got[0] != "a.txt" || got[1] != "b.txt" {
		t.Fatalf("filenames=%q", got)
	}
	for key, want := range map[string]string{"f": "AAA", "f2": "BBBB"} {
		b, err := os.ReadFile(r.Files[key])
		if err != nil || string(b) != want {
			t.Fatalf("file %s=%q err=%v", key, b, err)
		}
	}
}

func TestParseBody_MultipartSpooled(t *testing.T) {
	const bnd = "----boundary0042"
	big := strings.Repeat("0123456789", 1000)
	raw := multipartBody(bnd,
		"Content-Disposition: form-data; name=\"small\"\r\n\r\nx",
		"Content-Disposition: form-data; name=\"big\"; filename=\"big.bin\"\r\nContent-Type: application/octet-stream\r\n\r\n"+big,
	)
	r, tmp := newBodyRequest(t, MethodPost, "multipart/form-data; boundary="+bnd, raw, 1024)
	if err := r.ParseBody(); err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if r.Param("small") != "x" {
		t.Fatalf("small=%q", r.Param("small"))
	}
	b, err := os.ReadFile(r.Files["big"])
	if err != nil || string(b) != big {
		t.Fatalf("big file: %d bytes err=%v", len(b), err)
	}
	// One file for the spooled body, one for the part.
	if n := len(tmp.files); n != 2 {
		t.Fatalf("temp files=%d, want 2", n)
	}
	tmp.Clear()
	if _, err := os.Stat(r.Files["big"]); !os.IsNotExist(err) {
		t.Fatalf("part file survived Clear: %v", err)
	}
}

func TestParseBody_MultipartErrors(t *testing.T) {
	cases := []struct {
		name, ct, raw string
	}{
		{"no boundary param", "multipart/form-data", "x"},
		{"no boundary in body", "multipart/form-data; boundary=abc", "just some text"},
		{"no name", "multipart/form-data; boundary=abc", multipartBody("abc", "Content-Disposition: form-data\r\n\r\nv")},
		{"no disposition", "multipart/form-data; boundary=abc", multipartBody("abc", "X-Other: 1\r\n\r\nv")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newBodyRequest(t, MethodPost, tc.ct, tc.raw, DefaultMemoryStoreLimit)
			err := r.ParseBody()
			var e *Error
			if !errors.As(err, &e) || e.Kind != KindProtocol || e.Status != StatusBadRequest {
				t.Fatalf("err=%v", err)
			}
		})
	}
}

func TestParseBody_EmptyMultipart(t *testing.T) {
	r, _ := newBodyRequest(t, MethodPost, "multipart/form-data; boundary=abc", "", DefaultMemoryStoreLimit)
	if err := r.ParseBody(); err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if len(r.Params) != 0 || len(r.Files) != 0 {
		t.Fatalf("params=%v files=%v", r.Params, r.Files)
	}
}

func TestParseBody_Put(t *testing.T) {
	payload := strings.Repeat("p", 3000)
	r, _ := newBodyRequest(t, MethodPut, "application/octet-stream", payload, DefaultMemoryStoreLimit)
	if err := r.ParseBody(); err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	b, err := os.ReadFile(r.Files["content"])
	if err != nil || string(b) != payload {
		t.Fatalf("content: %d bytes err=%v", len(b), err)
	}
}

func TestParseBody_ShortBody(t *testing.T) {
	r, _ := newBodyRequest(t, MethodPost, MimeFormURLEncoded, "a=1", DefaultMemoryStoreLimit)
	r.body.length = 10
	err := r.ParseBody()
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindIO {
		t.Fatalf("err=%v, want io error", err)
	}
}

func TestParseBody_Once(t *testing.T) {
	r, _ := newBodyRequest(t, MethodPost, MimeFormURLEncoded, "a=1", DefaultMemoryStoreLimit)
	for i := 0; i < 2; i++ {
		if err := r.ParseBody(); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if got := r.Params["a"]; len(got) != 1 {
		t.Fatalf("body decoded twice: a=%q", got)
	}
}

func TestParseBody_NoLengthUsesBuffered(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("GET / HTTP/1.1\r\n\r\nk=v"))
	if _, err := http1.ReadHead(br); err != nil {
		t.Fatalf("ReadHead: %v", err)
	}
	tmp := NewDefaultTempFileManager(t.TempDir(), nil)
	defer tmp.Clear()
	r := newRequest(MethodPost, "HTTP/1.1")
	r.Headers["content-type"] = MimeFormURLEncoded
	r.body = &requestBody{br: br, length: -1, limit: DefaultMemoryStoreLimit, maxLine: 4096, window: http1.DefaultScanWindow, tmp: tmp}
	if err := r.ParseBody(); err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if r.Param("k") != "v" {
		t.Fatalf("k=%q", r.Param("k"))
	}
}

func TestUniqueFileKey(t *testing.T) {
	files := map[string]string{}
	for _, want := range []string{"f", "f2", "f3"} {
		k := uniqueFileKey(files, "f")
		if k != want {
			t.Fatalf("key=%q, want %q", k, want)
		}
		files[k] = "x"
	}
}

func TestParseContentType(t *testing.T) {
	ct := ParseContentType(`Multipart/Form-Data; charset=ISO-8859-1; boundary="abc123"`)
	if ct.MimeType != MimeMultipartForm || ct.Boundary != "abc123" || ct.Charset != "ISO-8859-1" {
		t.Fatalf("parsed %+v", ct)
	}
	ct = ParseContentType("")
	if ct.MimeType != MimePlaintext || ct.EncodingOrDefault() != "UTF-8" || ct.Boundary != "" {
		t.Fatalf("default %+v", ct)
	}
	if ct := ParseContentType("text/html; boundary=x"); ct.Boundary != "" {
		t.Fatalf("boundary parsed for non-multipart: %+v", ct)
	}
}

func TestParseBody_ChunkFormatIsProtocolError(t *testing.T) {
	r, _ := newBodyRequest(t, MethodPost, MimeFormURLEncoded, "3\r\na=1XX0\r\n\r\n", DefaultMemoryStoreLimit)
	r.body.length = -1
	r.body.chunked = true
	err := r.ParseBody()
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindProtocol || e.Status != StatusBadRequest {
		t.Fatalf("err=%v, want 400 protocol error", err)
	}
	if !errors.Is(err, http1.ErrChunkFormat) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestParseBody_DeclaredCharset(t *testing.T) {
	r, _ := newBodyRequest(t, MethodPost, MimeFormURLEncoded+"; charset=ISO-8859-1", "name=Ren%E9&city=K%F6ln", DefaultMemoryStoreLimit)
	if err := r.ParseBody(); err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if r.Param("name") != "René" || r.Param("city") != "Köln" {
		t.Fatalf("name=%q city=%q", r.Param("name"), r.Param("city"))
	}

	r, _ = newBodyRequest(t, MethodPost, "text/plain; charset=iso-8859-1", "caf\xe9", DefaultMemoryStoreLimit)
	if err := r.ParseBody(); err != nil {
		t.Fatalf("ParseBody: %v", err)
	}
	if got := r.Param("postData"); got != "café" {
		t.Fatalf("postData=%q", got)
	}
}

func TestDecodeText(t *testing.T) {
	cases := []struct {
		charset, in, want string
	}{
		{"", "caf\xc3\xa9", "café"},
		{"UTF-8", "caf\xc3\xa9", "café"},
		{"windows-1252", "\x80", "€"},
		{"x-unknown", "raw\xe9", "raw\xe9"},
	}
	for _, tc := range cases {
		if got := (ContentType{Charset: tc.charset}).DecodeText([]byte(tc.in)); got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.charset, got, tc.want)
		}
	}
}
