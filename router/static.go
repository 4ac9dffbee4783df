package router

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"dqx0.com/go/nanoweb/httpx"
	"dqx0.com/go/nanoweb/internal/obs"
)

var errUnsatisfiable = errors.New("router: range not satisfiable")

type fileBody struct {
	io.Reader
	io.Closer
}

// serveStatic answers with the file at the cleaned request path under the
// static root. ok is false when no regular file exists there.
func (r *Router) serveStatic(req *httpx.Request) (*httpx.Response, bool, error) {
	clean := path.Clean("/" + req.URI)
	full := filepath.Join(r.root, filepath.FromSlash(clean))
	fi, err := os.Stat(full)
	if err == nil && fi.IsDir() {
		full = filepath.Join(full, "index.html")
		fi, err = os.Stat(full)
	}
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.log.Logf(obs.Debug, "router: stat %s: %v", full, err)
		}
		return nil, false, nil
	}
	if !fi.Mode().IsRegular() {
		return nil, false, nil
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, false, httpx.NewStatusError(httpx.StatusForbidden, "FORBIDDEN: Reading file failed.")
	}

	size := fi.Size()
	mimeType := httpx.MimeTypeForFile(full)
	start, end, ranged, err := parseRange(req.Header("range"), size)
	if errors.Is(err, errUnsatisfiable) {
		_ = f.Close()
		resp := httpx.NewFixedLengthResponse(httpx.StatusRangeNotSatisfiable, httpx.MimePlaintext, "Requested range not satisfiable")
		resp.AddHeader("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
		return resp, true, nil
	}

	var resp *httpx.Response
	if ranged {
		n := end - start + 1
		resp = httpx.NewResponse(httpx.StatusPartialContent, mimeType,
			fileBody{io.NewSectionReader(f, start, n), f}, n)
		resp.AddHeader("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		resp.AddHeader("Content-Length", strconv.FormatInt(n, 10))
	} else {
		resp = httpx.NewResponse(httpx.StatusOK, mimeType, f, size)
	}
	resp.AddHeader("Accept-Ranges", "bytes")
	resp.AddHeader("Last-Modified", fi.ModTime().UTC().Format(httpx.TimeFormat))
	return resp, true, nil
}

// parseRange handles a single "bytes=" range. Syntax it does not
// understand, including multiple ranges, is ignored and the whole file is
// served.
func parseRange(h string, size int64) (start, end int64, ok bool, err error) {
	set, found := strings.CutPrefix(strings.TrimSpace(h), "bytes=")
	if !found || strings.Contains(set, ",") {
		return 0, 0, false, nil
	}
	a, b, found := strings.Cut(strings.TrimSpace(set), "-")
	if !found {
		return 0, 0, false, nil
	}
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" {
		n, perr := strconv.ParseInt(b, 10, 64)
		if perr != nil {
			return 0, 0, false, nil
		}
		if n <= 0 || size == 0 {
			return 0, 0, false, errUnsatisfiable
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true, nil
	}
	start, perr := strconv.ParseInt(a, 10, 64)
	if perr != nil || start < 0 {
		return 0, 0, false, nil
	}
	end = size - 1
	if b != "" {
		if end, perr = strconv.ParseInt(b, 10, 64); perr != nil {
			return 0, 0, false, nil
		}
		if end >= size {
			end = size - 1
		}
	}
	if start >= size || end < start {
		return 0, 0, false, errUnsatisfiable
	}
	return start, end, true, nil
}
