package httpx

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"dqx0.com/go/nanoweb/httpx/internal/http1"
)

// maxPartHeaderSize bounds the header block read at each boundary.
const maxPartHeaderSize = 1024

type partHead struct {
	name        string
	filename    string
	contentType string
}

// decodeMultipart splits a multipart/form-data body at its boundaries.
// Parts without a Content-Type become Params values; parts with one are
// copied to temp files listed in Files.
func (r *Request) decodeMultipart(ct ContentType, src io.ReaderAt, size int64) error {
	delim := []byte("--" + ct.Boundary)
	offsets, err := http1.ScanBoundaries(src, size, delim, r.body.window)
	if err != nil {
		return NewResourceError("SERVER INTERNAL ERROR: cannot scan multipart body", err)
	}
	if len(offsets) == 0 {
		if size == 0 {
			return nil
		}
		return NewProtocolError("BAD REQUEST: Content type is multipart/form-data but the body contains no boundary.")
	}

	hdr := make([]byte, maxPartHeaderSize)
	for i := 0; i+1 < len(offsets); i++ {
		start, next := offsets[i], offsets[i+1]
		n := int64(len(hdr))
		if start+n > size {
			n = size - start
		}
		got, err := src.ReadAt(hdr[:n], start)
		if int64(got) < n {
			return NewResourceError("SERVER INTERNAL ERROR: cannot read multipart body", err)
		}
		part, headLen, perr := parsePartHead(hdr[:n], delim)
		if perr != nil {
			return perr
		}
		dataStart := start + headLen
		dataEnd, err := partDataEnd(src, dataStart, next)
		if err != nil {
			return err
		}

		if part.contentType == "" {
			value, err := io.ReadAll(io.NewSectionReader(src, dataStart, dataEnd-dataStart))
			if err != nil {
				return NewResourceError("SERVER INTERNAL ERROR: cannot read multipart body", err)
			}
			r.Params[part.name] = append(r.Params[part.name], ct.DecodeText(value))
			continue
		}
		path, err := r.saveTempFile(src, dataStart, dataEnd-dataStart, part.filename)
		if err != nil {
			return err
		}
		r.Files[uniqueFileKey(r.Files, part.name)] = path
		r.Params[part.name] = append(r.Params[part.name], part.filename)
	}
	return nil
}

// parsePartHead parses the delimiter line and part headers at the start of
// buf and returns the head length including its blank line.
func parsePartHead(buf, delim []byte) (partHead, int64, error) {
	end, skip := http1.FindHeadEnd(buf)
	if end < 0 {
		return partHead{}, 0, NewProtocolError("BAD REQUEST: multipart part header is unterminated or too large.")
	}
	first, lines := http1.SplitHead(buf[:end])
	if !strings.HasPrefix(first, string(delim)) {
		return partHead{}, 0, NewProtocolError("BAD REQUEST: Content type is multipart/form-data but chunk does not start with boundary.")
	}
	h := http1.ParseHeaderLines(lines)
	disp := h["content-disposition"]
	if disp == "" {
		return partHead{}, 0, NewProtocolError("BAD REQUEST: multipart part has no Content-Disposition.")
	}
	_, params, err := mime.ParseMediaType(disp)
	if err != nil {
		return partHead{}, 0, NewProtocolError("BAD REQUEST: malformed Content-Disposition: " + err.Error())
	}
	if params["name"] == "" {
		return partHead{}, 0, NewProtocolError("BAD REQUEST: multipart part has no field name.")
	}
	return partHead{
		name:        params["name"],
		filename:    params["filename"],
		contentType: h["content-type"],
	}, int64(end + skip), nil
}

// partDataEnd returns where a part's data stops: before the line break that
// precedes the next delimiter.
func partDataEnd(src io.ReaderAt, dataStart, next int64) (int64, error) {
	end := next
	var tail [2]byte
	if end-2 >= dataStart {
		if _, err := src.ReadAt(tail[:], end-2); err != nil {
			return 0, NewResourceError("SERVER INTERNAL ERROR: cannot read multipart body", err)
		}
		if tail[0] == '\r' && tail[1] == '\n' {
			return end - 2, nil
		}
	}
	if end-1 >= dataStart {
		if _, err := src.ReadAt(tail[:1], end-1); err != nil {
			return 0, NewResourceError("SERVER INTERNAL ERROR: cannot read multipart body", err)
		}
		if tail[0] == '\n' {
			return end - 1, nil
		}
	}
	if end < dataStart {
		return 0, NewProtocolError("BAD REQUEST: multipart part overlaps the next boundary.")
	}
	return end, nil
}

// uniqueFileKey returns name, or name2, name3, ... for repeated fields.
func uniqueFileKey(files map[string]string, name string) string {
	if _, dup := files[name]; !dup {
		return name
	}
	for c := 2; ; c++ {
		k := fmt.Sprintf("%s%d", name, c)
		if _, dup := files[k]; !dup {
			return k
		}
	}
}
