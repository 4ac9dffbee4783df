package http1

import (
	"bytes"
	"errors"
	"io"
)

// DefaultScanWindow bounds the memory used to search a body for multipart
// delimiters.
const DefaultScanWindow = 4 << 10

// ScanBoundaries returns the offset of every occurrence of delim in the
// first size bytes of src. The body is read through a single window of the
// given size; consecutive windows overlap by len(delim)-1 bytes so that a
// delimiter straddling two reads is still found, and found exactly once.
func ScanBoundaries(src io.ReaderAt, size int64, delim []byte, window int) ([]int64, error) {
	if len(delim) == 0 {
		return nil, errors.New("http1: empty boundary")
	}
	if window <= len(delim) {
		window = len(delim) * 2
	}
	step := int64(window - len(delim) + 1)
	buf := make([]byte, window)
	var offsets []int64
	for off := int64(0); off < size; off += step {
		n := int64(window)
		if off+n > size {
			n = size - off
		}
		if n < int64(len(delim)) {
			break
		}
		got, err := src.ReadAt(buf[:n], off)
		if int64(got) < n {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		last := off+n >= size
		for i := 0; ; {
			j := bytes.Index(buf[i:n], delim)
			if j < 0 {
				break
			}
			pos := int64(i + j)
			// Matches starting in the overlap belong to the next window.
			if !last && pos >= step {
				break
			}
			offsets = append(offsets, off+pos)
			i += j + len(delim)
			if int64(i) >= n {
				break
			}
		}
		if last {
			break
		}
	}
	return offsets, nil
}
