package httpx

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	idSeq atomic.Uint64
	// randRead is swapped in tests to exercise the fallbacks.
	randRead = rand.Read
)

// genID returns a 32-hex request id. If the random source fails, the id
// is built from the clock and a process-wide sequence instead.
func genID() string {
	var b [16]byte
	if _, err := randRead(b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return strconv.FormatInt(time.Now().UnixNano(), 16) + "-" + strconv.FormatUint(idSeq.Add(1), 16)
}
