package httpx

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// AsyncRunner decides where connection sessions run and tracks the live
// ones so they can be force-closed on Stop.
type AsyncRunner interface {
	// Exec starts h.Run. It may block while the runner is at capacity.
	Exec(h *ClientHandler)
	// Closed is called by h.Run when the session has ended.
	Closed(h *ClientHandler)
	// CloseAll closes every live connection without waiting for sessions.
	CloseAll()
	// Running returns the number of live sessions.
	Running() int
}

// ConnStatus describes one live connection.
type ConnStatus struct {
	Accepted time.Time
	Remote   string
	requests atomic.Int64
}

// Requests returns the number of responses sent on the connection so far.
func (c *ConnStatus) Requests() int64 { return c.requests.Load() }

// ClientHandler owns one accepted connection.
type ClientHandler struct {
	srv    *Server
	conn   net.Conn
	runner AsyncRunner
	status *ConnStatus
}

func newClientHandler(s *Server, c net.Conn, r AsyncRunner) *ClientHandler {
	return &ClientHandler{
		srv:    s,
		conn:   c,
		runner: r,
		status: &ConnStatus{Accepted: time.Now(), Remote: c.RemoteAddr().String()},
	}
}

// Run serves the connection until it closes. The socket is closed and the
// runner notified on every exit path.
func (h *ClientHandler) Run() {
	defer func() {
		_ = h.conn.Close()
		h.runner.Closed(h)
		h.srv.meter().Counter("httpx.conn.closed", 1)
	}()
	if h.srv.closed.Load() {
		return
	}
	newSession(h.srv, h.conn, h.status).serve()
}

// Close closes the socket, which makes a blocked session return.
func (h *ClientHandler) Close() error { return h.conn.Close() }

func (h *ClientHandler) Status() *ConnStatus { return h.status }

// connRegistry is the live-connection set shared by the runners.
type connRegistry struct {
	live *xsync.MapOf[*ClientHandler, *ConnStatus]
}

func newConnRegistry() connRegistry {
	return connRegistry{live: xsync.NewMapOf[*ClientHandler, *ConnStatus]()}
}

func (r connRegistry) CloseAll() {
	r.live.Range(func(h *ClientHandler, _ *ConnStatus) bool {
		_ = h.Close()
		return true
	})
}

func (r connRegistry) Running() int { return r.live.Size() }

// Connections returns the status of every live connection.
func (r connRegistry) Connections() []*ConnStatus {
	out := make([]*ConnStatus, 0, r.live.Size())
	r.live.Range(func(_ *ClientHandler, st *ConnStatus) bool {
		out = append(out, st)
		return true
	})
	return out
}

// DefaultAsyncRunner runs every session on its own goroutine.
type DefaultAsyncRunner struct {
	connRegistry
	started atomic.Uint64
}

func NewDefaultAsyncRunner() *DefaultAsyncRunner {
	return &DefaultAsyncRunner{connRegistry: newConnRegistry()}
}

func (r *DefaultAsyncRunner) Exec(h *ClientHandler) {
	r.started.Add(1)
	r.live.Store(h, h.status)
	go h.Run()
}

func (r *DefaultAsyncRunner) Closed(h *ClientHandler) { r.live.Delete(h) }

// Started returns how many sessions have been executed in total.
func (r *DefaultAsyncRunner) Started() uint64 { return r.started.Load() }

// BoundedAsyncRunner runs at most n sessions at once. Exec blocks, and so
// does the accept loop, while all slots are taken.
type BoundedAsyncRunner struct {
	connRegistry
	slots chan struct{}
}

func NewBoundedAsyncRunner(n int) *BoundedAsyncRunner {
	if n <= 0 {
		n = 1
	}
	return &BoundedAsyncRunner{connRegistry: newConnRegistry(), slots: make(chan struct{}, n)}
}

func (r *BoundedAsyncRunner) Exec(h *ClientHandler) {
	r.slots <- struct{}{}
	r.live.Store(h, h.status)
	go h.Run()
}

func (r *BoundedAsyncRunner) Closed(h *ClientHandler) {
	if _, ok := r.live.LoadAndDelete(h); ok {
		<-r.slots
	}
}
