package httpx

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dqx0.com/go/nanoweb/internal/obs"
)

// Handler produces the response for a request. A returned error is sent to
// the client as text/plain with the status carried by an *Error, or 500.
type Handler interface {
	Serve(*Request) (*Response, error)
}

type HandlerFunc func(*Request) (*Response, error)

func (f HandlerFunc) Serve(r *Request) (*Response, error) { return f(r) }

// Server accepts connections and runs one session per connection. The zero
// value serves 404 for every request on :8080.
type Server struct {
	Addr    string
	Handler Handler

	// SocketReadTimeout bounds how long any single read from the client may
	// wait, for the request head and body alike and between keep-alive
	// requests. A client that keeps sending is never cut off. Zero means
	// 5s; negative disables the timeout.
	SocketReadTimeout time.Duration
	// MaxHeaderBytes is the size of the per-connection read buffer, which
	// the request head must fit in. Zero means 8 KiB.
	MaxHeaderBytes int
	// MemoryStoreLimit is the largest request body kept in memory. Zero
	// means DefaultMemoryStoreLimit.
	MemoryStoreLimit int64

	// TempFileManagerFactory returns the temp-file manager of each request.
	// Nil uses a DefaultTempFileManager in the system temp dir.
	TempFileManagerFactory TempFileManagerFactory
	// Runner runs sessions. Nil uses a DefaultAsyncRunner.
	Runner AsyncRunner
	// SocketFactory binds the listener for Start and ListenAndServe.
	SocketFactory ServerSocketFactory
	// UseGzipWhenAccepted decides whether a response may be gzipped when
	// the client accepts it. Nil gzips MIME types containing "text/".
	UseGzipWhenAccepted func(*Response) bool

	Logger obs.Logger
	Meter  obs.Meter

	mu     sync.Mutex
	ln     net.Listener
	closed atomic.Bool
}

const defaultSocketReadTimeout = 5 * time.Second

// Start binds the listener and runs the accept loop on its own goroutine.
// The port is bound when Start returns.
func (s *Server) Start() error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	if err := s.track(ln); err != nil {
		_ = ln.Close()
		return err
	}
	go func() {
		if err := s.serve(ln); err != nil && !errors.Is(err, ErrServerClosed) {
			s.logger().Logf(obs.Error, "accept loop: %v", err)
		}
	}()
	return nil
}

// ListenAndServe binds the listener and blocks in the accept loop. It
// returns ErrServerClosed after Stop.
func (s *Server) ListenAndServe() error {
	ln, err := s.listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	if err := s.track(ln); err != nil {
		return err
	}
	return s.serve(ln)
}

func (s *Server) listen() (net.Listener, error) {
	addr := s.Addr
	if addr == "" {
		addr = ":8080"
	}
	f := s.SocketFactory
	if f == nil {
		f = DefaultSocketFactory{}
	}
	return f.Listen(addr)
}

func (s *Server) track(ln net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return ErrServerClosed
	}
	if s.ln != nil {
		return ErrServerStarted
	}
	s.ln = ln
	if s.Runner == nil {
		s.Runner = NewDefaultAsyncRunner()
	}
	s.logger().Logf(obs.Info, "listening on %s", ln.Addr())
	return nil
}

func (s *Server) serve(ln net.Listener) error {
	var delay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > time.Second {
				delay = time.Second
			}
			s.logger().Logf(obs.Warn, "accept error: %v; retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		delay = 0
		s.meter().Counter("httpx.conn.accepted", 1)
		s.Runner.Exec(newClientHandler(s, c, s.Runner))
	}
}

// Stop closes the listener and every live connection. It does not wait for
// sessions to finish; see Shutdown.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Swap(true) {
		return
	}
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger().Logf(obs.Warn, "closing listener: %v", err)
		}
	}
	if s.Runner != nil {
		s.Runner.CloseAll()
	}
	s.logger().Logf(obs.Info, "stopped")
}

// Shutdown stops the server and waits until every session has returned or
// ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Stop()
	s.mu.Lock()
	r := s.Runner
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for r.Running() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// IsAlive reports whether the server is bound and not stopped.
func (s *Server) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ln != nil && !s.closed.Load()
}

// ListenAddr returns the bound address, or nil before Start.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

var notFoundHandler = HandlerFunc(func(*Request) (*Response, error) {
	return NewFixedLengthResponse(StatusNotFound, MimePlaintext, "Not Found"), nil
})

func (s *Server) handler() Handler {
	if s.Handler == nil {
		return notFoundHandler
	}
	return s.Handler
}

func (s *Server) headerLimit() int {
	if s.MaxHeaderBytes <= 0 {
		return 8 << 10
	}
	return s.MaxHeaderBytes
}

func (s *Server) readTimeout() time.Duration {
	if s.SocketReadTimeout == 0 {
		return defaultSocketReadTimeout
	}
	return s.SocketReadTimeout
}

func (s *Server) memoryLimit() int64 {
	if s.MemoryStoreLimit <= 0 {
		return DefaultMemoryStoreLimit
	}
	return s.MemoryStoreLimit
}

func (s *Server) newTempFileManager() TempFileManager {
	if s.TempFileManagerFactory != nil {
		return s.TempFileManagerFactory()
	}
	return NewDefaultTempFileManager("", s.Logger)
}

func (s *Server) useGzip(r *Response) bool {
	if s.UseGzipWhenAccepted != nil {
		return s.UseGzipWhenAccepted(r)
	}
	return strings.Contains(r.MimeType, "text/")
}

func (s *Server) logger() obs.Logger { return obs.OrNop(s.Logger) }

func (s *Server) meter() obs.Meter { return obs.OrNopMeter(s.Meter) }
