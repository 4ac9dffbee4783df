// Package router dispatches requests to handlers by method and path prefix
// and falls back to files under a static root.
//
// By default GET (and every other method except POST) picks the longest
// matching prefix, while POST picks the first registered match. WithMatcher
// overrides the policy per method.
package router

import (
	"strings"

	"dqx0.com/go/nanoweb/httpx"
	"dqx0.com/go/nanoweb/internal/obs"
)

// Router implements httpx.Handler.
type Router struct {
	routes   *table
	matchers map[httpx.Method]Matcher
	root     string
	log      obs.Logger
}

type Option func(*Router)

// WithStaticRoot serves regular files under dir for GET and HEAD requests
// no handler matched.
func WithStaticRoot(dir string) Option {
	return func(r *Router) { r.root = dir }
}

// WithMatcher sets the matching policy for one method.
func WithMatcher(m httpx.Method, fn Matcher) Option {
	return func(r *Router) { r.matchers[m] = fn }
}

func WithLogger(l obs.Logger) Option {
	return func(r *Router) { r.log = obs.OrNop(l) }
}

func New(opts ...Option) *Router {
	r := &Router{
		routes:   newTable(),
		matchers: map[httpx.Method]Matcher{httpx.MethodPost: FirstPrefix},
		log:      obs.NopLogger{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register installs h for requests of method m whose path starts with
// prefix. The returned Registration removes it again.
func (r *Router) Register(m httpx.Method, prefix string, h httpx.Handler) *Registration {
	seq := r.routes.add(m, prefix, h)
	r.log.Logf(obs.Debug, "router: registered %s %s", m, prefix)
	return &Registration{t: r.routes, seq: seq, route: Route{Method: m, Prefix: prefix, Handler: h}}
}

func (r *Router) Get(prefix string, h httpx.HandlerFunc) *Registration {
	return r.Register(httpx.MethodGet, prefix, h)
}

func (r *Router) Post(prefix string, h httpx.HandlerFunc) *Registration {
	return r.Register(httpx.MethodPost, prefix, h)
}

// Routes lists the installed routes in registration order.
func (r *Router) Routes() []Route { return r.routes.snapshot(0) }

func (r *Router) matcher(m httpx.Method) Matcher {
	if fn, ok := r.matchers[m]; ok {
		return fn
	}
	return LongestPrefix
}

func (r *Router) lookup(m httpx.Method, path string) (Route, bool) {
	return r.matcher(m)(r.routes.snapshot(m), path)
}

func (r *Router) Serve(req *httpx.Request) (*httpx.Response, error) {
	if rt, ok := r.lookup(req.Method, req.URI); ok {
		return rt.Handler.Serve(req)
	}
	if req.Method == httpx.MethodHead {
		if rt, ok := r.lookup(httpx.MethodGet, req.URI); ok {
			return rt.Handler.Serve(req)
		}
	}
	if r.root != "" && (req.Method == httpx.MethodGet || req.Method == httpx.MethodHead) {
		resp, ok, err := r.serveStatic(req)
		if err != nil || ok {
			return resp, err
		}
	}
	return r.notFound(), nil
}

// notFound lists the installed handlers in a plain-text 404.
func (r *Router) notFound() *httpx.Response {
	var b strings.Builder
	b.WriteString("Not Found\n\nInstalled handlers:\n")
	for _, rt := range r.Routes() {
		b.WriteString("  ")
		b.WriteString(rt.Method.String())
		b.WriteByte(' ')
		b.WriteString(rt.Prefix)
		b.WriteByte('\n')
	}
	return httpx.NewFixedLengthResponse(httpx.StatusNotFound, httpx.MimePlaintext, b.String())
}
