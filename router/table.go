package router

import (
	"sort"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"dqx0.com/go/nanoweb/httpx"
)

// Route is one installed (method, prefix, handler) binding.
type Route struct {
	Method  httpx.Method
	Prefix  string
	Handler httpx.Handler
	seq     uint64
}

// table holds every route keyed by its registration sequence. Readers work
// on ordered copies, so registering or releasing during a lookup is safe.
type table struct {
	seq    atomic.Uint64
	routes *xsync.MapOf[uint64, Route]
}

func newTable() *table {
	return &table{routes: xsync.NewMapOf[uint64, Route]()}
}

func (t *table) add(m httpx.Method, prefix string, h httpx.Handler) uint64 {
	seq := t.seq.Add(1)
	t.routes.Store(seq, Route{Method: m, Prefix: prefix, Handler: h, seq: seq})
	return seq
}

func (t *table) remove(seq uint64) { t.routes.Delete(seq) }

// snapshot returns the routes for m in registration order. m == 0 selects
// every method.
func (t *table) snapshot(m httpx.Method) []Route {
	out := make([]Route, 0, t.routes.Size())
	t.routes.Range(func(_ uint64, rt Route) bool {
		if m == 0 || rt.Method == m {
			out = append(out, rt)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Registration releases one installed route.
type Registration struct {
	t      *table
	seq    uint64
	route  Route
	closed atomic.Bool
}

// Close removes exactly the route this registration installed. Calling it
// again does nothing.
func (r *Registration) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	r.t.remove(r.seq)
	return nil
}

func (r *Registration) Method() httpx.Method { return r.route.Method }

func (r *Registration) Prefix() string { return r.route.Prefix }
