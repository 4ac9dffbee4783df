package obs

import (
	"sort"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// Label is a key/value pair attached to measurements.
type Label struct {
	Key   string
	Value string
}

// Meter is a very small interface for emitting counters/histograms.
// Implementations may no-op or bridge to a metrics system.
type Meter interface {
	Counter(name string, value float64, labels ...Label)
	Histogram(name string, value float64, labels ...Label)
}

// NopMeter is a Meter that discards all measurements.
type NopMeter struct{}

func (NopMeter) Counter(name string, value float64, labels ...Label)   {}
func (NopMeter) Histogram(name string, value float64, labels ...Label) {}

// OrNopMeter returns m, or NopMeter when m is nil.
func OrNopMeter(m Meter) Meter {
	if m == nil {
		return NopMeter{}
	}
	return m
}

// CounterMeter keeps measurements in process so they can be inspected,
// e.g. by tests or a status endpoint. Values are truncated to integers.
// A histogram records two series: name+"_count" and name+"_sum".
type CounterMeter struct {
	series *xsync.MapOf[string, *xsync.Counter]
}

func NewCounterMeter() *CounterMeter {
	return &CounterMeter{series: xsync.NewMapOf[string, *xsync.Counter]()}
}

func (m *CounterMeter) Counter(name string, value float64, labels ...Label) {
	m.counter(seriesKey(name, labels)).Add(int64(value))
}

func (m *CounterMeter) Histogram(name string, value float64, labels ...Label) {
	m.counter(seriesKey(name+"_count", labels)).Inc()
	m.counter(seriesKey(name+"_sum", labels)).Add(int64(value))
}

// Value returns the current value of a series, 0 if it was never written.
func (m *CounterMeter) Value(name string, labels ...Label) int64 {
	c, ok := m.series.Load(seriesKey(name, labels))
	if !ok {
		return 0
	}
	return c.Value()
}

// Snapshot copies every series into a plain map.
func (m *CounterMeter) Snapshot() map[string]int64 {
	out := make(map[string]int64, m.series.Size())
	m.series.Range(func(k string, c *xsync.Counter) bool {
		out[k] = c.Value()
		return true
	})
	return out
}

func (m *CounterMeter) counter(key string) *xsync.Counter {
	c, _ := m.series.LoadOrCompute(key, xsync.NewCounter)
	return c
}

// seriesKey renders name{k=v,...} with labels sorted by key.
func seriesKey(name string, labels []Label) string {
	if len(labels) == 0 {
		return name
	}
	ls := append([]Label(nil), labels...)
	sort.Slice(ls, func(i, j int) bool { return ls[i].Key < ls[j].Key })
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, l := range ls {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.Key)
		b.WriteByte('=')
		b.WriteString(l.Value)
	}
	b.WriteByte('}')
	return b.String()
}
