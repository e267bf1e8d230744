// Package perf keeps a bounded in-memory record of how long dashboard requests,
// store queries and chat platform calls take.
package perf

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is how many entries a collector keeps when asked for none.
const DefaultRingSize = 10000

// EntryKind says what was timed.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
	KindChat
)

// Entry is one timed operation.
type Entry struct {
	Kind       EntryKind
	Path       string // "GET /path", "query SELECT ..." or "chat edit"
	StatusCode int    // HTTP status; 0 for queries, non-zero marks a failed chat call
	DurationMs float64
	Timestamp  time.Time
}

// Collector keeps the newest entries in a ring. Recording is O(1);
// all aggregation is deferred to Snapshot.
type Collector struct {
	mu    sync.Mutex
	ring  []Entry
	next  int
	total atomic.Int64
}

// NewCollector holds up to size entries; size <= 0 means DefaultRingSize.
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{ring: make([]Entry, size)}
}

// Record stores e, overwriting the oldest entry once the ring is full.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.ring[c.next] = e
	c.next = (c.next + 1) % len(c.ring)
	c.mu.Unlock()
	c.total.Add(1)
}

// TotalRecorded counts every entry ever recorded, overwritten ones included.
func (c *Collector) TotalRecorded() int64 { return c.total.Load() }

// PathStat aggregates the timings of one path, query or chat operation.
type PathStat struct {
	Path    string
	AvgMs   float64
	MaxMs   float64
	Count   int
	TotalMs float64
}

// Snapshot is the perf page's view of a time window.
type Snapshot struct {
	TotalRecorded  int64
	RequestP50Ms   float64
	RequestP95Ms   float64
	RequestP99Ms   float64
	SlowestPaths   []PathStat
	SlowestQueries []PathStat
	SlowestChat    []PathStat
	ChatFailures   int
}

// Snapshot aggregates entries stamped at or after since.
// POST: each Slowest list holds at most topN stats, highest average first
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	window := make([]Entry, 0, len(c.ring))
	for _, e := range c.ring {
		if !e.Timestamp.IsZero() && !e.Timestamp.Before(since) {
			window = append(window, e)
		}
	}
	c.mu.Unlock()

	groups := [3]map[string]*PathStat{{}, {}, {}}
	var requests []float64
	snap := Snapshot{TotalRecorded: c.TotalRecorded()}
	for _, e := range window {
		if int(e.Kind) >= len(groups) {
			continue
		}
		switch e.Kind {
		case KindRequest:
			requests = append(requests, e.DurationMs)
		case KindChat:
			if e.StatusCode != 0 {
				snap.ChatFailures++
			}
		}
		s := groups[e.Kind][e.Path]
		if s == nil {
			s = &PathStat{Path: e.Path}
			groups[e.Kind][e.Path] = s
		}
		s.Count++
		s.TotalMs += e.DurationMs
		s.MaxMs = max(s.MaxMs, e.DurationMs)
	}

	snap.SlowestPaths = slowest(groups[KindRequest], topN)
	snap.SlowestQueries = slowest(groups[KindQuery], topN)
	snap.SlowestChat = slowest(groups[KindChat], topN)
	if len(requests) > 0 {
		slices.Sort(requests)
		snap.RequestP50Ms = percentile(requests, 0.50)
		snap.RequestP95Ms = percentile(requests, 0.95)
		snap.RequestP99Ms = percentile(requests, 0.99)
	}
	return snap
}

// percentile interpolates linearly between the ranks around q.
// PRE: sorted is ascending and non-empty; 0 <= q <= 1
func percentile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	i := int(pos)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i] + (sorted[i+1]-sorted[i])*frac
}

func slowest(group map[string]*PathStat, n int) []PathStat {
	out := make([]PathStat, 0, len(group))
	for _, s := range group {
		s.AvgMs = s.TotalMs / float64(s.Count)
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b PathStat) int {
		if c := cmp.Compare(b.AvgMs, a.AvgMs); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	return out[:min(n, len(out))]
}
