package perf

import (
	"sync"
	"testing"
	"time"
)

func TestCollector_SnapshotSplitsKinds(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Path: "GET /admin", StatusCode: 200, DurationMs: 10, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "GET /admin", StatusCode: 200, DurationMs: 30, Timestamp: now})
	c.Record(Entry{Kind: KindQuery, Path: "exec INSERT INTO signups", DurationMs: 5, Timestamp: now})
	c.Record(Entry{Kind: KindChat, Path: "chat edit", DurationMs: 120, Timestamp: now})
	c.Record(Entry{Kind: KindChat, Path: "chat edit", StatusCode: 1, DurationMs: 80, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRecorded != 5 {
		t.Errorf("TotalRecorded = %d, want 5", snap.TotalRecorded)
	}
	if len(snap.SlowestPaths) != 1 || snap.SlowestPaths[0].AvgMs != 20 {
		t.Errorf("SlowestPaths = %+v, want one path averaging 20", snap.SlowestPaths)
	}
	if len(snap.SlowestQueries) != 1 {
		t.Errorf("SlowestQueries = %+v", snap.SlowestQueries)
	}
	if len(snap.SlowestChat) != 1 || snap.SlowestChat[0].MaxMs != 120 || snap.SlowestChat[0].Count != 2 {
		t.Errorf("SlowestChat = %+v", snap.SlowestChat)
	}
	if snap.ChatFailures != 1 {
		t.Errorf("ChatFailures = %d, want 1", snap.ChatFailures)
	}
}

func TestCollector_RingOverwritesOldest(t *testing.T) {
	c := NewCollector(3)
	now := time.Now()
	for i := 0; i < 5; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /x", DurationMs: float64(i), Timestamp: now})
	}
	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if got := snap.SlowestPaths[0]; got.Count != 3 || got.AvgMs != 3 {
		t.Errorf("kept %+v, want the last 3 entries (2,3,4)", got)
	}
}

func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()
	for i := 1; i <= 100; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /p", DurationMs: float64(i), Timestamp: now})
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	tests := []struct {
		name     string
		got      float64
		lo, high float64
	}{
		{"p50", snap.RequestP50Ms, 49, 51},
		{"p95", snap.RequestP95Ms, 94, 96},
		{"p99", snap.RequestP99Ms, 98, 100},
	}
	for _, tt := range tests {
		if tt.got < tt.lo || tt.got > tt.high {
			t.Errorf("%s = %v, want in [%v, %v]", tt.name, tt.got, tt.lo, tt.high)
		}
	}
}

func TestCollector_SnapshotSinceAndTopN(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()
	c.Record(Entry{Kind: KindChat, Path: "chat send", DurationMs: 900, Timestamp: now.Add(-2 * time.Hour)})
	for i, path := range []string{"chat edit", "chat layout", "chat voice"} {
		c.Record(Entry{Kind: KindChat, Path: path, DurationMs: float64(10 * (i + 1)), Timestamp: now})
	}

	snap := c.Snapshot(now.Add(-time.Hour), 2)
	if len(snap.SlowestChat) != 2 {
		t.Fatalf("SlowestChat len = %d, want 2", len(snap.SlowestChat))
	}
	if snap.SlowestChat[0].Path != "chat voice" || snap.SlowestChat[1].Path != "chat layout" {
		t.Errorf("SlowestChat = %+v", snap.SlowestChat)
	}
}

func TestCollector_ConcurrentWrites(t *testing.T) {
	c := NewCollector(1000)
	now := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Record(Entry{Kind: KindQuery, Path: "query SELECT", DurationMs: float64(n), Timestamp: now})
			}
		}(i)
	}
	wg.Wait()
	if c.TotalRecorded() != 1000 {
		t.Errorf("TotalRecorded = %d, want 1000", c.TotalRecorded())
	}
}

func BenchmarkCollectorRecord(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	e := Entry{Kind: KindChat, Path: "chat edit", DurationMs: 1.5, Timestamp: time.Now()}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Record(e)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		sorted []float64
		q      float64
		want   float64
	}{
		{[]float64{7}, 0.99, 7},
		{[]float64{10, 20}, 0.5, 15},
		{[]float64{1, 2, 3, 4, 5}, 0, 1},
		{[]float64{1, 2, 3, 4, 5}, 1, 5},
		{[]float64{1, 2, 3, 4, 5}, 0.25, 2},
	}
	for _, tt := range tests {
		if got := percentile(tt.sorted, tt.q); got != tt.want {
			t.Errorf("percentile(%v, %v) = %v, want %v", tt.sorted, tt.q, got, tt.want)
		}
	}
}
