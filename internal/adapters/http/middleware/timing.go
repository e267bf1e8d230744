package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"guildleague/internal/adapters/http/perf"
)

// DefaultSlowRequestMs is the threshold used when none is configured.
const DefaultSlowRequestMs = 200

var requestSeq atomic.Uint64

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Timing logs every dashboard request and records it to collector when set.
// Requests slower than slowMs log at WARN, the rest at DEBUG. Static assets are skipped.
// A non-positive slowMs falls back to DefaultSlowRequestMs.
func Timing(collector *perf.Collector, slowMs int) func(http.Handler) http.Handler {
	if slowMs <= 0 {
		slowMs = DefaultSlowRequestMs
	}
	threshold := float64(slowMs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/static/") {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				ms := float64(time.Since(start).Microseconds()) / 1000.0
				attrs := []any{
					"request_id", requestSeq.Add(1),
					"method", r.Method,
					"path", r.URL.Path,
					"status", rec.status,
					"bytes", rec.bytes,
					"duration_ms", ms,
				}
				if ms >= threshold {
					slog.Warn("slow_request", attrs...)
				} else {
					slog.Debug("request", attrs...)
				}
				if collector != nil {
					collector.Record(perf.Entry{
						Kind:       perf.KindRequest,
						Path:       r.Method + " " + r.URL.Path,
						StatusCode: rec.status,
						DurationMs: ms,
						Timestamp:  start,
					})
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
