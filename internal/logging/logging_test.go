package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFanout_RespectsEachHandlerLevel(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	logger := slog.New(h).With("component", "test")

	logger.Debug("quiet_event")
	logger.Warn("loud_event")

	if !strings.Contains(debugBuf.String(), "quiet_event") || !strings.Contains(debugBuf.String(), "loud_event") {
		t.Errorf("debug sink = %q", debugBuf.String())
	}
	if strings.Contains(warnBuf.String(), "quiet_event") {
		t.Errorf("warn sink received debug record: %q", warnBuf.String())
	}
	if !strings.Contains(warnBuf.String(), "component=test") {
		t.Errorf("attrs not propagated: %q", warnBuf.String())
	}
	if h.Enabled(context.Background(), slog.LevelDebug-4) {
		t.Error("fanout enabled below every handler's level")
	}
}

func TestSetup_WritesFileSink(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	closer, err := Setup(Options{Level: "info", Dir: dir})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	slog.Info("roster_event", "event", "slot_joined")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "slot_joined") {
		t.Errorf("log file = %q", data)
	}
}
