package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation policy for the file sink.
const (
	logFileName   = "guildleague.log"
	maxSizeMB     = 50
	maxBackups    = 5
	maxAgeDays    = 28
	consoleFormat = time.TimeOnly
)

// Options selects the level and an optional rotating file sink.
type Options struct {
	Level string // debug, info, warn or error
	Dir   string // empty logs to the console only
}

// Setup installs the default slog logger and returns a closer for the file sink.
// POST: slog.Default writes to stderr, and to Dir when set
func Setup(opts Options) (io.Closer, error) {
	level := ParseLevel(opts.Level)
	console := tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: consoleFormat})

	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		slog.SetDefault(slog.New(console))
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	fileHandler := tint.NewHandler(file, &tint.Options{Level: level, TimeFormat: time.RFC3339, NoColor: true})
	slog.SetDefault(slog.New(fanout{console, fileHandler}))
	slog.Info("logging_event", "event", "file_sink_enabled", "path", file.Filename)
	return file, nil
}

// ParseLevel maps a level name onto slog; unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
