package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvProduction is the APP_ENV value that turns on secure cookies and strict keys.
const EnvProduction = "production"

// Defaults applied when a variable is unset.
const (
	DefaultDatabasePath        = "league.db"
	DefaultDashboardAddr       = ":3000"
	DefaultAdminUsername       = "admin"
	DefaultLogLevel            = "info"
	DefaultRenderRetryInterval = time.Minute
	DefaultChatRatePerSecond   = 5.0
	DefaultNameCacheSize       = 2048
	DefaultNameCacheTTL        = 30 * time.Minute
	DefaultSlowQueryMs         = 100
	DefaultSlowRequestMs       = 200
)

// csrfKeyLength is the byte length gorilla/csrf expects for its auth key.
const csrfKeyLength = 32

// Config is the process configuration, read once at startup.
type Config struct {
	Env string

	// Discord gateway. An empty token runs the dashboard alone.
	DiscordToken   string
	DiscordGuildID string // scopes slash command registration; empty registers globally

	DatabasePath  string
	DashboardAddr string
	AdminUsername string
	AdminPassword string
	CSRFKey       []byte

	LogLevel string
	LogDir   string

	GameLogScope string

	ResendAPIKey    string
	ReportEmailFrom string
	ReportEmailTo   []string

	RenderRetryInterval time.Duration
	ChatRatePerSecond   float64
	NameCacheSize       int
	NameCacheTTL        time.Duration
	SlowQueryMs         int
	SlowRequestMs       int
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
// PRE: getenv is non-nil
// POST: Every field holds a validated value or its default
func FromEnv(getenv func(string) string) (Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Env:             strings.ToLower(env("APP_ENV", "development")),
		DiscordToken:    env("DISCORD_TOKEN", ""),
		DiscordGuildID:  env("DISCORD_GUILD_ID", ""),
		DatabasePath:    env("DATABASE_PATH", DefaultDatabasePath),
		DashboardAddr:   env("DASHBOARD_ADDR", DefaultDashboardAddr),
		AdminUsername:   env("ADMIN_USERNAME", DefaultAdminUsername),
		AdminPassword:   getenv("ADMIN_PASSWORD"),
		LogLevel:        env("LOG_LEVEL", DefaultLogLevel),
		LogDir:          env("LOG_DIR", ""),
		GameLogScope:    env("GAME_LOG_SCOPE", ""),
		ResendAPIKey:    env("RESEND_API_KEY", ""),
		ReportEmailFrom: env("REPORT_EMAIL_FROM", ""),
		ReportEmailTo:   splitList(getenv("REPORT_EMAIL_TO")),
	}

	var errs []error
	cfg.RenderRetryInterval = parseDuration(env("RENDER_RETRY_INTERVAL", ""), DefaultRenderRetryInterval, "RENDER_RETRY_INTERVAL", &errs)
	cfg.NameCacheTTL = parseDuration(env("NAME_CACHE_TTL", ""), DefaultNameCacheTTL, "NAME_CACHE_TTL", &errs)
	cfg.NameCacheSize = parseInt(env("NAME_CACHE_SIZE", ""), DefaultNameCacheSize, "NAME_CACHE_SIZE", &errs)
	cfg.SlowQueryMs = parseInt(env("SLOW_QUERY_MS", ""), DefaultSlowQueryMs, "SLOW_QUERY_MS", &errs)
	cfg.SlowRequestMs = parseInt(env("SLOW_REQUEST_MS", ""), DefaultSlowRequestMs, "SLOW_REQUEST_MS", &errs)

	cfg.ChatRatePerSecond = DefaultChatRatePerSecond
	if raw := env("CHAT_RATE_PER_SECOND", ""); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			errs = append(errs, fmt.Errorf("CHAT_RATE_PER_SECOND must be a positive number, got %q", raw))
		} else {
			cfg.ChatRatePerSecond = v
		}
	}

	key, err := csrfKey(env("CSRF_KEY", ""), cfg.IsProduction())
	if err != nil {
		errs = append(errs, err)
	}
	cfg.CSRFKey = key

	if cfg.ResendAPIKey != "" && (cfg.ReportEmailFrom == "" || len(cfg.ReportEmailTo) == 0) {
		errs = append(errs, errors.New("RESEND_API_KEY needs REPORT_EMAIL_FROM and REPORT_EMAIL_TO"))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// csrfKey decodes CSRF_KEY. Outside production a missing key is replaced by a
// random one, which invalidates open forms on every restart.
func csrfKey(raw string, production bool) ([]byte, error) {
	if raw == "" {
		if production {
			return nil, errors.New("CSRF_KEY is required in production")
		}
		key := make([]byte, csrfKeyLength)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate csrf key: %w", err)
		}
		return key, nil
	}
	key, err := hex.DecodeString(raw)
	if err != nil || len(key) != csrfKeyLength {
		return nil, fmt.Errorf("CSRF_KEY must be %d hex-encoded bytes", csrfKeyLength)
	}
	return key, nil
}

func parseDuration(raw string, def time.Duration, name string, errs *[]error) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive duration, got %q", name, raw))
		return def
	}
	return d
}

func parseInt(raw string, def int, name string, errs *[]error) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive integer, got %q", name, raw))
		return def
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
