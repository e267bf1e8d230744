package web

import (
	"net/http"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/adapters/email"
	"guildleague/internal/adapters/http/middleware"
	"guildleague/internal/adapters/http/perf"
	accountStore "guildleague/internal/adapters/storage/account"
	auditStore "guildleague/internal/adapters/storage/audit"
	leagueConfigStore "guildleague/internal/adapters/storage/leagueconfig"
	messageStore "guildleague/internal/adapters/storage/message"
	nodewarStore "guildleague/internal/adapters/storage/nodewar"
	outboxStore "guildleague/internal/adapters/storage/outbox"
	participationStore "guildleague/internal/adapters/storage/participation"
	signupStore "guildleague/internal/adapters/storage/signup"
	statsStore "guildleague/internal/adapters/storage/stats"
	"guildleague/internal/application/orchestrators"
	"guildleague/internal/application/projections"
)

// Stores holds the storage the dashboard reads and writes.
type Stores struct {
	Accounts      accountStore.Store
	Configs       leagueConfigStore.Store
	Messages      messageStore.Store
	Signups       signupStore.Store
	Nodewar       nodewarStore.Store
	Stats         statsStore.Store
	Participation participationStore.Store
	Outbox        outboxStore.Store
	Audit         auditStore.Store // optional
	Roster        orchestrators.RosterRunner
}

// Services holds the non-storage collaborators of the dashboard.
type Services struct {
	Chat         chat.Platform
	Refresh      orchestrators.RefreshViewsDeps
	Executors    map[string]orchestrators.ActionExecutor
	Users        projections.NameLookup        // optional
	Guilds       projections.NameLookup        // optional
	Names        orchestrators.NameInvalidator // optional
	Mailer       email.Sender                  // optional
	ReportTo     []string
	GameLogScope string
}

// Options configures the middleware stack.
type Options struct {
	CSRFKey            []byte // 32 bytes
	Production         bool
	TrustedOrigins     []string
	RateLimitPerSecond int
	SlowRequestMs      int
}

// DefaultRateLimitPerSecond is the per-address request budget.
const DefaultRateLimitPerSecond = 10

var (
	stores        *Stores
	services      *Services
	sessions      *middleware.SessionStore
	perfCollector *perf.Collector
)

// NewMux wires the dashboard routes behind the middleware stack.
// PRE: s and svc are fully populated except for optional fields
func NewMux(opts Options, s *Stores, svc *Services, collector *perf.Collector) http.Handler {
	stores = s
	services = svc
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = opts.Production

	mux := http.NewServeMux()
	registerRoutes(mux)

	perSecond := opts.RateLimitPerSecond
	if perSecond <= 0 {
		perSecond = DefaultRateLimitPerSecond
	}

	// Outermost last: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, opts.Production, opts.TrustedOrigins),
		middleware.Auth(sessions),
		middleware.RateLimit(middleware.NewRateLimiter(perSecond)),
		middleware.Timing(collector, opts.SlowRequestMs),
	)
}
