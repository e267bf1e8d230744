package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"guildleague/internal/adapters/chat"
	"guildleague/internal/adapters/chat/discord"
	"guildleague/internal/adapters/email"
	web "guildleague/internal/adapters/http"
	"guildleague/internal/adapters/http/perf"
	"guildleague/internal/adapters/namecache"
	"guildleague/internal/adapters/storage"
	accountStore "guildleague/internal/adapters/storage/account"
	auditStore "guildleague/internal/adapters/storage/audit"
	leagueConfigStore "guildleague/internal/adapters/storage/leagueconfig"
	outboxStore "guildleague/internal/adapters/storage/outbox"
	participationStore "guildleague/internal/adapters/storage/participation"
	"guildleague/internal/adapters/storage/roster"
	"guildleague/internal/application/orchestrators"
	"guildleague/internal/application/projections"
	"guildleague/internal/config"
	"guildleague/internal/domain/outbox"
	"guildleague/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// shutdownTimeout bounds the dashboard drain on exit.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(logging.Options{Level: cfg.LogLevel, Dir: cfg.LogDir})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)
	bound := roster.Bind(timedDB)
	stores := &web.Stores{
		Accounts:      accountStore.NewSQLiteStore(timedDB),
		Configs:       leagueConfigStore.NewSQLiteStore(timedDB),
		Messages:      bound.Messages,
		Signups:       bound.Signups,
		Nodewar:       bound.Nodewar,
		Stats:         bound.Stats,
		Participation: participationStore.NewSQLiteStore(timedDB),
		Outbox:        outboxStore.NewSQLiteStore(timedDB),
		Audit:         auditStore.NewSQLiteStore(timedDB),
		Roster:        roster.NewSQLiteRunner(timedDB),
	}

	seedDeps := orchestrators.CreateAccountDeps{AccountStore: stores.Accounts, GenerateID: newID, Now: time.Now}
	if err := orchestrators.ExecuteSeedAdmin(ctx, seedDeps, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// Chat platform: the gateway client when a token is configured, otherwise a logger.
	var (
		platform chat.Platform = chat.NewNoopPlatform()
		session  *discordgo.Session
	)
	if cfg.DiscordToken != "" {
		session, err = discord.NewSession(cfg.DiscordToken)
		if err != nil {
			return err
		}
		platform = discord.NewClient(session, cfg.ChatRatePerSecond, collector)
	} else {
		slog.Warn("startup_event", "event", "gateway_disabled", "reason", "DISCORD_TOKEN not set")
	}

	users := namecache.New(cfg.NameCacheSize, cfg.NameCacheTTL, platform.UserName)
	guilds := namecache.New(cfg.NameCacheSize, cfg.NameCacheTTL, platform.GuildName)

	renderer := &orchestrators.ViewRenderer{
		Slots:   projections.ProjectSlotsDeps{Signups: stores.Signups, Messages: stores.Messages, Overrides: stores.Stats, Layout: platform},
		Rosters: projections.ProjectRosterDeps{Nodewar: stores.Nodewar, Overrides: stores.Stats},
		Chat:    platform,
		Now:     time.Now,
	}
	refresh := orchestrators.RefreshViewsDeps{Renderer: renderer, Outbox: stores.Outbox, GenerateID: newID, Now: time.Now}

	var mailer email.Sender = email.NewNoopSender()
	if cfg.ResendAPIKey != "" {
		mailer = email.NewResendSender(cfg.ResendAPIKey, cfg.ReportEmailFrom)
	}
	executors := renderer.Executors()
	executors[outbox.ActionReportEmail] = orchestrators.ReportMailExecutor{Mailer: mailer}

	handler := web.NewMux(web.Options{
		CSRFKey:       cfg.CSRFKey,
		Production:    cfg.IsProduction(),
		SlowRequestMs: cfg.SlowRequestMs,
	}, stores, &web.Services{
		Chat:         platform,
		Refresh:      refresh,
		Executors:    executors,
		Users:        users,
		Guilds:       guilds,
		Names:        users,
		Mailer:       mailer,
		ReportTo:     cfg.ReportEmailTo,
		GameLogScope: cfg.GameLogScope,
	}, collector)
	server := &http.Server{
		Addr:              cfg.DashboardAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		processor := orchestrators.NewOutboxProcessor(stores.Outbox, executors)
		return processor.Run(gctx, cfg.RenderRetryInterval)
	})

	if session != nil {
		bot := discord.NewBot(session, discord.Services{
			Roster:   stores.Roster,
			Configs:  stores.Configs,
			Messages: stores.Messages,
			Nodewar:  stores.Nodewar,
			Stats:    stores.Stats,
			Chat:     platform,
			Refresh:  refresh,
			Users:    users,
			Names:    users,
			Now:      time.Now,
		}, cfg.DiscordGuildID)
		g.Go(func() error { return bot.Run(gctx) })
	}

	g.Go(func() error {
		slog.Info("startup_event", "event", "dashboard_listening", "addr", cfg.DashboardAddr,
			"version", version, "env", cfg.Env, "schema", storage.LatestSchemaVersion())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dashboard server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("dashboard shutdown: %w", err)
		}
		slog.Info("shutdown_event", "event", "dashboard_stopped")
		return nil
	})

	return g.Wait()
}

func newID() string {
	return uuid.New().String()
}
