// Command statsctl inspects and repairs participation counters and imports game logs.
//
//	statsctl [-db path] inspect [-guild id] [-limit n]
//	statsctl [-db path] resync [-guild id]
//	statsctl [-db path] adjust -guild id user=amount...
//	statsctl [-db path] reset [-guild id] -yes
//	statsctl [-db path] import [-scope name] <file>
//	statsctl [-db path] account-add -username name -password secret [-role viewer]
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"guildleague/internal/adapters/storage"
	accountStore "guildleague/internal/adapters/storage/account"
	participationStore "guildleague/internal/adapters/storage/participation"
	"guildleague/internal/adapters/storage/roster"
	statsStore "guildleague/internal/adapters/storage/stats"
	"guildleague/internal/application/orchestrators"
	"guildleague/internal/config"
	"guildleague/internal/domain/account"
	"guildleague/internal/domain/participation"
	"guildleague/internal/logging"
)

var errUsage = errors.New("usage: statsctl [-db path] inspect|resync|adjust|reset|import|account-add [flags]")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if _, err := logging.Setup(logging.Options{Level: cfg.LogLevel}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	global := flag.NewFlagSet("statsctl", flag.ExitOnError)
	dbPath := global.String("db", cfg.DatabasePath, "SQLite database path")
	global.Parse(os.Args[1:])
	if global.NArg() == 0 {
		fmt.Fprintln(os.Stderr, errUsage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, *dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer db.Close()

	app := cli{db: db, out: os.Stdout, scope: cfg.GameLogScope, now: time.Now}
	if err := app.run(ctx, global.Arg(0), global.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "statsctl:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// cli runs one subcommand against an open database.
type cli struct {
	db    *sql.DB
	out   io.Writer
	scope string
	now   func() time.Time
}

func (c cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "inspect":
		return c.inspect(ctx, args)
	case "resync":
		return c.resync(ctx, args)
	case "adjust":
		return c.adjust(ctx, args)
	case "reset":
		return c.reset(ctx, args)
	case "import":
		return c.importLog(ctx, args)
	case "account-add":
		return c.accountAdd(ctx, args)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func (c cli) deps() orchestrators.StatsDeps {
	return orchestrators.StatsDeps{Roster: roster.NewSQLiteRunner(c.db)}
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// inspect lists counters, highest first.
func (c cli) inspect(ctx context.Context, args []string) error {
	fs := newFlags("inspect")
	guild := fs.String("guild", "", "only this guild")
	limit := fs.Int("limit", 0, "maximum rows, 0 for all")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	list, err := statsStore.NewSQLiteStore(c.db).List(ctx, statsStore.ListFilter{GuildID: *guild, Limit: *limit})
	if err != nil {
		return fmt.Errorf("list stats: %w", err)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GUILD\tUSER\tCOUNT\tLAST SEEN\tNAME")
	for _, s := range list {
		seen := "-"
		if !s.LastSeen.IsZero() {
			seen = s.LastSeen.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.GuildID, s.UserID, s.Count, seen, s.CustomName)
	}
	return tw.Flush()
}

// resync rebuilds counters from signup rows and prints the drift it corrected.
func (c cli) resync(ctx context.Context, args []string) error {
	fs := newFlags("resync")
	guild := fs.String("guild", "", "only this guild")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	res, err := orchestrators.ExecuteResyncStats(ctx, *guild, c.deps())
	if err != nil {
		return err
	}
	for _, d := range res.Drift {
		fmt.Fprintf(c.out, "%s/%s: %d -> %d\n", d.GuildID, d.UserID, d.Stored, d.Recomputed)
	}
	fmt.Fprintf(c.out, "wrote %d counters, %d drifted\n", res.Written, len(res.Drift))
	return nil
}

// adjust lowers counters by user=amount pairs.
func (c cli) adjust(ctx context.Context, args []string) error {
	fs := newFlags("adjust")
	guild := fs.String("guild", "", "guild id (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	reductions, err := parseReductions(fs.Args())
	if err != nil {
		return err
	}

	res, err := orchestrators.ExecuteAdjustStats(ctx, orchestrators.AdjustStatsInput{GuildID: *guild, Reductions: reductions}, c.deps())
	if err != nil {
		return err
	}
	for _, a := range res.Adjusted {
		fmt.Fprintf(c.out, "%s: %d -> %d\n", a.UserID, a.Before, a.After)
	}
	for _, id := range res.Missing {
		fmt.Fprintf(c.out, "%s: no counter in guild %s\n", id, *guild)
	}
	return nil
}

// parseReductions reads user=amount pairs.
func parseReductions(pairs []string) (map[string]int, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("adjust needs at least one user=amount: %w", errUsage)
	}
	out := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		user, raw, ok := strings.Cut(pair, "=")
		if !ok || user == "" {
			return nil, fmt.Errorf("bad pair %q, want user=amount", pair)
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("bad amount in %q: %w", pair, err)
		}
		out[user] += n
	}
	return out, nil
}

// reset deletes counters. -yes is required.
func (c cli) reset(ctx context.Context, args []string) error {
	fs := newFlags("reset")
	guild := fs.String("guild", "", "only this guild")
	yes := fs.Bool("yes", false, "confirm deletion")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	if !*yes {
		return errors.New("reset deletes counters; rerun with -yes")
	}

	n, err := orchestrators.ExecuteResetStats(ctx, *guild, c.deps())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "removed %d counters\n", n)
	return nil
}

// importLog replaces the game participation table from a log file.
func (c cli) importLog(ctx context.Context, args []string) error {
	fs := newFlags("import")
	scope := fs.String("scope", c.scope, "scope column to count")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import needs exactly one file: %w", errUsage)
	}
	if *scope == "" {
		*scope = participation.DefaultScope
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := orchestrators.ExecuteImportGameLog(ctx, orchestrators.ImportGameLogInput{Log: f, Scope: *scope},
		orchestrators.ImportGameLogDeps{Store: participationStore.NewSQLiteStore(c.db), Now: c.now})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "imported %d characters from %d lines (%d counted, %d malformed)\n",
		len(res.Records), res.Lines, res.Counted, res.Malformed)
	return nil
}

// accountAdd creates a dashboard login.
func (c cli) accountAdd(ctx context.Context, args []string) error {
	fs := newFlags("account-add")
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "password, at least 8 characters")
	role := fs.String("role", account.RoleViewer, "admin or viewer")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	id, err := orchestrators.ExecuteCreateAccount(ctx, orchestrators.CreateAccountInput{
		Username: *username, Password: *password, Role: *role,
	}, orchestrators.CreateAccountDeps{
		AccountStore: accountStore.NewSQLiteStore(c.db),
		GenerateID:   func() string { return uuid.New().String() },
		Now:          c.now,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "created %s account %s (%s)\n", *role, *username, id)
	return nil
}
