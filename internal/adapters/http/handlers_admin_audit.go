package web

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"guildleague/internal/adapters/http/middleware"
	auditStore "guildleague/internal/adapters/storage/audit"
	"guildleague/internal/domain/audit"
)

// auditListLimit caps how many events the audit page shows.
const auditListLimit = 500

// recordAudit stores one dashboard action. Failures are logged and never fail the request.
func recordAudit(r *http.Request, category audit.Category, action audit.Action, target, detail string) {
	if stores == nil || stores.Audit == nil {
		return
	}
	e := audit.Event{
		ID:       generateID(),
		At:       timeNow(),
		Category: category,
		Action:   action,
		Target:   target,
		Detail:   detail,
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		e.IPAddress = host
	}
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		e.ActorID, e.ActorName = sess.AccountID, sess.Username
	}
	if err := e.Validate(); err != nil {
		slog.Warn("audit_event_invalid", "error", err.Error())
		return
	}
	if err := stores.Audit.Save(r.Context(), e); err != nil {
		slog.Error("audit_save_failed", "action", string(action), "error", err.Error())
	}
}

// handleAdminAudit lists dashboard actions, newest first.
// Filters: ?category=, ?actor=, ?target=, ?limit=
func handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	if stores.Audit == nil {
		http.Error(w, "audit trail is disabled", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	limit := 100
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n <= auditListLimit {
		limit = n
	}
	filter := auditStore.Filter{
		Category: audit.Category(q.Get("category")),
		ActorID:  q.Get("actor"),
		Target:   q.Get("target"),
	}
	events, err := stores.Audit.List(r.Context(), filter, limit)
	if err != nil {
		internalError(w, err)
		return
	}
	if r.Header.Get("Accept") == "application/json" {
		writeJSON(w, http.StatusOK, events)
		return
	}
	renderTemplate(w, r, "audit.html", map[string]any{
		"Events":     events,
		"Filter":     filter,
		"Categories": []audit.Category{audit.CategoryAuth, audit.CategoryRoster, audit.CategoryStats, audit.CategoryRender},
	})
}
