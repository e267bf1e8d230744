package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"guildleague/internal/application/orchestrators"
	"guildleague/internal/domain/audit"
	"guildleague/internal/domain/outbox"
)

// outboxListLimit caps how many render tasks the admin page shows.
const outboxListLimit = 100

// handleAdminOutbox lists recent render tasks and report mails, newest first.
// ?status= narrows the list to one state. JSON is returned when asked for.
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= outboxListLimit {
		limit = n
	}
	entries, err := stores.Outbox.ListRecent(r.Context(), limit)
	if err != nil {
		internalError(w, err)
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		kept := entries[:0]
		for _, e := range entries {
			if e.Status == status {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	if r.Header.Get("Accept") == "application/json" {
		writeJSON(w, http.StatusOK, entries)
		return
	}
	renderTemplate(w, r, "outbox.html", map[string]any{
		"Entries":  entries,
		"Statuses": []string{outbox.StatusPending, outbox.StatusRetrying, outbox.StatusFailed, outbox.StatusDone, outbox.StatusAbandoned},
		"Notice":   r.URL.Query().Get("notice"),
	})
}

// handleAdminOutboxAction retries an entry immediately or abandons it.
// Route: POST /admin/outbox/{id}/{retry|abandon}
func handleAdminOutboxAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	processor := orchestrators.NewOutboxProcessor(stores.Outbox, services.Executors)

	var notice string
	switch r.PathValue("action") {
	case "retry":
		if err := processor.ProcessSingle(ctx, id); err != nil {
			if errors.Is(err, orchestrators.ErrNotFound) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			notice = "Retry failed: " + err.Error()
		} else {
			notice = "Retry succeeded"
		}
		recordAudit(r, audit.CategoryRender, audit.ActionRetry, id, notice)
	case "abandon":
		if err := processor.AbandonEntry(ctx, id); err != nil {
			writeError(w, err)
			return
		}
		notice = "Entry abandoned"
		recordAudit(r, audit.CategoryRender, audit.ActionAbandon, id, "")
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/admin/outbox?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}

// perfWindow is how far back the perf page aggregates.
const perfWindow = 15 * time.Minute

// handleAdminPerf shows request percentiles and the slowest paths, queries and chat calls.
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if perfCollector == nil {
		http.Error(w, "performance collection is disabled", http.StatusNotFound)
		return
	}
	snap := perfCollector.Snapshot(timeNow().Add(-perfWindow), 10)
	if r.Header.Get("Accept") == "application/json" {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	renderTemplate(w, r, "perf.html", map[string]any{
		"Snapshot": snap,
		"Window":   perfWindow,
	})
}
