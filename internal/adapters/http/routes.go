package web

import (
	"net/http"

	"guildleague/internal/adapters/http/middleware"
)

func registerRoutes(mux *http.ServeMux) {
	auth := func(h http.HandlerFunc) http.Handler { return middleware.RequireAuth(h) }
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("POST /logout", handleLogout)
	mux.Handle("GET /dashboard", auth(handleDashboard))
	mux.Handle("GET /manage-teams/{id}", auth(handleManageTeams))

	mux.Handle("POST /api/player/rename", admin(handlePlayerRename))
	mux.Handle("POST /api/teams/update", admin(handleTeamsUpdate))
	mux.Handle("POST /api/signup/delete", admin(handleSignupDelete))
	mux.Handle("POST /api/signup/rename", admin(handleSignupRename))
	mux.Handle("POST /api/signup/remove-user", admin(handleSignupRemoveUser))
	mux.Handle("POST /api/nodewar/cap", admin(handleNodewarCap))
	mux.Handle("POST /api/reminders", admin(handleReminders))
	mux.Handle("POST /api/stats/resync", admin(handleStatsResync))
	mux.Handle("POST /api/game-log/import", admin(handleGameLogImport))

	mux.Handle("GET /admin/outbox", admin(handleAdminOutbox))
	mux.Handle("POST /admin/outbox/{id}/{action}", admin(handleAdminOutboxAction))
	mux.Handle("GET /admin/perf", admin(handleAdminPerf))
	mux.Handle("GET /admin/audit", admin(handleAdminAudit))
}
