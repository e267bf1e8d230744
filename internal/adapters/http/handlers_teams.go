package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"guildleague/internal/application/orchestrators"
	"guildleague/internal/application/projections"
	"guildleague/internal/domain/audit"
	"guildleague/internal/domain/outbox"
)

// handleManageTeams shows every signup of a message's group by slot, with team controls.
func handleManageTeams(w http.ResponseWriter, r *http.Request) {
	messageID := r.PathValue("id")
	view, err := projections.QueryGetTeamManagement(r.Context(), messageID, projections.GetTeamManagementDeps{
		Signups:   stores.Signups,
		Messages:  stores.Messages,
		Overrides: stores.Stats,
		Users:     services.Users,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "manage_teams.html", map[string]any{
		"View":   view,
		"Notice": r.URL.Query().Get("notice"),
	})
}

type teamUpdateRequest struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	SlotTime  string `json:"slotTime"`
	Team      string `json:"team"`
}

// handleTeamsUpdate assigns or clears one signup's team and refreshes its message.
// Answers JSON: {"success":true} or {"error":...}.
func handleTeamsUpdate(w http.ResponseWriter, r *http.Request) {
	var req teamUpdateRequest
	if err := decodeRequest(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	err := orchestrators.ExecuteSetTeam(r.Context(), orchestrators.SetTeamInput{
		MessageID: req.MessageID,
		UserID:    req.UserID,
		SlotTime:  req.SlotTime,
		Team:      req.Team,
	}, orchestrators.SignupAdminDeps{Roster: stores.Roster, Now: timeNow})

	var ve *orchestrators.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Message})
		return
	case errors.Is(err, orchestrators.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "signup not found"})
		return
	case err != nil:
		slog.Error("internal_error", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	recordAudit(r, audit.CategoryRoster, audit.ActionSetTeam, req.MessageID,
		fmt.Sprintf("user %s at %s -> %q", req.UserID, req.SlotTime, req.Team))
	refreshViews(r.Context(), orchestrators.SignupTargets(orchestrators.ViewHint{}, req.MessageID)...)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleSignupDelete removes a signup message from the database; the chat post stays.
func handleSignupDelete(w http.ResponseWriter, r *http.Request) {
	messageID := strings.TrimSpace(r.FormValue("messageId"))
	res, err := orchestrators.ExecuteDeleteSignupMessage(r.Context(), messageID,
		orchestrators.SignupAdminDeps{Roster: stores.Roster, Now: timeNow})
	if err != nil {
		writeError(w, err)
		return
	}
	recordAudit(r, audit.CategoryRoster, audit.ActionDelete, messageID, fmt.Sprintf("%d signups removed", res.EntriesRemoved))
	redirectDashboard(w, r, fmt.Sprintf("Deleted message %s (%d signups removed)", messageID, res.EntriesRemoved))
}

// handleSignupRename moves a message into another day group and retitles its post.
func handleSignupRename(w http.ResponseWriter, r *http.Request) {
	messageID := strings.TrimSpace(r.FormValue("messageId"))
	err := orchestrators.ExecuteRenameDay(r.Context(), orchestrators.RenameDayInput{
		MessageID: messageID,
		Day:       r.FormValue("dayName"),
	}, orchestrators.SignupAdminDeps{Roster: stores.Roster, Now: timeNow})
	if err != nil {
		writeError(w, err)
		return
	}
	recordAudit(r, audit.CategoryRoster, audit.ActionRename, messageID, "day "+strings.TrimSpace(r.FormValue("dayName")))
	refreshViews(r.Context(), orchestrators.SignupTargets(orchestrators.ViewHint{}, messageID)...)
	redirectDashboard(w, r, "Day renamed")
}

// handleSignupRemoveUser drops a user from one slot, or from the whole message when no slot is given.
func handleSignupRemoveUser(w http.ResponseWriter, r *http.Request) {
	messageID := strings.TrimSpace(r.FormValue("messageId"))
	removed, err := orchestrators.ExecuteRemoveUserFromMessage(r.Context(), orchestrators.RemoveUserInput{
		MessageID: messageID,
		UserID:    strings.TrimSpace(r.FormValue("userId")),
		SlotTime:  strings.TrimSpace(r.FormValue("slotTime")),
	}, orchestrators.SignupAdminDeps{Roster: stores.Roster, Now: timeNow})
	if err != nil {
		writeError(w, err)
		return
	}
	recordAudit(r, audit.CategoryRoster, audit.ActionRemove, messageID,
		fmt.Sprintf("user %s slot %q, %d removed", r.FormValue("userId"), r.FormValue("slotTime"), removed))
	refreshViews(r.Context(), orchestrators.SignupTargets(orchestrators.ViewHint{}, messageID)...)

	back := r.FormValue("returnTo")
	if back == "" {
		back = "/manage-teams/" + messageID
	}
	if !strings.HasPrefix(back, "/") || strings.HasPrefix(back, "//") {
		back = "/dashboard"
	}
	http.Redirect(w, r, back+"?notice="+url.QueryEscape(fmt.Sprintf("%d signup(s) removed", removed)), http.StatusSeeOther)
}

// handlePlayerRename sets or clears a player's display-name override.
func handlePlayerRename(w http.ResponseWriter, r *http.Request) {
	stored, err := orchestrators.ExecuteSetDisplayName(r.Context(), orchestrators.SetDisplayNameInput{
		GuildID: strings.TrimSpace(r.FormValue("guildId")),
		UserID:  strings.TrimSpace(r.FormValue("userId")),
		Name:    r.FormValue("customName"),
	}, orchestrators.SetDisplayNameDeps{Roster: stores.Roster, Names: services.Names})
	if err != nil {
		writeError(w, err)
		return
	}
	recordAudit(r, audit.CategoryStats, audit.ActionRename, r.FormValue("userId"), fmt.Sprintf("name %q", stored))
	if stored == "" {
		redirectDashboard(w, r, "Name override removed")
		return
	}
	redirectDashboard(w, r, "Name set to "+stored)
}

// handleNodewarCap changes a roster's cap and re-renders it.
func handleNodewarCap(w http.ResponseWriter, r *http.Request) {
	messageID := strings.TrimSpace(r.FormValue("messageId"))
	maxCap, err := strconv.Atoi(strings.TrimSpace(r.FormValue("max")))
	if err != nil {
		http.Error(w, "max must be a number", http.StatusBadRequest)
		return
	}
	res, err := orchestrators.ExecuteUpdateNodewarCap(r.Context(), orchestrators.UpdateNodewarCapInput{
		MessageID: messageID,
		MaxCap:    maxCap,
	}, orchestrators.NodewarDeps{Roster: stores.Roster, Now: timeNow})
	if err != nil {
		writeError(w, err)
		return
	}
	recordAudit(r, audit.CategoryRoster, audit.ActionUpdateCap, messageID, fmt.Sprintf("cap %d -> %d", res.PreviousCap, maxCap))
	refreshViews(r.Context(), orchestrators.RefreshTarget{Action: outbox.ActionRefreshNodewar, MessageID: messageID})
	redirectDashboard(w, r, fmt.Sprintf("%s cap %d → %d (%d promoted, %d moved to waitlist)",
		res.Day, res.PreviousCap, maxCap, res.Promoted, res.Demoted))
}

// refreshViews re-renders posts after a dashboard edit. Failures go to the outbox.
func refreshViews(ctx context.Context, targets ...orchestrators.RefreshTarget) {
	if services.Refresh.Renderer == nil {
		return
	}
	res := orchestrators.ExecuteRefreshViews(ctx, targets, services.Refresh)
	if len(res.Deferred) > 0 || len(res.Dropped) > 0 {
		slog.Warn("dashboard_event", "event", "refresh_incomplete", "deferred", res.Deferred, "dropped", res.Dropped)
	}
}
