package web

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"guildleague/internal/application/orchestrators"
	"guildleague/internal/application/render"
	"guildleague/internal/domain/audit"
	"guildleague/internal/domain/participation"
	"guildleague/internal/domain/signup"
)

// maxGameLogBytes bounds a game log upload.
const maxGameLogBytes = 16 << 20

// handleReminders pings the members of the chosen messages, or only checks voice presence.
// The delivery report is rendered back as HTML.
func handleReminders(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	var ids []string
	for _, raw := range r.PostForm["messageIds"] {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	input := orchestrators.SendRemindersInput{
		MessageIDs: ids,
		SlotTime:   strings.TrimSpace(r.FormValue("slotTime")),
		Note:       strings.TrimSpace(r.FormValue("note")),
		CheckOnly:  r.FormValue("checkOnly") != "",
	}
	if input.CheckOnly {
		input.ExpectedVoice = map[string]string{}
		for team, field := range map[string]string{signup.TeamA: "voiceA", signup.TeamB: "voiceB"} {
			if v := strings.TrimSpace(r.FormValue(field)); v != "" {
				input.ExpectedVoice[team] = v
			}
		}
	}

	report, err := orchestrators.ExecuteSendReminders(r.Context(), input, orchestrators.SendRemindersDeps{
		Signups:    stores.Signups,
		Messages:   stores.Messages,
		Chat:       services.Chat,
		Mailer:     services.Mailer,
		ReportTo:   services.ReportTo,
		Outbox:     stores.Outbox,
		GenerateID: generateID,
		Now:        timeNow,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	recordAudit(r, audit.CategoryRoster, audit.ActionRemind, strings.Join(ids, ","), render.ReminderReportSubject(report))
	renderReport(w, r, render.ReminderReportSubject(report), render.ReminderReportMarkdown(report))
}

// handleStatsResync recomputes counters from the signup rows and lists the drift it corrected.
func handleStatsResync(w http.ResponseWriter, r *http.Request) {
	guildID := strings.TrimSpace(r.FormValue("guildId"))
	res, err := orchestrators.ExecuteResyncStats(r.Context(), guildID, orchestrators.StatsDeps{Roster: stores.Roster})
	if err != nil {
		writeError(w, err)
		return
	}

	recordAudit(r, audit.CategoryStats, audit.ActionResync, guildID, fmt.Sprintf("%d written, %d drifted", res.Written, len(res.Drift)))

	var b strings.Builder
	fmt.Fprintf(&b, "Wrote **%d** counters.\n\n", res.Written)
	if len(res.Drift) == 0 {
		b.WriteString("No drift: every stored counter matched its signups.\n")
	} else {
		b.WriteString("| Guild | User | Stored | Recomputed |\n|---|---|---|---|\n")
		for _, d := range res.Drift {
			fmt.Fprintf(&b, "| `%s` | `%s` | %d | %d |\n", d.GuildID, d.UserID, d.Stored, d.Recomputed)
		}
	}
	renderReport(w, r, fmt.Sprintf("Stats resync: %d drifted", len(res.Drift)), b.String())
}

// handleGameLogImport replaces the game participation table from an uploaded log.
func handleGameLogImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxGameLogBytes)
	if err := r.ParseMultipartForm(maxGameLogBytes); err != nil {
		http.Error(w, "upload too large or malformed", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("log")
	if err != nil {
		http.Error(w, "log file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	scope := strings.TrimSpace(r.FormValue("scope"))
	if scope == "" {
		scope = services.GameLogScope
	}
	if scope == "" {
		scope = participation.DefaultScope
	}
	res, err := orchestrators.ExecuteImportGameLog(r.Context(), orchestrators.ImportGameLogInput{Log: file, Scope: scope},
		orchestrators.ImportGameLogDeps{Store: stores.Participation, Now: timeNow})
	if err != nil {
		writeError(w, err)
		return
	}
	recordAudit(r, audit.CategoryStats, audit.ActionImport, scope, fmt.Sprintf("%d characters, %d malformed", len(res.Records), res.Malformed))
	redirectDashboard(w, r, fmt.Sprintf("Imported %d characters from %d lines (%d malformed)",
		len(res.Records), res.Lines, res.Malformed))
}

func renderReport(w http.ResponseWriter, r *http.Request, title, markdown string) {
	body, err := render.Markdown(markdown)
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "report.html", map[string]any{
		"Title": title,
		"Body":  template.HTML(body),
	})
}
