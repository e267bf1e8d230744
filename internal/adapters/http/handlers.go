package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"

	"guildleague/internal/adapters/http/middleware"
	"guildleague/internal/application/listutil"
	"guildleague/internal/application/orchestrators"
	"guildleague/internal/application/projections"
	"guildleague/internal/domain/audit"
)

// timeNow is a variable for testability.
var timeNow = time.Now

//go:embed templates/*.html
var templateFS embed.FS

func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// writeError maps orchestrator errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var ve *orchestrators.ValidationError
	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Message, http.StatusBadRequest)
	case errors.Is(err, orchestrators.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		internalError(w, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json_encode_failed", "error", err.Error())
	}
}

// decodeRequest fills v from a JSON body or the posted form, whichever was sent.
// Form values map onto fields through their json tags.
func decodeRequest(r *http.Request, v any) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	flat := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		flat[key] = r.PostForm.Get(key)
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	sess, loggedIn := middleware.GetSessionFromContext(r.Context())

	funcMap := template.FuncMap{
		"csrfField":   func() template.HTML { return csrf.TemplateField(r) },
		"currentUser": func() string { return sess.Username },
		"isLoggedIn":  func() bool { return loggedIn },
		"isAdmin":     func() bool { return middleware.IsAdmin(r.Context()) },
		"add":         func(a, b int) int { return a + b },
		"sub":         func(a, b int) int { return a - b },
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Local().Format("2006-01-02 15:04")
		},
		"pageQuery": func(page int, q listutil.Query, guild string) template.URL {
			q.Page = page
			v := q.Values()
			if guild != "" {
				v.Set("guild", guild)
			}
			return template.URL(v.Encode())
		},
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		internalError(w, fmt.Errorf("parse template %s: %w", templateName, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tpl.Execute(w, data); err != nil {
		slog.Error("render_failed", "template", templateName, "error", err.Error())
	}
}

// handleLogin serves the login form and authenticates posted credentials.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login.html", map[string]any{})

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
			Username: r.FormValue("username"),
			Password: r.FormValue("password"),
		}, orchestrators.LoginDeps{AccountStore: stores.Accounts, Now: timeNow})
		if err != nil {
			recordAudit(r, audit.CategoryAuth, audit.ActionLoginFailed, "", r.FormValue("username"))
			renderTemplate(w, r, "login.html", map[string]any{"Error": err.Error()})
			return
		}

		token, err := sessions.Create(result.AccountID, result.Username, result.Role)
		if err != nil {
			internalError(w, err)
			return
		}
		middleware.SetSessionCookie(w, token)
		recordAudit(r.WithContext(middleware.ContextWithSession(r.Context(), middleware.Session{
			AccountID: result.AccountID, Username: result.Username, Role: result.Role,
		})), audit.CategoryAuth, audit.ActionLogin, result.AccountID, "")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		recordAudit(r, audit.CategoryAuth, audit.ActionLogout, "", "")
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

var statsSortColumns = []string{"name", "count", "last_seen", "games"}

// handleDashboard renders the admin overview: leaderboard, schedules, posted messages and rosters.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	guild := q.Get("guild")

	result, err := projections.QueryGetDashboard(ctx, projections.GetDashboardQuery{GuildID: guild}, projections.GetDashboardDeps{
		Stats:         stores.Stats,
		Configs:       stores.Configs,
		Messages:      stores.Messages,
		Signups:       stores.Signups,
		Nodewar:       stores.Nodewar,
		Participation: stores.Participation,
		Users:         services.Users,
		Guilds:        services.Guilds,
	})
	if err != nil {
		internalError(w, err)
		return
	}

	params := listutil.ParseQuery(q, statsSortColumns...)
	page, window := pageStats(result.Stats, params)

	renderTemplate(w, r, "dashboard.html", map[string]any{
		"Result": result,
		"Stats":  page,
		"Window": window,
		"Params": params,
		"Guild":  guild,
		"Notice": q.Get("notice"),
	})
}

// pageStats filters, sorts and slices the leaderboard for one page.
// Default order is count descending; ties keep name order.
func pageStats(all []projections.PlayerStat, q listutil.Query) ([]projections.PlayerStat, listutil.Window) {
	rows := make([]projections.PlayerStat, 0, len(all))
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for _, s := range all {
		if needle == "" || strings.Contains(strings.ToLower(s.Name), needle) || strings.Contains(s.UserID, needle) {
			rows = append(rows, s)
		}
	}

	less := func(a, b projections.PlayerStat) bool {
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	}
	switch q.Sort {
	case "name":
		less = func(a, b projections.PlayerStat) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case "count":
		less = func(a, b projections.PlayerStat) bool { return a.Count < b.Count }
	case "last_seen":
		less = func(a, b projections.PlayerStat) bool { return a.LastSeen.Before(b.LastSeen) }
	case "games":
		less = func(a, b projections.PlayerStat) bool { return a.GamesPlayed < b.GamesPlayed }
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if q.Sort != "" && q.Desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
	return listutil.Paginate(rows, q)
}

// redirectDashboard sends the admin back with a one-line notice.
func redirectDashboard(w http.ResponseWriter, r *http.Request, notice string) {
	target := "/dashboard"
	if notice != "" {
		target += "?notice=" + url.QueryEscape(notice)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
