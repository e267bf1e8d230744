package middleware

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"guildleague/internal/domain/account"
)

type sessionKey struct{}

const (
	// SessionTTL is the absolute lifetime of a dashboard login.
	SessionTTL = 24 * time.Hour
	// SessionIdle logs out a session nobody has used for this long.
	SessionIdle = 2 * time.Hour
	// SessionCookieName names the dashboard session cookie.
	SessionCookieName = "guildleague_session"
)

// SecureCookies marks session cookies Secure. Set it in production.
var SecureCookies = false

// Session is an authenticated dashboard login.
type Session struct {
	AccountID string
	Username  string
	Role      string
	CreatedAt time.Time
	LastSeen  time.Time
}

func (s Session) expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > SessionTTL || now.Sub(s.LastSeen) > SessionIdle
}

// SessionStore keeps sessions in memory, keyed by a digest of their token.
// A restart logs everyone out.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[[sha256.Size]byte]Session
	now      func() time.Time
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[[sha256.Size]byte]Session), now: time.Now}
}

// Create opens a session for the account and returns its token.
// PRE: accountID and role are non-empty
// POST: token is 64 hex characters; expired sessions are swept
func (ss *SessionStore) Create(accountID, username, role string) (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw[:])

	ss.mu.Lock()
	defer ss.mu.Unlock()
	now := ss.now()
	for k, s := range ss.sessions {
		if s.expired(now) {
			delete(ss.sessions, k)
		}
	}
	ss.sessions[sha256.Sum256([]byte(token))] = Session{
		AccountID: accountID,
		Username:  username,
		Role:      role,
		CreatedAt: now,
		LastSeen:  now,
	}
	return token, nil
}

// Get returns the live session for token and marks it used.
func (ss *SessionStore) Get(token string) (Session, bool) {
	key := sha256.Sum256([]byte(token))
	ss.mu.Lock()
	defer ss.mu.Unlock()
	s, ok := ss.sessions[key]
	if !ok {
		return Session{}, false
	}
	now := ss.now()
	if s.expired(now) {
		delete(ss.sessions, key)
		return Session{}, false
	}
	s.LastSeen = now
	ss.sessions[key] = s
	return s, true
}

// Delete ends a session.
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, sha256.Sum256([]byte(token)))
}

// Len reports how many sessions are held, expired ones included.
func (ss *SessionStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// Auth attaches the cookie's session to the request context. It never blocks;
// RequireAuth and RequireAdmin do.
func Auth(sessions *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
				if s, ok := sessions.Get(c.Value); ok {
					r = r.WithContext(ContextWithSession(r.Context(), s))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth sends anonymous requests to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return requireSession(next, func(Session) bool { return true })
}

// RequireAdmin additionally answers 403 to viewers.
func RequireAdmin(next http.Handler) http.Handler {
	return requireSession(next, func(s Session) bool { return s.Role == account.RoleAdmin })
}

func requireSession(next http.Handler, allowed func(Session) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := GetSessionFromContext(r.Context())
		switch {
		case !ok:
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		case !allowed(s):
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// ContextWithSession returns ctx carrying sess.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// IsAdmin reports whether the request belongs to an admin.
func IsAdmin(ctx context.Context) bool {
	s, ok := GetSessionFromContext(ctx)
	return ok && s.Role == account.RoleAdmin
}

// SetSessionCookie hands the token to the browser for the session's lifetime.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, sessionCookie(token, int(SessionTTL.Seconds())))
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie("", -1))
}

func sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}
