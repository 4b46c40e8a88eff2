package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const CookieName = "session"

type ctxKey struct{}

// Sessions maps opaque cookie tokens to user ids.
type Sessions struct {
	mu     sync.RWMutex
	tokens map[string]int

	// OnSeen runs for every request that carries a live session.
	OnSeen func(userID int)
}

func NewSessions() *Sessions {
	return &Sessions{tokens: make(map[string]int)}
}

// Start issues a new token for userID and sets it as the session cookie.
func (s *Sessions) Start(w http.ResponseWriter, userID int) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

// End forgets the request's session and expires the cookie.
func (s *Sessions) End(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil {
		s.mu.Lock()
		delete(s.tokens, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (s *Sessions) lookup(r *http.Request) (int, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return 0, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[c.Value]
	return id, ok
}

// Middleware attaches the session's user id to the request context.
// Requests without a live session pass through anonymously.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.lookup(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if s.OnSeen != nil {
			s.OnSeen(id)
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// UserID returns the logged-in user of ctx.
func UserID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(ctxKey{}).(int)
	return id, ok
}

// RequireLogin rejects anonymous requests with 401.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserID(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "login required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
