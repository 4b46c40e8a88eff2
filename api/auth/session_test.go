package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func whoami(w http.ResponseWriter, r *http.Request) {
	if id, ok := UserID(r.Context()); ok && id == 7 {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusTeapot)
}

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessions()
	var seen []int
	s.OnSeen = func(id int) { seen = append(seen, id) }

	rec := httptest.NewRecorder()
	token := s.Start(rec, 7)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != token {
		t.Fatalf("cookies = %+v", cookies)
	}

	h := s.Middleware(RequireLogin(http.HandlerFunc(whoami)))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if len(seen) != 1 || seen[0] != 7 {
		t.Errorf("OnSeen calls = %v", seen)
	}
}

func TestRequireLoginRejectsAnonymous(t *testing.T) {
	s := NewSessions()
	h := s.Middleware(RequireLogin(http.HandlerFunc(whoami)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestEndForgetsToken(t *testing.T) {
	s := NewSessions()
	rec := httptest.NewRecorder()
	s.Start(rec, 7)
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	s.End(rec, req)

	if c := rec.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", c)
	}
	if _, ok := s.lookup(req); ok {
		t.Error("token still live after End")
	}
}
