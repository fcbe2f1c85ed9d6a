package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// okHandler records whether it ran and what user ID it saw.
type okHandler struct {
	called bool
	userID string
	hasID  bool
}

func (h *okHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.userID, h.hasID = UserIDFromContext(r.Context())
	w.WriteHeader(http.StatusOK)
}

// =========================================================================
// RequireAuth TESTS
// =========================================================================

func TestRequireAuth_NoCookie(t *testing.T) {
	ts := newTestTokenService(t)
	next := &okHandler{}

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	rr := httptest.NewRecorder()

	RequireAuth(ts)(next).ServeHTTP(rr, req)

	if next.called {
		t.Error("handler ran without a session cookie")
	}
	if rr.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d (redirect to login)", rr.Code, http.StatusSeeOther)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	ts := newTestTokenService(t)
	next := &okHandler{}

	token, err := ts.Generate("user-42")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rr := httptest.NewRecorder()

	RequireAuth(ts)(next).ServeHTTP(rr, req)

	if !next.called {
		t.Fatal("handler did not run with a valid token")
	}
	if !next.hasID || next.userID != "user-42" {
		t.Errorf("userID in context = %q (%v), want user-42", next.userID, next.hasID)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	ts := newTestTokenService(t)
	next := &okHandler{}

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "garbage"})
	rr := httptest.NewRecorder()

	RequireAuth(ts)(next).ServeHTTP(rr, req)

	if next.called {
		t.Error("handler ran with an invalid token")
	}
	if rr.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want redirect", rr.Code)
	}
}

// =========================================================================
// OptionalAuth TESTS
// =========================================================================

func TestOptionalAuth_Anonymous(t *testing.T) {
	ts := newTestTokenService(t)
	next := &okHandler{}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	OptionalAuth(ts)(next).ServeHTTP(rr, req)

	if !next.called {
		t.Fatal("OptionalAuth blocked an anonymous request")
	}
	if next.hasID {
		t.Errorf("anonymous request carried userID %q", next.userID)
	}
}

func TestOptionalAuth_WithToken(t *testing.T) {
	ts := newTestTokenService(t)
	next := &okHandler{}

	token, _ := ts.Generate("user-7")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rr := httptest.NewRecorder()

	OptionalAuth(ts)(next).ServeHTTP(rr, req)

	if !next.called {
		t.Fatal("OptionalAuth blocked an authenticated request")
	}
	if next.userID != "user-7" {
		t.Errorf("userID = %q, want user-7", next.userID)
	}
}

// =========================================================================
// COOKIE TESTS
// =========================================================================

func TestSessionCookieRoundTrip(t *testing.T) {
	rr := httptest.NewRecorder()
	SetSessionCookie(rr, "the-token")

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookie || c.Value != "the-token" {
		t.Errorf("cookie = %s=%s, want %s=the-token", c.Name, c.Value, SessionCookie)
	}
	if !c.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	rr = httptest.NewRecorder()
	ClearSessionCookie(rr)
	cleared := rr.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Errorf("ClearSessionCookie() did not expire the cookie: %+v", cleared)
	}
}
