package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/sakif/devconnect/internal/auth"
	ghclient "github.com/sakif/devconnect/internal/github"
	"github.com/sakif/devconnect/internal/service"
)

// AuthHandler serves registration, local login/logout, and the GitHub
// OAuth flow.
type AuthHandler struct {
	accounts *service.AccountService
	github   *auth.GitHubProvider // nil when OAuth is not configured
	render   *Renderer
	logger   *slog.Logger
}

func NewAuthHandler(
	accounts *service.AccountService,
	github *auth.GitHubProvider,
	render *Renderer,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		github:   github,
		render:   render,
		logger:   logger,
	}
}

// HandleRegisterForm renders the registration form.
//
// HTTP: GET /register
func (h *AuthHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render.Render(w, r, "register", map[string]any{
		"Title":       "Register",
		"GitHubOAuth": h.github != nil,
	})
}

// HandleRegister creates a local account from the submitted form.
//
// HTTP: POST /register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	if password != r.PostFormValue("password2") {
		h.renderRegisterError(w, r, username, email, "password2", "Passwords do not match.")
		return
	}

	_, err := h.accounts.Register(r.Context(), username, email, password)
	if err != nil {
		if field, message, ok := fieldError(err); ok {
			h.renderRegisterError(w, r, username, email, field, message)
			return
		}
		h.render.renderError(w, r, err)
		return
	}

	h.render.Flash(w, r, "Congratulations, you are now a registered user!")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) renderRegisterError(w http.ResponseWriter, r *http.Request, username, email, field, message string) {
	h.render.Render(w, r, "register", map[string]any{
		"Title":       "Register",
		"GitHubOAuth": h.github != nil,
		"Username":    username,
		"Email":       email,
		"ErrorField":  field,
		"Error":       message,
	})
}

// HandleLoginForm renders the login form.
//
// HTTP: GET /login
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render.Render(w, r, "login", map[string]any{
		"Title":       "Sign In",
		"GitHubOAuth": h.github != nil,
	})
}

// HandleLogin verifies credentials and issues the session cookie. Failures
// re-render the form with the same generic message regardless of cause.
//
// HTTP: POST /login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	username := r.PostFormValue("username")
	result, err := h.accounts.Login(r.Context(), username, r.PostFormValue("password"))
	if err != nil {
		h.render.Render(w, r, "login", map[string]any{
			"Title":       "Sign In",
			"GitHubOAuth": h.github != nil,
			"Username":    username,
			"Error":       "Invalid username or password",
		})
		return
	}

	auth.SetSessionCookie(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// HTTP: GET /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleGitHubLogin starts the OAuth flow: generate a CSRF state, stash it
// in a short-lived cookie, and send the browser to GitHub.
//
// HTTP: GET /auth/github
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow: verify the CSRF state,
// exchange the code, log the user in (provisioning an account when
// needed), and run the one-time language/repository sync while the access
// token is still in hand.
//
// HTTP: GET /github?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single-use
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: user denied authorization", slog.String("error", errParam))
		h.render.Flash(w, r, "GitHub authorization was cancelled.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, token, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	result, err := h.accounts.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("oauth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// First-login sync. The access token only exists here, so this is the
	// one place the fetch can happen; SyncGitHub is a no-op once the
	// account is marked linked. A sync failure shouldn't block login.
	fetcher := ghclient.New(h.github.HTTPClient(r.Context(), token))
	if err := h.accounts.SyncGitHub(r.Context(), result.User.ID, fetcher); err != nil {
		h.logger.Warn("oauth callback: github sync failed",
			slog.String("userID", result.User.ID),
			slog.String("error", err.Error()),
		)
	}

	auth.SetSessionCookie(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
