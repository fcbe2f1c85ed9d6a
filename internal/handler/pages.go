package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/service"
)

// PageHandler serves the landing page and the static help/about pages.
type PageHandler struct {
	accounts *service.AccountService
	render   *Renderer
	logger   *slog.Logger
}

func NewPageHandler(accounts *service.AccountService, render *Renderer, logger *slog.Logger) *PageHandler {
	return &PageHandler{accounts: accounts, render: render, logger: logger}
}

// HandleHome is the landing page. Anonymous browsers see it with login and
// register links; authenticated ones with their navigation.
//
// HTTP: GET /
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Title": "Welcome"}

	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		user, err := h.accounts.GetByID(r.Context(), userID)
		if err == nil {
			data["CurrentUser"] = user
		}
	}

	h.render.Render(w, r, "home", data)
}

// HandleHelp serves the help page.
//
// HTTP: GET /help
func (h *PageHandler) HandleHelp(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "help", map[string]any{"Title": "Help"})
}

// HandleAbout serves the about page.
//
// HTTP: GET /about
func (h *PageHandler) HandleAbout(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, "about", map[string]any{"Title": "About"})
}
