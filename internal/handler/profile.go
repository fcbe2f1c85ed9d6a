package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/service"
)

// ProfileHandler serves the profile pages: the viewer's own (with the new
// post form) and other users' by username.
type ProfileHandler struct {
	accounts    *service.AccountService
	posts       *service.PostService
	connections *service.ConnectionService
	render      *Renderer
	logger      *slog.Logger
}

func NewProfileHandler(
	accounts *service.AccountService,
	posts *service.PostService,
	connections *service.ConnectionService,
	render *Renderer,
	logger *slog.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		accounts:    accounts,
		posts:       posts,
		connections: connections,
		render:      render,
		logger:      logger,
	}
}

// HandleOwnProfile shows the viewer's profile: their posts newest first,
// GitHub languages and repositories when synced, and the new-post form.
//
// HTTP: GET /profile
func (h *ProfileHandler) HandleOwnProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.accounts.GetByID(r.Context(), userID)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	page, err := h.posts.OwnPosts(r.Context(), userID, userID, pageParam(r))
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	h.render.Render(w, r, "profile", map[string]any{
		"Title":       user.Username,
		"User":        user,
		"Posts":       page,
		"IsOwn":       true,
		"CurrentUser": user,
	})
}

// HandleCreatePost stores a new post submitted from the profile page.
//
// HTTP: POST /profile
func (h *ProfileHandler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if _, err := h.posts.Create(r.Context(), userID, r.PostFormValue("body")); err != nil {
		if _, message, ok := fieldError(err); ok {
			h.render.Flash(w, r, message)
			http.Redirect(w, r, "/profile", http.StatusSeeOther)
			return
		}
		h.render.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// HandleUserProfile shows another user's profile by username, including
// whether the viewer is connected to them. Unknown usernames are a 404.
//
// HTTP: GET /profile/{username}
func (h *ProfileHandler) HandleUserProfile(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())
	username := r.PathValue("username")

	user, err := h.accounts.GetByUsername(r.Context(), username)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	if user.ID == viewerID {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
		return
	}

	viewer, err := h.accounts.GetByID(r.Context(), viewerID)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	connected, err := h.connections.IsConnected(r.Context(), viewerID, user.ID)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	page, err := h.posts.OwnPosts(r.Context(), user.ID, viewerID, pageParam(r))
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	h.render.Render(w, r, "profile", map[string]any{
		"Title":       user.Username,
		"User":        user,
		"Posts":       page,
		"IsOwn":       false,
		"Connected":   connected,
		"CurrentUser": viewer,
	})
}

// pageParam reads the ?page= query value, defaulting to 1.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
