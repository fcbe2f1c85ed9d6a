package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/service"
)

// PostHandler serves the aggregated feed, the like toggle, post deletion,
// and account deletion.
type PostHandler struct {
	accounts *service.AccountService
	posts    *service.PostService
	render   *Renderer
	logger   *slog.Logger
}

func NewPostHandler(
	accounts *service.AccountService,
	posts *service.PostService,
	render *Renderer,
	logger *slog.Logger,
) *PostHandler {
	return &PostHandler{
		accounts: accounts,
		posts:    posts,
		render:   render,
		logger:   logger,
	}
}

// HandleFeed shows one page of the viewer's aggregated stream: their own
// posts plus posts from accepted connections, newest first.
//
// HTTP: GET /feed
func (h *PostHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.accounts.GetByID(r.Context(), userID)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	page, err := h.posts.Feed(r.Context(), userID, pageParam(r))
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	h.render.Render(w, r, "feed", map[string]any{
		"Title":       "Feed",
		"CurrentUser": user,
		"Posts":       page,
	})
}

// HandleFeedPost stores a new post submitted from the feed page and
// returns to the feed.
//
// HTTP: POST /feed
func (h *PostHandler) HandleFeedPost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	if _, err := h.posts.Create(r.Context(), userID, r.PostFormValue("body")); err != nil {
		if _, message, ok := fieldError(err); ok {
			h.render.Flash(w, r, message)
			http.Redirect(w, r, "/feed", http.StatusSeeOther)
			return
		}
		h.render.renderError(w, r, err)
		return
	}

	http.Redirect(w, r, "/feed", http.StatusSeeOther)
}

// HandleLike toggles a like and sends the browser back where it came
// from. Unknown actions are a 404, matching unknown posts.
//
// HTTP: GET /like/{postID}/{action}, action ∈ {like, unlike}
func (h *PostHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	postID := r.PathValue("postID")

	var err error
	switch r.PathValue("action") {
	case "like":
		err = h.posts.Like(r.Context(), userID, postID)
	case "unlike":
		err = h.posts.Unlike(r.Context(), userID, postID)
	default:
		err = apperror.NotFound("action", r.PathValue("action"))
	}
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	redirectBack(w, r, "/feed")
}

// HandleDeletePost deletes one of the viewer's own posts.
//
// HTTP: GET /comments/delete?post_id=...
func (h *PostHandler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	postID := r.URL.Query().Get("post_id")
	if postID == "" {
		h.render.renderError(w, r, apperror.NotFound("post", ""))
		return
	}

	if err := h.posts.Delete(r.Context(), userID, postID); err != nil {
		h.render.renderError(w, r, err)
		return
	}

	redirectBack(w, r, "/profile")
}

// HandleDeleteAccount deletes the viewer's account and everything attached
// to it, then clears the session.
//
// HTTP: POST /delete
func (h *PostHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.accounts.Delete(r.Context(), userID); err != nil {
		h.render.renderError(w, r, err)
		return
	}

	auth.ClearSessionCookie(w)
	h.render.Flash(w, r, "Your account has been deleted.")
	http.Redirect(w, r, "/register", http.StatusSeeOther)
}

// redirectBack returns the browser to the page it submitted from, falling
// back when the Referer header is absent. Only same-site paths are
// honoured — a crafted Referer must not turn this into an open redirect.
func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	if ref := r.Referer(); ref != "" {
		if u, err := url.Parse(ref); err == nil && (u.Host == "" || u.Host == r.Host) && u.Path != "" {
			http.Redirect(w, r, u.Path, http.StatusSeeOther)
			return
		}
	}
	http.Redirect(w, r, fallback, http.StatusSeeOther)
}
