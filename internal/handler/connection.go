package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/service"
)

// ConnectionHandler serves the connections page and the four edge
// mutations (send, accept, decline, remove).
type ConnectionHandler struct {
	accounts    *service.AccountService
	connections *service.ConnectionService
	render      *Renderer
	logger      *slog.Logger
}

func NewConnectionHandler(
	accounts *service.AccountService,
	connections *service.ConnectionService,
	render *Renderer,
	logger *slog.Logger,
) *ConnectionHandler {
	return &ConnectionHandler{
		accounts:    accounts,
		connections: connections,
		render:      render,
		logger:      logger,
	}
}

// HandleConnections shows the viewer's connections (optionally filtered by
// the search form), pending incoming requests, and suggestions.
//
// HTTP: GET /connections, POST /connections (search)
func (h *ConnectionHandler) HandleConnections(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	query := ""
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		query = r.PostFormValue("search")
	}

	user, err := h.accounts.GetByID(r.Context(), userID)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	connected, err := h.connections.SearchConnections(r.Context(), userID, query)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	pending, err := h.connections.PendingRequests(r.Context(), userID)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	suggestions, err := h.connections.Suggestions(r.Context(), userID)
	if err != nil {
		h.render.renderError(w, r, err)
		return
	}

	h.render.Render(w, r, "connections", map[string]any{
		"Title":       "Connections",
		"CurrentUser": user,
		"Connected":   connected,
		"Pending":     pending,
		"Suggestions": suggestions,
		"Search":      query,
	})
}

// HandleSendRequest sends a connection request to the named user.
//
// HTTP: POST /connections/send_request/{username}
func (h *ConnectionHandler) HandleSendRequest(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "Connection request sent.", h.connections.SendRequest)
}

// HandleAcceptRequest accepts a pending request from the named user.
//
// HTTP: POST /connections/accept_request/{username}
func (h *ConnectionHandler) HandleAcceptRequest(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "Connection request accepted.", h.connections.AcceptRequest)
}

// HandleDeclineRequest declines a pending request from the named user.
//
// HTTP: POST /connections/decline_request/{username}
func (h *ConnectionHandler) HandleDeclineRequest(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "Connection request declined.", h.connections.DeclineRequest)
}

// HandleRemoveConnection removes the connection with the named user.
//
// HTTP: POST /connections/remove_connection/{username}
func (h *ConnectionHandler) HandleRemoveConnection(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "Connection removed.", h.connections.RemoveConnection)
}

// mutate runs one of the edge operations against the {username} path
// parameter and redirects back to the connections page with a flash.
// Validation failures (e.g. a self-request) flash their message instead of
// rendering an error page.
func (h *ConnectionHandler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	successMsg string,
	op func(ctx context.Context, userID, username string) error,
) {
	userID, _ := auth.UserIDFromContext(r.Context())
	username := r.PathValue("username")

	if err := op(r.Context(), userID, username); err != nil {
		if _, message, ok := fieldError(err); ok {
			h.render.Flash(w, r, message)
			http.Redirect(w, r, "/connections", http.StatusSeeOther)
			return
		}
		h.render.renderError(w, r, err)
		return
	}

	h.render.Flash(w, r, successMsg)
	http.Redirect(w, r, "/connections", http.StatusSeeOther)
}
