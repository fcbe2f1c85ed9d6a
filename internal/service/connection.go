package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
)

// ConnectionService owns the connection request state machine:
//
//	none → pending   (SendRequest)
//	pending → accepted (AcceptRequest)
//	pending → none   (DeclineRequest)
//	accepted → none  (RemoveConnection)
//
// There is no accepted → pending transition, and no operation ever
// overwrites an existing edge's state.
type ConnectionService struct {
	edges  repository.ConnectionRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewConnectionService(
	edges repository.ConnectionRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *ConnectionService {
	return &ConnectionService{edges: edges, users: users, logger: logger}
}

// SendRequest creates a pending edge from senderID to the named recipient.
// Idempotent: a no-op when the ordered pair already has an edge, and when
// the two users are already connected through the reverse direction.
// Requests to yourself are rejected.
func (s *ConnectionService) SendRequest(ctx context.Context, senderID, recipientUsername string) error {
	recipient, err := s.users.GetByUsername(ctx, recipientUsername)
	if err != nil {
		return fmt.Errorf("service/connection: resolving recipient %q: %w", recipientUsername, err)
	}

	if recipient.ID == senderID {
		return apperror.ValidationFailed("username", "You cannot send a connection request to yourself.")
	}

	connected, err := s.edges.IsConnected(ctx, senderID, recipient.ID)
	if err != nil {
		return fmt.Errorf("service/connection: checking connection: %w", err)
	}
	if connected {
		return nil
	}

	created, err := s.edges.CreateEdge(ctx, senderID, recipient.ID)
	if err != nil {
		return fmt.Errorf("service/connection: sending request to %q: %w", recipientUsername, err)
	}
	if created {
		s.logger.Info("connection request sent",
			slog.String("senderID", senderID),
			slog.String("recipientID", recipient.ID),
		)
	}
	return nil
}

// AcceptRequest marks the pending edge from the named sender to
// recipientID as accepted. A no-op if the edge no longer exists.
func (s *ConnectionService) AcceptRequest(ctx context.Context, recipientID, senderUsername string) error {
	sender, err := s.users.GetByUsername(ctx, senderUsername)
	if err != nil {
		return fmt.Errorf("service/connection: resolving sender %q: %w", senderUsername, err)
	}

	if err := s.edges.AcceptEdge(ctx, sender.ID, recipientID); err != nil {
		return fmt.Errorf("service/connection: accepting request from %q: %w", senderUsername, err)
	}

	s.logger.Info("connection request accepted",
		slog.String("senderID", sender.ID),
		slog.String("recipientID", recipientID),
	)
	return nil
}

// DeclineRequest deletes the pending edge from the named sender to
// recipientID. Idempotent.
func (s *ConnectionService) DeclineRequest(ctx context.Context, recipientID, senderUsername string) error {
	sender, err := s.users.GetByUsername(ctx, senderUsername)
	if err != nil {
		return fmt.Errorf("service/connection: resolving sender %q: %w", senderUsername, err)
	}

	if err := s.edges.DeleteEdge(ctx, sender.ID, recipientID); err != nil {
		return fmt.Errorf("service/connection: declining request from %q: %w", senderUsername, err)
	}
	return nil
}

// RemoveConnection deletes the edges between userID and the named user in
// both directions at once — one transaction, never a half-removed pair.
func (s *ConnectionService) RemoveConnection(ctx context.Context, userID, otherUsername string) error {
	other, err := s.users.GetByUsername(ctx, otherUsername)
	if err != nil {
		return fmt.Errorf("service/connection: resolving user %q: %w", otherUsername, err)
	}

	if err := s.edges.DeleteBoth(ctx, userID, other.ID); err != nil {
		return fmt.Errorf("service/connection: removing connection with %q: %w", otherUsername, err)
	}

	s.logger.Info("connection removed",
		slog.String("userID", userID),
		slog.String("otherID", other.ID),
	)
	return nil
}

// PendingRequests returns the users whose requests to userID are awaiting
// a response.
func (s *ConnectionService) PendingRequests(ctx context.Context, userID string) ([]model.User, error) {
	users, err := s.edges.PendingRequesters(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/connection: listing pending requests: %w", err)
	}
	return users, nil
}

// IsConnected reports whether a and b share an accepted edge in either
// direction.
func (s *ConnectionService) IsConnected(ctx context.Context, a, b string) (bool, error) {
	connected, err := s.edges.IsConnected(ctx, a, b)
	if err != nil {
		return false, fmt.Errorf("service/connection: checking connection: %w", err)
	}
	return connected, nil
}

// SearchConnections returns userID's connections whose username contains
// query. An empty query lists them all.
func (s *ConnectionService) SearchConnections(ctx context.Context, userID, query string) ([]model.User, error) {
	users, err := s.edges.SearchConnected(ctx, userID, query)
	if err != nil {
		return nil, fmt.Errorf("service/connection: searching connections: %w", err)
	}
	return users, nil
}

// Connections lists all of userID's connections.
func (s *ConnectionService) Connections(ctx context.Context, userID string) ([]model.User, error) {
	return s.SearchConnections(ctx, userID, "")
}

// Suggestions proposes new connections for userID.
//
// The user's top language is the one with the highest byte count, ties
// broken by language name ascending. Users whose language map contains
// that language as a key are suggested — the byte count value is
// irrelevant. With no recorded languages every other user qualifies.
// The user themself and existing connections are filtered out.
func (s *ConnectionService) Suggestions(ctx context.Context, userID string) ([]model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/connection: loading user %s: %w", userID, err)
	}

	candidates, err := s.users.SuggestByLanguage(ctx, userID, user.TopLanguage())
	if err != nil {
		return nil, fmt.Errorf("service/connection: querying suggestions: %w", err)
	}

	suggestions := make([]model.User, 0, len(candidates))
	for _, candidate := range candidates {
		connected, err := s.edges.IsConnected(ctx, userID, candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("service/connection: filtering suggestions: %w", err)
		}
		if !connected {
			suggestions = append(suggestions, candidate)
		}
	}
	return suggestions, nil
}
