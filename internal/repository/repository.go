// Package repository declares the storage interfaces consumed by the
// service layer. The sqlite subpackage provides the concrete implementation.
package repository

import (
	"context"

	"github.com/sakif/devconnect/internal/model"
)

// PerPage is the fixed page size for post listings.
const PerPage = 10

// PostPage is one page of a time-ordered post listing.
type PostPage struct {
	Posts   []model.Post
	Page    int // 1-based
	HasNext bool
	HasPrev bool
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	LinkGitHub(ctx context.Context, userID string, githubID int64, login, avatarURL string) error

	// SyncGitHubData stores the fetched languages and repos and flips the
	// linked flag, all in one transaction.
	SyncGitHubData(ctx context.Context, userID string, languages map[string]int64, repos []model.Repo) error

	// Delete removes the user and everything referencing them (likes,
	// posts, connection edges in both directions) in one transaction.
	Delete(ctx context.Context, id string) error

	// SuggestByLanguage returns users other than userID whose language map
	// contains lang as a key. An empty lang matches every other user.
	SuggestByLanguage(ctx context.Context, userID, lang string) ([]model.User, error)
}

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)

	// Delete removes the post and its likes in one transaction.
	Delete(ctx context.Context, id string) error

	// OwnPosts lists posts authored by userID, newest first.
	OwnPosts(ctx context.Context, userID, viewerID string, page int) (*PostPage, error)

	// Feed lists posts authored by userID or by any user with an accepted
	// edge to/from userID, newest first.
	Feed(ctx context.Context, userID string, page int) (*PostPage, error)

	Like(ctx context.Context, userID, postID string) error
	Unlike(ctx context.Context, userID, postID string) error
	HasLiked(ctx context.Context, userID, postID string) (bool, error)
}

type ConnectionRepository interface {
	// CreateEdge inserts a pending edge iff none exists for the ordered
	// pair. Returns false when the edge was already present.
	CreateEdge(ctx context.Context, senderID, recipientID string) (bool, error)

	// AcceptEdge sets accepted on (sender→recipient). No-op if absent.
	AcceptEdge(ctx context.Context, senderID, recipientID string) error

	// DeleteEdge removes the (sender→recipient) edge. No-op if absent.
	DeleteEdge(ctx context.Context, senderID, recipientID string) error

	// DeleteBoth removes both directed edges between a and b in one
	// transaction.
	DeleteBoth(ctx context.Context, a, b string) error

	EdgeExists(ctx context.Context, senderID, recipientID string) (bool, error)
	IsConnected(ctx context.Context, a, b string) (bool, error)

	// PendingRequesters returns the users who sent userID a request that
	// is still pending, oldest request first.
	PendingRequesters(ctx context.Context, userID string) ([]model.User, error)

	// SearchConnected returns the users connected to userID (accepted edge
	// in either direction) whose username contains query. An empty query
	// matches all of them.
	SearchConnected(ctx context.Context, userID, query string) ([]model.User, error)
}
