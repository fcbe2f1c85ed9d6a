package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
)

// compile-time check that *PostDB implements repository.PostRepository
var _ repository.PostRepository = (*PostDB)(nil)

// postColumns selects the display-ready shape of a post: author username,
// like count, and whether the viewer (first bind arg) has liked it.
const postColumns = `
	p.id, p.user_id, p.body, p.created_at, u.username,
	(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id),
	EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = ?)`

// Create inserts a new post, filling in the generated ID and timestamp.
func (db *PostDB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, body, created_at) VALUES (?, ?, ?, ?)`,
		post.ID, post.UserID, post.Body, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting post for user %s: %w", post.UserID, err)
	}
	return nil
}

// GetByID retrieves a single post without display fields.
func (db *PostDB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, body, created_at FROM posts WHERE id = ?`, id,
	).Scan(&p.ID, &p.UserID, &p.Body, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return &p, nil
}

// Delete removes a post and its likes in one transaction.
func (db *PostDB) Delete(ctx context.Context, id string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM post_likes WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting likes of post %s: %w", id, err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.NotFound("post", id)
		}
		return nil
	})
}

// OwnPosts lists the posts authored by userID, newest first. viewerID
// determines the LikedByViewer flag (usually the same user on a profile
// page, another user when browsing someone else's profile).
func (db *PostDB) OwnPosts(ctx context.Context, userID, viewerID string, page int) (*repository.PostPage, error) {
	return db.listPosts(ctx, page,
		`SELECT `+postColumns+`
		 FROM posts p JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = ?
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ? OFFSET ?`,
		viewerID, userID)
}

// Feed lists posts authored by userID plus posts by every user connected to
// them through an accepted edge in either direction. Newest first.
//
// This mirrors the symmetric-edge convention: one accepted row per
// direction, so connectivity is the union of the sender-side and
// recipient-side subqueries.
func (db *PostDB) Feed(ctx context.Context, userID string, page int) (*repository.PostPage, error) {
	return db.listPosts(ctx, page,
		`SELECT `+postColumns+`
		 FROM posts p JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = ?
		    OR p.user_id IN (SELECT recipient_id FROM connections
		                     WHERE sender_id = ? AND accepted = 1)
		    OR p.user_id IN (SELECT sender_id FROM connections
		                     WHERE recipient_id = ? AND accepted = 1)
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ? OFFSET ?`,
		userID, userID, userID, userID)
}

// listPosts runs a paginated post query. The query must end with
// "LIMIT ? OFFSET ?"; args holds the viewer ID (for the liked-by-viewer
// column) followed by the WHERE bind values. We fetch one extra row to
// decide HasNext without a COUNT query.
func (db *PostDB) listPosts(ctx context.Context, page int, query string, args ...any) (*repository.PostPage, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * repository.PerPage

	args = append(args, repository.PerPage+1, offset)
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Body, &p.CreatedAt,
			&p.AuthorUsername, &p.LikeCount, &p.LikedByViewer); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating post rows: %w", err)
	}

	hasNext := len(posts) > repository.PerPage
	if hasNext {
		posts = posts[:repository.PerPage]
	}

	return &repository.PostPage{
		Posts:   posts,
		Page:    page,
		HasNext: hasNext,
		HasPrev: page > 1,
	}, nil
}

// Like records that userID likes postID. Inserting an existing pair is a
// no-op: the row's existence is the invariant, not the number of attempts.
func (db *PostDB) Like(ctx context.Context, userID, postID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO post_likes (user_id, post_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id, post_id) DO NOTHING`,
		userID, postID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: liking post %s for user %s: %w", postID, userID, err)
	}
	return nil
}

// Unlike removes the like row if present. Idempotent.
func (db *PostDB) Unlike(ctx context.Context, userID, postID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM post_likes WHERE user_id = ? AND post_id = ?`,
		userID, postID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unliking post %s for user %s: %w", postID, userID, err)
	}
	return nil
}

// HasLiked reports whether the like row exists.
func (db *PostDB) HasLiked(ctx context.Context, userID, postID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM post_likes WHERE user_id = ? AND post_id = ?)`,
		userID, postID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking like on post %s: %w", postID, err)
	}
	return exists, nil
}
