package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
)

// MaxPostLength bounds the body of a status post.
const MaxPostLength = 240

// PostService handles post creation/deletion, the aggregated feed, and the
// like toggle.
type PostService struct {
	posts  repository.PostRepository
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, logger: logger}
}

// Create validates and stores a new post for userID.
func (s *PostService) Create(ctx context.Context, userID, body string) (*model.Post, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperror.ValidationFailed("body", "Post body must not be empty.")
	}
	if len(body) > MaxPostLength {
		return nil, apperror.ValidationFailed("body",
			fmt.Sprintf("Post body must be %d characters or fewer.", MaxPostLength))
	}

	post := &model.Post{UserID: userID, Body: body}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.Info("post created", slog.String("postID", post.ID), slog.String("userID", userID))
	return post, nil
}

// Delete removes a post. Only the author may delete it: 403 for anyone
// else, 404 for posts that no longer exist.
func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("service/post: loading post %s: %w", postID, err)
	}
	if post.UserID != userID {
		return apperror.Forbidden("You can only delete your own posts.")
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return fmt.Errorf("service/post: deleting post %s: %w", postID, err)
	}

	s.logger.Info("post deleted", slog.String("postID", postID), slog.String("userID", userID))
	return nil
}

// OwnPosts returns one page of userID's posts, newest first. viewerID
// drives the liked-by-viewer flag on each post.
func (s *PostService) OwnPosts(ctx context.Context, userID, viewerID string, page int) (*repository.PostPage, error) {
	result, err := s.posts.OwnPosts(ctx, userID, viewerID, page)
	if err != nil {
		return nil, fmt.Errorf("service/post: listing posts for user %s: %w", userID, err)
	}
	return result, nil
}

// Feed returns one page of the aggregated stream: userID's posts plus
// posts from every accepted connection, newest first.
func (s *PostService) Feed(ctx context.Context, userID string, page int) (*repository.PostPage, error) {
	result, err := s.posts.Feed(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("service/post: building feed for user %s: %w", userID, err)
	}
	return result, nil
}

// Like records userID's like on postID. Idempotent — liking twice leaves
// exactly one like row. 404 when the post doesn't exist.
func (s *PostService) Like(ctx context.Context, userID, postID string) error {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return fmt.Errorf("service/post: loading post %s: %w", postID, err)
	}
	if err := s.posts.Like(ctx, userID, postID); err != nil {
		return fmt.Errorf("service/post: liking post %s: %w", postID, err)
	}
	return nil
}

// Unlike removes userID's like on postID, regardless of how many times
// Like was called. Idempotent.
func (s *PostService) Unlike(ctx context.Context, userID, postID string) error {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return fmt.Errorf("service/post: loading post %s: %w", postID, err)
	}
	if err := s.posts.Unlike(ctx, userID, postID); err != nil {
		return fmt.Errorf("service/post: unliking post %s: %w", postID, err)
	}
	return nil
}
