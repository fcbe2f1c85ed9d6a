package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/devconnect/internal/apperror"
)

func newTestPostService() (*PostService, *fakePostRepo) {
	posts := newFakePostRepo()
	return NewPostService(posts, testLogger()), posts
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestPostCreate(t *testing.T) {
	svc, _ := newTestPostService()

	post, err := svc.Create(context.Background(), "user-1", "hello world")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if post.ID == "" {
		t.Error("Create() returned post without ID")
	}
	if post.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", post.UserID)
	}
}

func TestPostCreate_TrimsWhitespace(t *testing.T) {
	svc, _ := newTestPostService()

	post, err := svc.Create(context.Background(), "user-1", "  spaced out  ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if post.Body != "spaced out" {
		t.Errorf("Body = %q, want trimmed", post.Body)
	}
}

func TestPostCreate_Validation(t *testing.T) {
	svc, _ := newTestPostService()

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t "},
		{"too long", strings.Repeat("x", MaxPostLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "user-1", tt.body)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Create(%q) error = %v, want ErrValidation", tt.name, err)
			}
		})
	}

	// Exactly the limit is fine.
	if _, err := svc.Create(context.Background(), "user-1", strings.Repeat("x", MaxPostLength)); err != nil {
		t.Errorf("Create() at max length: %v", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestPostDelete_AuthorOnly(t *testing.T) {
	svc, _ := newTestPostService()
	ctx := context.Background()

	post, err := svc.Create(ctx, "author", "mine")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = svc.Delete(ctx, "someone-else", post.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete() by non-author error = %v, want ErrForbidden", err)
	}

	if err := svc.Delete(ctx, "author", post.ID); err != nil {
		t.Fatalf("Delete() by author: %v", err)
	}
}

func TestPostDelete_NotFound(t *testing.T) {
	svc, _ := newTestPostService()

	err := svc.Delete(context.Background(), "author", "ghost")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIKE TESTS
// =========================================================================

func TestPostLike(t *testing.T) {
	svc, posts := newTestPostService()
	ctx := context.Background()

	post, err := svc.Create(ctx, "author", "like me")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Like(ctx, "fan", post.ID); err != nil {
		t.Fatalf("Like() error = %v", err)
	}
	liked, _ := posts.HasLiked(ctx, "fan", post.ID)
	if !liked {
		t.Error("HasLiked = false after Like")
	}

	if err := svc.Unlike(ctx, "fan", post.ID); err != nil {
		t.Fatalf("Unlike() error = %v", err)
	}
	liked, _ = posts.HasLiked(ctx, "fan", post.ID)
	if liked {
		t.Error("HasLiked = true after Unlike")
	}
}

func TestPostLike_UnknownPost(t *testing.T) {
	svc, _ := newTestPostService()

	if err := svc.Like(context.Background(), "fan", "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Like() error = %v, want ErrNotFound", err)
	}
	if err := svc.Unlike(context.Background(), "fan", "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Unlike() error = %v, want ErrNotFound", err)
	}
}
