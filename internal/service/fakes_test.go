package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
)

// In-memory fakes for the repository interfaces. Plain fakes instead of a
// mock framework: the behavior is visible at a glance, and tests read as
// scenarios rather than expectation setups.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =========================================================================
// fakeUserRepo
// =========================================================================

type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int

	// set to simulate a storage failure
	err error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) add(t *testing.T, user *model.User) *model.User {
	t.Helper()
	if err := f.Create(context.Background(), user); err != nil {
		t.Fatalf("fakeUserRepo.add: %v", err)
	}
	return user
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.err != nil {
		return f.err
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	for _, u := range f.users {
		if u.GitHubID == githubID && githubID != 0 {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", fmt.Sprint(githubID))
}

func (f *fakeUserRepo) LinkGitHub(ctx context.Context, userID string, githubID int64, login, avatarURL string) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.GitHubID = githubID
	u.GitHubLogin = login
	u.AvatarURL = avatarURL
	return nil
}

func (f *fakeUserRepo) SyncGitHubData(ctx context.Context, userID string, languages map[string]int64, repos []model.Repo) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.Languages = languages
	u.Repos = repos
	u.GitHubLinked = true
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) SuggestByLanguage(ctx context.Context, userID, lang string) ([]model.User, error) {
	var out []model.User
	for _, u := range f.users {
		if u.ID == userID {
			continue
		}
		if lang != "" {
			if _, ok := u.Languages[lang]; !ok {
				continue
			}
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// =========================================================================
// fakePostRepo
// =========================================================================

type fakePostRepo struct {
	posts  map[string]*model.Post
	likes  map[string]bool // "userID/postID"
	nextID int

	err error
}

var _ repository.PostRepository = (*fakePostRepo)(nil)

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.Post), likes: make(map[string]bool), nextID: 1}
}

func likeKey(userID, postID string) string { return userID + "/" + postID }

func (f *fakePostRepo) Create(ctx context.Context, post *model.Post) error {
	if f.err != nil {
		return f.err
	}
	post.ID = fmt.Sprintf("post-%d", f.nextID)
	f.nextID++
	post.CreatedAt = time.Now()
	copied := *post
	f.posts[post.ID] = &copied
	return nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id string) (*model.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	copied := *p
	return &copied, nil
}

func (f *fakePostRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(f.posts, id)
	for key := range f.likes {
		if strings.HasSuffix(key, "/"+id) {
			delete(f.likes, key)
		}
	}
	return nil
}

func (f *fakePostRepo) OwnPosts(ctx context.Context, userID, viewerID string, page int) (*repository.PostPage, error) {
	var posts []model.Post
	for _, p := range f.posts {
		if p.UserID == userID {
			posts = append(posts, *p)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return &repository.PostPage{Posts: posts, Page: page, HasPrev: page > 1}, nil
}

func (f *fakePostRepo) Feed(ctx context.Context, userID string, page int) (*repository.PostPage, error) {
	return f.OwnPosts(ctx, userID, userID, page)
}

func (f *fakePostRepo) Like(ctx context.Context, userID, postID string) error {
	f.likes[likeKey(userID, postID)] = true
	return nil
}

func (f *fakePostRepo) Unlike(ctx context.Context, userID, postID string) error {
	delete(f.likes, likeKey(userID, postID))
	return nil
}

func (f *fakePostRepo) HasLiked(ctx context.Context, userID, postID string) (bool, error) {
	return f.likes[likeKey(userID, postID)], nil
}

// =========================================================================
// fakeEdgeRepo
// =========================================================================

type fakeEdge struct {
	accepted  bool
	createdAt time.Time
}

type fakeEdgeRepo struct {
	edges map[string]*fakeEdge // "senderID→recipientID"
	users *fakeUserRepo        // for PendingRequesters / SearchConnected
}

var _ repository.ConnectionRepository = (*fakeEdgeRepo)(nil)

func newFakeEdgeRepo(users *fakeUserRepo) *fakeEdgeRepo {
	return &fakeEdgeRepo{edges: make(map[string]*fakeEdge), users: users}
}

func edgeKey(senderID, recipientID string) string { return senderID + "→" + recipientID }

func (f *fakeEdgeRepo) CreateEdge(ctx context.Context, senderID, recipientID string) (bool, error) {
	key := edgeKey(senderID, recipientID)
	if _, ok := f.edges[key]; ok {
		return false, nil
	}
	f.edges[key] = &fakeEdge{createdAt: time.Now()}
	return true, nil
}

func (f *fakeEdgeRepo) AcceptEdge(ctx context.Context, senderID, recipientID string) error {
	if e, ok := f.edges[edgeKey(senderID, recipientID)]; ok {
		e.accepted = true
	}
	return nil
}

func (f *fakeEdgeRepo) DeleteEdge(ctx context.Context, senderID, recipientID string) error {
	delete(f.edges, edgeKey(senderID, recipientID))
	return nil
}

func (f *fakeEdgeRepo) DeleteBoth(ctx context.Context, a, b string) error {
	delete(f.edges, edgeKey(a, b))
	delete(f.edges, edgeKey(b, a))
	return nil
}

func (f *fakeEdgeRepo) EdgeExists(ctx context.Context, senderID, recipientID string) (bool, error) {
	_, ok := f.edges[edgeKey(senderID, recipientID)]
	return ok, nil
}

func (f *fakeEdgeRepo) IsConnected(ctx context.Context, a, b string) (bool, error) {
	if e, ok := f.edges[edgeKey(a, b)]; ok && e.accepted {
		return true, nil
	}
	if e, ok := f.edges[edgeKey(b, a)]; ok && e.accepted {
		return true, nil
	}
	return false, nil
}

func (f *fakeEdgeRepo) PendingRequesters(ctx context.Context, userID string) ([]model.User, error) {
	type req struct {
		user model.User
		at   time.Time
	}
	var reqs []req
	for key, e := range f.edges {
		if e.accepted {
			continue
		}
		parts := strings.SplitN(key, "→", 2)
		if parts[1] != userID {
			continue
		}
		if u, ok := f.users.users[parts[0]]; ok {
			reqs = append(reqs, req{user: *u, at: e.createdAt})
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].at.Before(reqs[j].at) })
	out := make([]model.User, len(reqs))
	for i, r := range reqs {
		out[i] = r.user
	}
	return out, nil
}

func (f *fakeEdgeRepo) SearchConnected(ctx context.Context, userID, query string) ([]model.User, error) {
	var out []model.User
	for key, e := range f.edges {
		if !e.accepted {
			continue
		}
		parts := strings.SplitN(key, "→", 2)
		var otherID string
		switch userID {
		case parts[0]:
			otherID = parts[1]
		case parts[1]:
			otherID = parts[0]
		default:
			continue
		}
		u, ok := f.users.users[otherID]
		if !ok || !strings.Contains(u.Username, query) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// =========================================================================
// service constructors
// =========================================================================

func newTestAccountService(t *testing.T, users *fakeUserRepo) *AccountService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars")
	if err != nil {
		t.Fatalf("creating token service: %v", err)
	}
	// minimum bcrypt cost keeps the test fast
	return NewAccountService(users, auth.NewPasswordServiceForTest(4), tokens, testLogger())
}
