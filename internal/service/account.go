// Package service contains the business logic layer: validation, the
// connection state machine, and orchestration between repositories and the
// auth utilities. Handlers call services; services never touch HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/auth"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
)

// Validation bounds, matching the registration form.
const (
	MinPasswordLength = 7
	MaxPasswordLength = 32
	MaxUsernameLength = 64
	MaxEmailLength    = 120
)

// GitHubFetcher supplies the external account data consumed by the
// first-login sync. Implemented by github.Client; mocked in tests.
type GitHubFetcher interface {
	Repos(ctx context.Context) ([]model.Repo, error)
	Languages(ctx context.Context) (map[string]int64, error)
}

// AccountService handles registration, login, GitHub identity linking, the
// first-login data sync, and account deletion.
type AccountService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

func NewAccountService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued session token so the handler
// can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a local account. Duplicate usernames and emails come
// back as field-level validation errors so the form can re-render with a
// message next to the offending field.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperror.ValidationFailed("username", "Please use a different username.")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/account: checking username %q: %w", username, err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperror.ValidationFailed("email", "Please use a different email address.")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/account: checking email %q: %w", email, err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/account: creating user %q: %w", username, err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID), slog.String("username", username))
	return user, nil
}

// Login verifies a username/password pair and issues a session token.
//
// Failure is deliberately generic — the same "invalid username or password"
// error whether the username is unknown, the password is wrong, or the
// account was provisioned through OAuth and has no password at all. The
// response must not reveal which usernames exist.
func (s *AccountService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	failed := apperror.Unauthorized("Invalid username or password")

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, failed
		}
		return nil, fmt.Errorf("service/account: looking up user %q: %w", username, err)
	}

	if user.PasswordHash == "" {
		return nil, failed
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, failed
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGitHub handles the OAuth callback. Lookup order:
//
//  1. by GitHub ID — a returning OAuth user;
//  2. by email — a local account the user is now linking;
//  3. otherwise provision a new account with a username derived from the
//     GitHub login (suffixed until unique).
//
// OAuth-provisioned accounts get no password hash and cannot log in
// locally until one is set.
func (s *AccountService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/account: GitHub user must not be nil")
	}

	user, err := s.users.GetByGitHubID(ctx, ghUser.ID)
	switch {
	case err == nil:
		// returning user
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.linkOrProvision(ctx, ghUser)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/account: looking up github id %d: %w", ghUser.ID, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("githubLogin", ghUser.Login),
	)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AccountService) linkOrProvision(ctx context.Context, ghUser *auth.GitHubUser) (*model.User, error) {
	if ghUser.Email != "" {
		existing, err := s.users.GetByEmail(ctx, ghUser.Email)
		if err == nil {
			if err := s.users.LinkGitHub(ctx, existing.ID, ghUser.ID, ghUser.Login, ghUser.AvatarURL); err != nil {
				return nil, fmt.Errorf("service/account: linking github to user %s: %w", existing.ID, err)
			}
			return s.users.GetByID(ctx, existing.ID)
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/account: looking up email %q: %w", ghUser.Email, err)
		}
	}

	username, err := s.availableUsername(ctx, ghUser.Login)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:    username,
		Email:       ghUser.Email,
		GitHubID:    ghUser.ID,
		GitHubLogin: ghUser.Login,
		AvatarURL:   ghUser.AvatarURL,
	}
	if user.Email == "" {
		// users.email is unique; synthesize a placeholder for hidden emails
		user.Email = fmt.Sprintf("%d+%s@users.noreply.github.com", ghUser.ID, ghUser.Login)
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/account: provisioning github user %q: %w", ghUser.Login, err)
	}
	return user, nil
}

// availableUsername returns base if free, otherwise base-2, base-3, ...
func (s *AccountService) availableUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		_, err := s.users.GetByUsername(ctx, candidate)
		if errors.Is(err, apperror.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("service/account: checking username %q: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// SyncGitHub performs the one-time external account sync: languages and
// repositories are fetched and stored together, and the linked flag is
// flipped, all in one transaction. A no-op once GitHubLinked is set.
func (s *AccountService) SyncGitHub(ctx context.Context, userID string, fetcher GitHubFetcher) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/account: loading user %s: %w", userID, err)
	}
	if user.GitHubLinked || user.GitHubID == 0 {
		return nil
	}

	languages, err := fetcher.Languages(ctx)
	if err != nil {
		return fmt.Errorf("service/account: fetching languages for user %s: %w", userID, err)
	}
	repos, err := fetcher.Repos(ctx)
	if err != nil {
		return fmt.Errorf("service/account: fetching repos for user %s: %w", userID, err)
	}

	if err := s.users.SyncGitHubData(ctx, userID, languages, repos); err != nil {
		return fmt.Errorf("service/account: storing github data for user %s: %w", userID, err)
	}

	s.logger.Info("github account synced",
		slog.String("userID", userID),
		slog.Int("languages", len(languages)),
		slog.Int("repos", len(repos)),
	)
	return nil
}

// Delete removes the account and everything that references it.
func (s *AccountService) Delete(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("service/account: deleting user %s: %w", userID, err)
	}
	s.logger.Info("account deleted", slog.String("userID", userID))
	return nil
}

// GetByID returns the user for the given internal ID.
func (s *AccountService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/account: user ID must not be empty")
	}
	return s.users.GetByID(ctx, id)
}

// GetByUsername returns the user for the given username. Missing users
// surface as apperror.ErrNotFound, which handlers render as 404.
func (s *AccountService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if username == "" {
		return nil, fmt.Errorf("service/account: username must not be empty")
	}
	return s.users.GetByUsername(ctx, username)
}

func validateRegistration(username, email, password string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "Username is required.")
	}
	if len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("Username must be %d characters or fewer.", MaxUsernameLength))
	}
	if email == "" || !strings.Contains(email, "@") {
		return apperror.ValidationFailed("email", "A valid email address is required.")
	}
	if len(email) > MaxEmailLength {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("Email must be %d characters or fewer.", MaxEmailLength))
	}
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("Password must be between %d and %d characters.",
				MinPasswordLength, MaxPasswordLength))
	}
	return nil
}
