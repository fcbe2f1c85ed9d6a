package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/devconnect/internal/apperror"
	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, username, email, password_hash, github_id,
	github_login, avatar_url, languages, repos, github_linked,
	created_at, updated_at`

// prefixedUserColumns is userColumns qualified with the "u" table alias,
// for queries that join users against another table.
const prefixedUserColumns = `u.id, u.username, u.email, u.password_hash,
	u.github_id, u.github_login, u.avatar_url, u.languages, u.repos,
	u.github_linked, u.created_at, u.updated_at`

// Create inserts a new user. The caller's struct is updated in place with
// the generated ID and timestamps. Unique violations on username or email
// surface as apperror.ErrConflict.
func (db *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	languages, repos, err := marshalGitHubData(user)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, github_id,
			github_login, avatar_url, languages, repos, github_linked,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		nullableGitHubID(user.GitHubID),
		user.GitHubLogin,
		user.AvatarURL,
		languages,
		repos,
		user.GitHubLinked,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no such user exists.
func (db *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `WHERE id = ?`, id)
}

// GetByUsername retrieves a user by their (unique) username.
func (db *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, `WHERE username = ?`, username)
}

// GetByEmail retrieves a user by their (unique) email address.
func (db *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `WHERE email = ?`, email)
}

// GetByGitHubID retrieves a user by their linked GitHub account ID.
func (db *UserDB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.getUser(ctx, `WHERE github_id = ?`, githubID)
}

func (db *UserDB) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users `+where, arg)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user (%v): %w", arg, err)
	}
	return user, nil
}

// LinkGitHub attaches GitHub identity fields to an existing account.
func (db *UserDB) LinkGitHub(ctx context.Context, userID string, githubID int64, login, avatarURL string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET github_id = ?, github_login = ?, avatar_url = ?,
			updated_at = ? WHERE id = ?`,
		githubID, login, avatarURL, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: linking github for user %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// SyncGitHubData stores the fetched language byte counts and repository
// descriptors and flips the linked flag. Single UPDATE, single transaction —
// a crash can never leave languages written but repos missing.
func (db *UserDB) SyncGitHubData(ctx context.Context, userID string, languages map[string]int64, repos []model.Repo) error {
	languagesJSON, err := json.Marshal(languages)
	if err != nil {
		return fmt.Errorf("sqlite: encoding languages for user %s: %w", userID, err)
	}
	reposJSON, err := json.Marshal(repos)
	if err != nil {
		return fmt.Errorf("sqlite: encoding repos for user %s: %w", userID, err)
	}

	return db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET languages = ?, repos = ?, github_linked = 1,
				updated_at = ? WHERE id = ?`,
			string(languagesJSON), string(reposJSON), time.Now(), userID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: syncing github data for user %s: %w", userID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.NotFound("user", userID)
		}
		return nil
	})
}

// Delete removes the user and everything referencing them: their likes,
// likes on their posts, their posts, and connection edges in either
// direction. One transaction, dependency order.
func (db *UserDB) Delete(ctx context.Context, id string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		steps := []struct {
			query string
			args  []any
		}{
			{`DELETE FROM post_likes WHERE user_id = ?`, []any{id}},
			{`DELETE FROM post_likes WHERE post_id IN
				(SELECT id FROM posts WHERE user_id = ?)`, []any{id}},
			{`DELETE FROM posts WHERE user_id = ?`, []any{id}},
			{`DELETE FROM connections WHERE sender_id = ? OR recipient_id = ?`, []any{id, id}},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, step.args...); err != nil {
				return fmt.Errorf("sqlite: deleting user %s data: %w", id, err)
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.NotFound("user", id)
		}
		return nil
	})
}

// SuggestByLanguage returns users other than userID whose language map has
// lang as a key. An empty lang matches every other user (the "no recorded
// languages" fallback). Ordered by username for stable rendering.
//
// Languages are stored as a JSON object, so key membership is a simple
// json_extract on the quoted key — the byte count value is irrelevant.
func (db *UserDB) SuggestByLanguage(ctx context.Context, userID, lang string) ([]model.User, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if lang == "" {
		rows, err = db.conn.QueryContext(ctx,
			`SELECT `+userColumns+` FROM users
			 WHERE id != ? ORDER BY username ASC`, userID)
	} else {
		rows, err = db.conn.QueryContext(ctx,
			`SELECT `+userColumns+` FROM users
			 WHERE id != ? AND languages IS NOT NULL
			   AND json_extract(languages, '$.' || '"' || ? || '"') IS NOT NULL
			 ORDER BY username ASC`, userID, lang)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying suggestions for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u             model.User
		githubID      sql.NullInt64
		languagesJSON sql.NullString
		reposJSON     sql.NullString
	)
	err := s.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&githubID,
		&u.GitHubLogin,
		&u.AvatarURL,
		&languagesJSON,
		&reposJSON,
		&u.GitHubLinked,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.GitHubID = githubID.Int64
	if languagesJSON.Valid && languagesJSON.String != "" {
		if err := json.Unmarshal([]byte(languagesJSON.String), &u.Languages); err != nil {
			return nil, fmt.Errorf("decoding languages for user %s: %w", u.ID, err)
		}
	}
	if reposJSON.Valid && reposJSON.String != "" {
		if err := json.Unmarshal([]byte(reposJSON.String), &u.Repos); err != nil {
			return nil, fmt.Errorf("decoding repos for user %s: %w", u.ID, err)
		}
	}
	return &u, nil
}

func collectUsers(rows *sql.Rows) ([]model.User, error) {
	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}
	return users, nil
}

// marshalGitHubData encodes the optional JSON columns, mapping empty values
// to NULL so unlinked accounts stay distinguishable from synced-but-empty.
func marshalGitHubData(user *model.User) (languages, repos any, err error) {
	if user.Languages != nil {
		b, err := json.Marshal(user.Languages)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: encoding languages: %w", err)
		}
		languages = string(b)
	}
	if user.Repos != nil {
		b, err := json.Marshal(user.Repos)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: encoding repos: %w", err)
		}
		repos = string(b)
	}
	return languages, repos, nil
}

func nullableGitHubID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite doesn't export a typed error for this, so we match the
// message SQLite itself produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
