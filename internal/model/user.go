// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts are created either locally (username/email/password) or through
// GitHub OAuth. Local accounts have GitHubID = 0 until the user links their
// GitHub account; OAuth-provisioned accounts carry an unusable password hash.
//
// Languages and Repos are populated once, on the first login after the
// GitHub account is linked (GitHubLinked guards the sync). Languages maps a
// language name to the total byte count GitHub reports for it across the
// user's repositories.
type User struct {
	ID           string           `json:"id"`
	Username     string           `json:"username"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"`
	GitHubID     int64            `json:"githubId,omitempty"` // GitHub's numeric user ID, 0 if unlinked
	GitHubLogin  string           `json:"githubLogin,omitempty"`
	AvatarURL    string           `json:"avatarUrl,omitempty"`
	Languages    map[string]int64 `json:"languages,omitempty"` // language → byte count
	Repos        []Repo           `json:"repos,omitempty"`
	GitHubLinked bool             `json:"githubLinked"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// Repo is a repository descriptor fetched from the user's GitHub account.
type Repo struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"` // primary language, may be empty
	Stars    int    `json:"stars"`
	URL      string `json:"url"`
}

// TopLanguage returns the user's most-used language by byte count.
// Ties break by language name ascending so the result is deterministic.
// Returns "" when no languages are recorded.
func (u *User) TopLanguage() string {
	var top string
	var topBytes int64
	for lang, bytes := range u.Languages {
		switch {
		case top == "", bytes > topBytes, bytes == topBytes && lang < top:
			top = lang
			topBytes = bytes
		}
	}
	return top
}
