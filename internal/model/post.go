package model

import "time"

// Post is a short status update authored by a user.
//
// AuthorUsername, LikeCount and LikedByViewer are display fields filled in
// by the repository when loading posts for a page; they are not columns on
// the posts table itself.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`

	AuthorUsername string `json:"authorUsername,omitempty"`
	LikeCount      int    `json:"likeCount"`
	LikedByViewer  bool   `json:"likedByViewer"`
}
