package model

import "time"

// ConnectionEdge is a directed request edge between two users.
//
// Accepted = false is a pending request awaiting the recipient; Accepted =
// true is an active connection, interpreted symmetrically by every query
// that checks connectivity. There is at most one edge per ordered
// (sender, recipient) pair, never two for the same direction.
type ConnectionEdge struct {
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId"`
	Accepted    bool      `json:"accepted"`
	CreatedAt   time.Time `json:"createdAt"`
}
