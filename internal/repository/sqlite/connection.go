package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/devconnect/internal/model"
	"github.com/sakif/devconnect/internal/repository"
)

// compile-time check that *ConnectionDB implements repository.ConnectionRepository
var _ repository.ConnectionRepository = (*ConnectionDB)(nil)

// CreateEdge inserts a pending (sender→recipient) edge. Returns false when
// an edge for the ordered pair already exists — the insert is then a no-op,
// never an overwrite (a pending edge must not reset an accepted one).
func (db *ConnectionDB) CreateEdge(ctx context.Context, senderID, recipientID string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO connections (sender_id, recipient_id, accepted, created_at)
		 VALUES (?, ?, 0, ?)
		 ON CONFLICT (sender_id, recipient_id) DO NOTHING`,
		senderID, recipientID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: creating edge %s→%s: %w", senderID, recipientID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: creating edge %s→%s: %w", senderID, recipientID, err)
	}
	return n > 0, nil
}

// AcceptEdge flips the (sender→recipient) edge to accepted. Missing edges
// are a no-op, matching the "accept a request that was already declined"
// race.
func (db *ConnectionDB) AcceptEdge(ctx context.Context, senderID, recipientID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE connections SET accepted = 1
		 WHERE sender_id = ? AND recipient_id = ?`,
		senderID, recipientID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: accepting edge %s→%s: %w", senderID, recipientID, err)
	}
	return nil
}

// DeleteEdge removes the (sender→recipient) edge if present. Idempotent.
func (db *ConnectionDB) DeleteEdge(ctx context.Context, senderID, recipientID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM connections WHERE sender_id = ? AND recipient_id = ?`,
		senderID, recipientID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting edge %s→%s: %w", senderID, recipientID, err)
	}
	return nil
}

// DeleteBoth removes both directed edges between a and b in a single
// transaction, so a crash can never leave one direction removed and the
// other intact.
func (db *ConnectionDB) DeleteBoth(ctx context.Context, a, b string) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM connections
			 WHERE (sender_id = ? AND recipient_id = ?)
			    OR (sender_id = ? AND recipient_id = ?)`,
			a, b, b, a,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting edges between %s and %s: %w", a, b, err)
		}
		return nil
	})
}

// EdgeExists reports whether any edge (pending or accepted) exists for the
// ordered (sender, recipient) pair.
func (db *ConnectionDB) EdgeExists(ctx context.Context, senderID, recipientID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM connections
		 WHERE sender_id = ? AND recipient_id = ?)`,
		senderID, recipientID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking edge %s→%s: %w", senderID, recipientID, err)
	}
	return exists, nil
}

// IsConnected reports whether an accepted edge exists in either direction.
func (db *ConnectionDB) IsConnected(ctx context.Context, a, b string) (bool, error) {
	var connected bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM connections
		 WHERE accepted = 1
		   AND ((sender_id = ? AND recipient_id = ?)
		     OR (sender_id = ? AND recipient_id = ?)))`,
		a, b, b, a,
	).Scan(&connected)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking connection %s↔%s: %w", a, b, err)
	}
	return connected, nil
}

// PendingRequesters returns the users who sent userID a request that is
// still pending, oldest request first.
func (db *ConnectionDB) PendingRequesters(ctx context.Context, userID string) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+prefixedUserColumns+` FROM users u
		 JOIN connections c ON c.sender_id = u.id
		 WHERE c.recipient_id = ? AND c.accepted = 0
		 ORDER BY c.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying pending requests for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

// SearchConnected returns the users connected to userID through an accepted
// edge in either direction, filtered by a case-insensitive substring match
// on username. An empty query matches every connection. Each party appears
// once — there is exactly one row per direction, never two for the same
// ordered pair.
func (db *ConnectionDB) SearchConnected(ctx context.Context, userID, query string) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE id IN (
			SELECT recipient_id FROM connections
			WHERE sender_id = ? AND accepted = 1
			UNION
			SELECT sender_id FROM connections
			WHERE recipient_id = ? AND accepted = 1
		 )
		 AND username LIKE '%' || ? || '%'
		 ORDER BY username ASC`,
		userID, userID, query,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching connections for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectUsers(rows)
}
