package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/uvcsweb/internal/adapter/driven/sealbox"
	"github.com/ericfisherdev/uvcsweb/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionKeyStore = (*SessionKeyRepo)(nil)

// SessionKeyRepo is the SQLite implementation of the SessionKeyStore port.
// Values pass through box before write and after read.
type SessionKeyRepo struct {
	db  *DB
	box *sealbox.Box
}

// NewSessionKeyRepo creates a SessionKeyRepo. A nil box stores values as-is.
func NewSessionKeyRepo(db *DB, box *sealbox.Box) *SessionKeyRepo {
	return &SessionKeyRepo{db: db, box: box}
}

// Set stores or replaces one value of a session.
func (r *SessionKeyRepo) Set(ctx context.Context, sessionID, key, value string) error {
	sealed, err := r.box.Seal(value)
	if err != nil {
		return fmt.Errorf("seal session key %q: %w", key, err)
	}

	const query = `INSERT OR REPLACE INTO session_keys (session_id, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, sessionID, key, sealed); err != nil {
		return fmt.Errorf("set session key %q: %w", key, err)
	}
	return nil
}

// Get returns one value of a session, or "" when it is absent.
func (r *SessionKeyRepo) Get(ctx context.Context, sessionID, key string) (string, error) {
	const query = `SELECT value FROM session_keys WHERE session_id = ? AND key = ?`

	var stored string
	err := r.db.Reader.QueryRowContext(ctx, query, sessionID, key).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session key %q: %w", key, err)
	}

	value, err := r.box.Open(stored)
	if err != nil {
		return "", fmt.Errorf("open session key %q: %w", key, err)
	}
	return value, nil
}

// GetAll returns every value of a session keyed by name.
func (r *SessionKeyRepo) GetAll(ctx context.Context, sessionID string) (map[string]string, error) {
	const query = `SELECT key, value FROM session_keys WHERE session_id = ? ORDER BY key`
	rows, err := r.db.Reader.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session keys: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, stored string
		if err := rows.Scan(&key, &stored); err != nil {
			return nil, fmt.Errorf("scan session key: %w", err)
		}
		value, err := r.box.Open(stored)
		if err != nil {
			return nil, fmt.Errorf("open session key %q: %w", key, err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session keys: %w", err)
	}
	return values, nil
}

// Delete removes one value of a session. Deleting a missing value is not an error.
func (r *SessionKeyRepo) Delete(ctx context.Context, sessionID, key string) error {
	const query = `DELETE FROM session_keys WHERE session_id = ? AND key = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, sessionID, key); err != nil {
		return fmt.Errorf("delete session key %q: %w", key, err)
	}
	return nil
}
