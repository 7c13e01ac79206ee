// Package tokenstore persists OAuth credentials in a local SQLite database.
package tokenstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	_ "modernc.org/sqlite"

	"sweep_server/core/port/out"
)

const schema = `
CREATE TABLE IF NOT EXISTS oauth_tokens (
	account_id TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore stores one OAuth token per account ID.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token db: %w", err)
	}
	// Token access is infrequent; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create token schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the stored token for accountID, or out.ErrTokenNotFound.
func (s *SQLiteStore) Get(ctx context.Context, accountID string) (*oauth2.Token, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM oauth_tokens WHERE account_id = ?`, accountID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, out.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("failed to decode stored token: %w", err)
	}
	return &token, nil
}

// Put stores or replaces the token for accountID.
func (s *SQLiteStore) Put(ctx context.Context, accountID string, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO oauth_tokens (account_id, token, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			token = excluded.token,
			updated_at = excluded.updated_at`,
		accountID, string(raw), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Delete removes the token for accountID. Deleting an absent account returns
// out.ErrTokenNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, accountID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM oauth_tokens WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return out.ErrTokenNotFound
	}
	return nil
}

// ListAccounts returns every account ID holding a stored token, sorted.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_id FROM oauth_tokens ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ out.TokenStore = (*SQLiteStore)(nil)
