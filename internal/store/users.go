package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/larder/internal/apperr"
	"github.com/starford/larder/internal/models"
)

// EnsureUser mirrors an identity from the identity provider. Empty profile
// fields never overwrite stored ones.
func (db *DB) EnsureUser(ctx context.Context, u models.User) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, username, email, first_name, last_name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username   = COALESCE(NULLIF(excluded.username, ''), username),
			email      = COALESCE(NULLIF(excluded.email, ''), email),
			first_name = COALESCE(NULLIF(excluded.first_name, ''), first_name),
			last_name  = COALESCE(NULLIF(excluded.last_name, ''), last_name)
	`, u.ID, u.Username, u.Email, u.FirstName, u.LastName)
	if err != nil {
		return fmt.Errorf("store: ensure user: %w", err)
	}
	return nil
}

// GetUser returns a user by id.
func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := db.conn.GetContext(ctx, &u,
		`SELECT id, username, email, first_name, last_name FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}
