package store

import (
	"context"
	"database/sql"
	"time"

	"oauth2-login/models"

	"github.com/jmoiron/sqlx"
)

// UserStore persists local user records keyed by user name.
type UserStore struct {
	db *sqlx.DB
}

// NewUserStore creates a user store on the shared connection.
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// ByName looks up a user record. Returns nil when no user with that name
// exists.
func (s *UserStore) ByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx,
		"SELECT name, fullname, email, created_at, updated_at FROM users WHERE name = ?",
		name,
	).Scan(&user.Name, &user.Fullname, &user.Email, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Save upserts the user record, creating it on first login.
func (s *UserStore) Save(ctx context.Context, user *models.User) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, fullname, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			fullname = excluded.fullname,
			email = excluded.email,
			updated_at = excluded.updated_at`,
		user.Name, user.Fullname, user.Email, now, now)
	return err
}
