package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"oauth2-login/models"

	"github.com/jmoiron/sqlx"
)

// TokenStore persists one token record per local user name in the
// user_tokens table. Upserts for the same user name are serialized with a
// keyed mutex: the four token fields are written as a group and a reader
// must never observe a mix of old and new values.
type TokenStore struct {
	db *sqlx.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTokenStore creates a token store on the shared connection.
func NewTokenStore(db *sqlx.DB) *TokenStore {
	return &TokenStore{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *TokenStore) userLock(userName string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userName]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userName] = lock
	}
	return lock
}

// GetToken looks up the token record by user name. Returns nil when the
// user has no stored token.
func (s *TokenStore) GetToken(ctx context.Context, userName string) (*models.UserToken, error) {
	var token models.UserToken
	err := s.db.QueryRowContext(ctx,
		"SELECT user_name, access_token, refresh_token, expires_in, token_type, created_at, updated_at FROM user_tokens WHERE user_name = ?",
		userName,
	).Scan(&token.UserName, &token.AccessToken, &token.RefreshToken, &token.ExpiresIn, &token.TokenType, &token.CreatedAt, &token.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// UpdateToken upserts the record for a user name, overwriting all four
// token fields. Concurrent updates for the same user are serialized.
func (s *TokenStore) UpdateToken(ctx context.Context, userName string, token *models.UserToken) error {
	lock := s.userLock(userName)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_tokens (user_name, access_token, refresh_token, expires_in, token_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_name) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_in = excluded.expires_in,
			token_type = excluded.token_type,
			updated_at = excluded.updated_at`,
		userName, token.AccessToken, token.RefreshToken, token.ExpiresIn, token.TokenType, now, now)
	return err
}
