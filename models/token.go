package models

import "time"

// UserToken is the persisted token record, one row per local user name.
// expires_in is the relative lifetime in seconds as returned by the
// authorization server, not an absolute expiry timestamp. The row is
// overwritten as a whole on every login and refresh.
type UserToken struct {
	UserName     string    `json:"user_name" db:"user_name"`
	AccessToken  string    `json:"access_token" db:"access_token"`
	RefreshToken string    `json:"refresh_token" db:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in" db:"expires_in"`
	TokenType    string    `json:"token_type" db:"token_type"` // e.g. "Bearer"
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TokenResponse is the standard OAuth2 token payload returned by the
// token admin API after a lookup or refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}
