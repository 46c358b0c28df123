package models

import "time"

// User represents a local user record provisioned from the external
// identity provider's profile response. The user name is the unique key;
// fullname and email are refreshed on every successful login when the
// corresponding profile fields are configured.
type User struct {
	Name      string    `json:"name" db:"name"`
	Fullname  string    `json:"fullname,omitempty" db:"fullname"`
	Email     string    `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
