package types

import "time"

// User represents a board account.
// It contains identity, profile, and audit metadata.
type User struct {
	// ID is the numeric primary key of the user.
	ID int `json:"id" db:"id"`

	// LoginID is the unique, immutable login name chosen at signup.
	LoginID string `json:"login_id" db:"login_id"`

	// Username is the user's display name shown next to posts and comments.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ProfileImage is a URL or object reference to the user's avatar.
	ProfileImage string `json:"profile_image" db:"profile_image"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
