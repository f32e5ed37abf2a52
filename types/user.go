package types

import "time"

// Role values recognized by the authorization layer.
const (
	// RoleUser is the default role assigned at registration. Users may
	// submit gift cards and list their own submissions.
	RoleUser = "user"

	// RoleAdmin marks a reviewer. Admins may list every submission,
	// approve or reject them, and read aggregate stats.
	RoleAdmin = "admin"
)

// User represents an account in the marketplace.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the opaque unique identifier of the user (UUID).
	ID string `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, unique across all accounts.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level within the system,
	// either RoleUser or RoleAdmin. Immutable after creation.
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsAdmin reports whether the user holds the reviewer role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
