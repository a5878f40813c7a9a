package model

import (
	"encoding/json"
	"time"
)

// User represents an auth identity as stored in the `users` table.  The
// profile and loyalty account hang off its ID.
//
// Fields:
//  ID            – UUID primary key, shared with profiles.id.
//  Email         – unique, lower-cased email address.
//  PasswordHash  – bcrypt hashed password.
//  EmailVerified – set once the signup OTP has been confirmed.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type User struct {
	ID            string    // users.id
	Email         string    // users.email
	PasswordHash  string    // users.password_hash
	EmailVerified bool      // users.email_verified
	CreatedAt     time.Time // users.created_at
	UpdatedAt     time.Time // users.updated_at
}

// Role names stored in `user_roles.role`.  A user may hold several.
const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// ValidRole reports whether r is a known role name.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// OTP purposes accepted by the verify endpoint.
const (
	OTPSignup = "signup"
	OTPEmail  = "email"
)

// One-time code purposes.  A code only verifies for the purpose it was
// issued for.
const (
	CodeConfirm  = "confirm"  // signup or email confirmation
	CodeRecovery = "recovery" // password reset
)

// Verification is a pending one-time code from `auth_verifications`.
type Verification struct {
	ID             string    // auth_verifications.id
	Identifier     string    // email the code was sent to
	IdentifierType string    // "email"
	Purpose        string    // CodeConfirm or CodeRecovery
	CodeHash       string    // SHA-256 of the code
	Attempts       int       // failed attempts so far
	MaxAttempts    int       // attempts allowed before the code is burned
	IsVerified     bool      // set when the code was accepted
	ExpiresAt      time.Time // code expiry
	CreatedAt      time.Time
}

// AuditLog is an append-only row of `audit_logs`.
type AuditLog struct {
	ID         string          `json:"id"`
	UserID     *string         `json:"user_id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   *string         `json:"entity_id"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
