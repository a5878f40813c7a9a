// Package gateway describes the remote data gateway as seen by the client:
// an auth subsystem with a session event stream, row reads keyed by user,
// and named server-side functions.  The wire types are shared with the
// server handlers.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// ErrNotFound means the gateway answered and the row does not exist.  It is
// distinct from transport and server failures.
var ErrNotFound = errors.New("gateway: not found")

// User is the auth identity carried by a session.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Session is an authenticated session as issued by the token endpoint.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || now.Unix() >= s.ExpiresAt
}

// EventKind names an auth state change.
type EventKind string

const (
	SignedIn       EventKind = "SIGNED_IN"
	SignedOut      EventKind = "SIGNED_OUT"
	TokenRefreshed EventKind = "TOKEN_REFRESHED"
	UserUpdated    EventKind = "USER_UPDATED"
)

// Event is delivered to auth listeners.  Session is nil for SignedOut.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Subscription cancels an auth listener.
type Subscription interface {
	Unsubscribe()
}

// SignUpRequest carries the signup form.  IDNumber is hashed by the
// gateway and never stored raw.
type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone,omitempty"`
	IDNumber  string `json:"id_number,omitempty"`
	StaffCode string `json:"staff_code,omitempty"`
}

// OTP purposes.
const (
	OTPSignup   = "signup"
	OTPEmail    = "email"
	OTPRecovery = "recovery"
)

// Auth is the auth subsystem.  Listeners receive events in emission order.
type Auth interface {
	GetSession(ctx context.Context) (*Session, error)
	OnAuthStateChange(fn func(Event)) Subscription
	SignInWithPassword(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, req SignUpRequest) error
	VerifyOTP(ctx context.Context, email, code, purpose string) error
	ResendOTP(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
}

// Data reads the rows the user-data snapshot is built from.  Missing rows
// are reported as ErrNotFound.
type Data interface {
	ProfileByID(ctx context.Context, userID string) (*model.Profile, error)
	LoyaltyAccountByUserID(ctx context.Context, userID string) (*model.LoyaltyAccount, error)
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// Functions invokes named server-side functions with the caller's token.
type Functions interface {
	Invoke(ctx context.Context, name, accessToken string) error
}
