// Package queue defines the events exchanged over the message broker and the
// background consumer that records them.
package queue

// Queue names.  The routing key of every message equals its queue name.
const (
	OTPRequestedQueue   = "otp.requested"
	AccountDeletedQueue = "account.deleted"
)

// OTPRequestedEvent is published whenever a one-time code is issued.  It is
// the hand-off to whatever delivers the code (mail, SMS); the gateway itself
// never sends mail.
type OTPRequestedEvent struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	Purpose     string `json:"purpose"` // "signup", "email" or "recovery"
	ExpiresAt   string `json:"expires_at"`
	RequestedAt string `json:"requested_at"`
}

// AccountDeletedEvent is published after an account deletion commits.
type AccountDeletedEvent struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	MemberID  string `json:"member_id,omitempty"`
	Method    string `json:"method"`
	DeletedAt string `json:"deleted_at"`
}
