package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// VerificationRepo stores hashed one-time codes in `auth_verifications`.
type VerificationRepo struct{ DB *sql.DB }

func NewVerificationRepo(db *sql.DB) *VerificationRepo { return &VerificationRepo{DB: db} }

// Issue stores a new code for email and purpose.  It refuses when the
// previous code for the same purpose was issued less than resendAfter ago.
func (r *VerificationRepo) Issue(ctx context.Context, email, purpose, code string, ttl time.Duration, maxAttempts int, resendAfter time.Duration) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if last, err := r.latest(ctx, email, purpose); err == nil {
		if time.Since(last.CreatedAt) < resendAfter {
			return ErrResendTooSoon
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO auth_verifications (id, identifier, identifier_type, purpose, otp_code, max_attempts, expires_at, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		uuid.NewString(), email, "email", purpose, utils.HashToken(code), maxAttempts,
		time.Now().UTC().Add(ttl), time.Now().UTC())
	return err
}

// Check verifies code against the latest code issued to email for purpose.
// A wrong guess counts against the code's attempts.
func (r *VerificationRepo) Check(ctx context.Context, email, purpose, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	v, err := r.latest(ctx, email, purpose)
	if err != nil {
		return err
	}
	switch {
	case v.IsVerified:
		return ErrNotFound
	case time.Now().UTC().After(v.ExpiresAt):
		return ErrCodeExpired
	case v.Attempts >= v.MaxAttempts:
		return ErrTooManyAttempts
	}
	if utils.HashToken(strings.TrimSpace(code)) != v.CodeHash {
		_, err := r.DB.ExecContext(ctx,
			"UPDATE auth_verifications SET attempts=attempts+1 WHERE id=?", v.ID)
		if err != nil {
			return err
		}
		return ErrCodeMismatch
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE auth_verifications SET is_verified=TRUE WHERE id=?", v.ID)
	return err
}

func (r *VerificationRepo) latest(ctx context.Context, email, purpose string) (model.Verification, error) {
	var v model.Verification
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, identifier, identifier_type, purpose, otp_code, attempts, max_attempts, is_verified, expires_at, created_at
		 FROM auth_verifications WHERE identifier=? AND purpose=? ORDER BY created_at DESC LIMIT 1`, email, purpose).
		Scan(&v.ID, &v.Identifier, &v.IdentifierType, &v.Purpose, &v.CodeHash, &v.Attempts, &v.MaxAttempts,
			&v.IsVerified, &v.ExpiresAt, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return v, ErrNotFound
	}
	return v, err
}
