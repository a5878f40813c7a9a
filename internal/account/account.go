// Package account implements self-service account deletion.  Every row a
// member owns is removed in one transaction; the audit entry is written
// before the profile and the identity go, so a committed deletion always
// leaves its trace.
package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/loyalty-rewards/internal/logger"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
)

// ErrDeletionFailed is returned when the cascade could not complete.  Nothing
// was deleted; the user is asked to contact support.
var ErrDeletionFailed = errors.New("account deletion failed, please contact support")

// ErrNotFound is returned when the user does not exist.
var ErrNotFound = errors.New("account not found")

// Events receives the account.deleted notification after commit.
type Events interface {
	AccountDeleted(ctx context.Context, ev queue.AccountDeletedEvent) error
}

// Request carries request metadata stored on the audit entry.
type Request struct {
	IPAddress string
	UserAgent string
}

// Step is one idempotent statement of the cascade.  Query takes a single
// argument, chosen by Bind.
type Step struct {
	Name  string
	Query string
	Bind  Bind
}

// Bind names the value bound to a step's placeholder.
type Bind int

const (
	ByUserID Bind = iota
	ByEmail
)

const ownAccount = "loyalty_account_id IN (SELECT id FROM loyalty_accounts WHERE user_id=?)"

// Steps lists the deletes in dependency order.  The audit entry is inserted
// between "roles" and "profile".
var Steps = []Step{
	{"redemptions", "DELETE FROM redemptions WHERE " + ownAccount, ByUserID},
	{"purchases", "DELETE FROM purchases WHERE " + ownAccount, ByUserID},
	{"points_ledger", "DELETE FROM points_ledger WHERE " + ownAccount, ByUserID},
	{"loyalty_account", "DELETE FROM loyalty_accounts WHERE user_id=?", ByUserID},
	{"notifications", "DELETE FROM notifications WHERE user_id=?", ByUserID},
	{"preferences", "DELETE FROM notification_preferences WHERE user_id=?", ByUserID},
	{"roles", "DELETE FROM user_roles WHERE user_id=?", ByUserID},
}

// FinalSteps run after the audit entry.  One-time codes are keyed by email,
// not by user.
var FinalSteps = []Step{
	{"profile", "DELETE FROM profiles WHERE user_id=?", ByUserID},
	{"refresh_tokens", "DELETE FROM refresh_tokens WHERE user_id=?", ByUserID},
	{"verifications", "DELETE FROM auth_verifications WHERE identifier=?", ByEmail},
	{"identity", "DELETE FROM users WHERE id=?", ByUserID},
}

// Deleter runs the cascade.
type Deleter struct {
	DB     *sql.DB
	Events Events
	Log    logger.Logger
}

func NewDeleter(db *sql.DB, events Events, log logger.Logger) *Deleter {
	return &Deleter{DB: db, Events: events, Log: log}
}

// Delete removes the user and everything they own.  The event is published
// only after commit and its failure does not undo the deletion.
func (d *Deleter) Delete(ctx context.Context, userID string, req Request) error {
	var email, memberID string
	err := d.DB.QueryRowContext(ctx,
		`SELECT u.email, COALESCE(l.member_id, '') FROM users u
		 LEFT JOIN loyalty_accounts l ON l.user_id=u.id WHERE u.id=?`, userID).Scan(&email, &memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		d.Log.Error().Err(err).Str("user_id", userID).Msg("account deletion: lookup failed")
		return ErrDeletionFailed
	}

	if err := d.cascade(ctx, userID, email, req); err != nil {
		d.Log.Error().Err(err).Str("user_id", userID).Msg("account deletion: cascade rolled back")
		return ErrDeletionFailed
	}
	d.Log.Info().Str("user_id", userID).Msg("account deleted")

	if d.Events != nil {
		ev := queue.AccountDeletedEvent{
			UserID:    userID,
			Email:     email,
			MemberID:  memberID,
			Method:    "self_service",
			DeletedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if err := d.Events.AccountDeleted(ctx, ev); err != nil {
			d.Log.Warn().Err(err).Str("user_id", userID).Msg("account deletion: event not published")
		}
	}
	return nil
}

func (d *Deleter) cascade(ctx context.Context, userID, email string, req Request) (err error) {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	run := func(steps []Step) error {
		for _, s := range steps {
			arg := userID
			if s.Bind == ByEmail {
				arg = email
			}
			if _, err := tx.ExecContext(ctx, s.Query, arg); err != nil {
				return fmt.Errorf("%s: %w", s.Name, err)
			}
		}
		return nil
	}
	if err := run(Steps); err != nil {
		return err
	}

	details, _ := json.Marshal(map[string]string{"email": email, "method": "self_service"})
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, details, ip_address, user_agent)
		 VALUES (?,?,?,?,?,?,?,?)`,
		uuid.NewString(), userID, "account_hard_deleted", "profile", userID, details,
		nullable(req.IPAddress), nullable(req.UserAgent)); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	return run(FinalSteps)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
