package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/loyalty-rewards/internal/database"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// UserRepo manages auth identities in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewIdentity is everything signup writes in one go.
type NewIdentity struct {
	Email        string
	Password     string
	FullName     string
	Phone        *string
	IDNumberHash *string
	StaffCode    *string // staff referral code entered at signup
	BcryptCost   int
}

// Signup creates the identity, its profile, an inactive loyalty account and
// the customer role in a single transaction, and returns the new user ID.
// The loyalty account becomes active once the signup code is verified.
func (r *UserRepo) Signup(ctx context.Context, in NewIdentity) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hash, err := utils.HashPassword(in.Password, in.BcryptCost)
	if err != nil {
		return "", err
	}
	barcode, err := utils.NewBarcodeValue()
	if err != nil {
		return "", err
	}
	uid := uuid.NewString()

	err = withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, email, password_hash) VALUES (?,?,?)",
			uid, email, hash); err != nil {
			if database.IsDuplicate(err) {
				return ErrEmailExists
			}
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profiles (id, user_id, full_name, email, phone, id_number_hash)
			 VALUES (?,?,?,?,?,?)`,
			uid, uid, strings.TrimSpace(in.FullName), email, nullable(in.Phone), nullable(in.IDNumberHash)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO loyalty_accounts (id, user_id, member_id, barcode_value, referred_by_staff_code)
			 VALUES (?,?,?,?,?)`,
			uuid.NewString(), uid, utils.NewMemberID(), barcode, nullable(in.StaffCode)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role) VALUES (?,?)", uid, model.RoleCustomer)
		return err
	})
	if err != nil {
		return "", err
	}
	return uid, nil
}

const userColumns = "id,email,password_hash,email_verified,created_at,updated_at"

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// MarkEmailVerified flags the email as confirmed and activates the user's
// loyalty account if it is not active yet.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, userID string) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE users SET email_verified=TRUE WHERE id=?", userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", userID).Scan(&exists); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNotFound
				}
				return err
			}
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE loyalty_accounts SET is_active=TRUE, activated_at=NOW() WHERE user_id=? AND is_active=FALSE",
			userID)
		return err
	})
}

// ResetPassword replaces the password hash and revokes every refresh token
// of the user, so other devices have to sign in again.
func (r *UserRepo) ResetPassword(ctx context.Context, userID, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL", userID)
		return err
	})
}
