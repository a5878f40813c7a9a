package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// ProfileRepo reads and edits rows of `profiles`.
type ProfileRepo struct{ DB *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{DB: db} }

const profileColumns = `id, user_id, full_name, email, phone, phone_verified, birthday,
	avatar_url, id_number_hash, preferred_store_id, created_at, updated_at`

// GetByUserID returns the profile of an identity or ErrNotFound.
func (r *ProfileRepo) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	var (
		p                                       model.Profile
		phone, avatar, idHash, preferredStoreID sql.NullString
		birthday                                sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id=? LIMIT 1", userID).
		Scan(&p.ID, &p.UserID, &p.FullName, &p.Email, &phone, &p.PhoneVerified, &birthday,
			&avatar, &idHash, &preferredStoreID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Phone = strPtr(phone)
	p.Birthday = datePtr(birthday)
	p.AvatarURL = strPtr(avatar)
	p.IDNumberHash = strPtr(idHash)
	p.PreferredStoreID = strPtr(preferredStoreID)
	return &p, nil
}

// Update applies the non-nil fields of u.  Changing the phone number resets
// its verified flag.
func (r *ProfileRepo) Update(ctx context.Context, userID string, u model.ProfileUpdate) error {
	var (
		sets []string
		args []interface{}
	)
	if u.FullName != nil {
		sets = append(sets, "full_name=?")
		args = append(args, strings.TrimSpace(*u.FullName))
	}
	if u.Phone != nil {
		sets = append(sets, "phone=?", "phone_verified=FALSE")
		args = append(args, nullable(u.Phone))
	}
	if u.Birthday != nil {
		sets = append(sets, "birthday=?")
		args = append(args, nullable(u.Birthday))
	}
	if u.AvatarURL != nil {
		sets = append(sets, "avatar_url=?")
		args = append(args, nullable(u.AvatarURL))
	}
	if u.PreferredStoreID != nil {
		sets = append(sets, "preferred_store_id=?")
		args = append(args, nullable(u.PreferredStoreID))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, userID)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE profiles SET "+strings.Join(sets, ", ")+", updated_at=CURRENT_TIMESTAMP WHERE user_id=?",
		args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
