package repository

import (
	"context"
	"database/sql"
)

// RoleRepo answers role membership questions from `user_roles`.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// Has reports whether the user holds role.
func (r *RoleRepo) Has(ctx context.Context, userID, role string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_roles WHERE user_id=? AND role=?", userID, role).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasAny reports whether the user holds at least one of roles.
func (r *RoleRepo) HasAny(ctx context.Context, userID string, roles ...string) (bool, error) {
	for _, role := range roles {
		ok, err := r.Has(ctx, userID, role)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// Grant adds role to the user.  Granting an existing role is a no-op.
func (r *RoleRepo) Grant(ctx context.Context, userID, role string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO user_roles (user_id, role) VALUES (?,?)", userID, role)
	return err
}
