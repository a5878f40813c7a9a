package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/loyalty-rewards/internal/database"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/tier"
	"github.com/iliyamo/loyalty-rewards/internal/utils"
)

// LoyaltyRepo owns loyalty accounts and the balance-changing operations on
// them: purchase accrual and reward redemption.
type LoyaltyRepo struct{ DB *sql.DB }

func NewLoyaltyRepo(db *sql.DB) *LoyaltyRepo { return &LoyaltyRepo{DB: db} }

const loyaltyColumns = `id, user_id, member_id, barcode_value, current_points, lifetime_points,
	current_tier, tier_multiplier, max_discount_unlocked, is_active, activated_at,
	referred_by_staff_code, created_at, updated_at`

// GetByUserID returns the loyalty account of a user or ErrNotFound when the
// account was never created.
func (r *LoyaltyRepo) GetByUserID(ctx context.Context, userID string) (*model.LoyaltyAccount, error) {
	var (
		a           model.LoyaltyAccount
		tierName    string
		activatedAt sql.NullTime
		staffCode   sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+loyaltyColumns+" FROM loyalty_accounts WHERE user_id=? LIMIT 1", userID).
		Scan(&a.ID, &a.UserID, &a.MemberID, &a.BarcodeValue, &a.CurrentPoints, &a.LifetimePoints,
			&tierName, &a.TierMultiplier, &a.MaxDiscountUnlocked, &a.IsActive, &activatedAt,
			&staffCode, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CurrentTier = tier.Parse(tierName)
	a.ActivatedAt = timePtr(activatedAt)
	a.ReferredByStaffCode = strPtr(staffCode)
	return &a, nil
}

// lockedAccount is the subset of an account read under FOR UPDATE.
type lockedAccount struct {
	id       string
	current  int64
	lifetime int64
	tier     tier.Tier
	active   bool
}

func lockAccount(ctx context.Context, tx *sql.Tx, userID string) (lockedAccount, error) {
	var (
		a        lockedAccount
		tierName string
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, current_points, lifetime_points, current_tier, is_active
		 FROM loyalty_accounts WHERE user_id=? FOR UPDATE`, userID).
		Scan(&a.id, &a.current, &a.lifetime, &tierName, &a.active)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	a.tier = tier.Parse(tierName)
	return a, err
}

// PointsFor returns the points earned on a spend of amountCents at tier t:
// one point per whole rand, scaled by the tier multiplier.
func PointsFor(amountCents int64, t tier.Tier) int64 {
	if amountCents <= 0 {
		return 0
	}
	return int64(float64(amountCents/100) * tier.Multiplier(t))
}

// RecordPurchase stores a till receipt, credits the points and moves the
// account to the tier its new lifetime total reaches.  A tier change also
// drops a notification into the member's inbox.
func (r *LoyaltyRepo) RecordPurchase(ctx context.Context, in model.NewPurchase) (model.Purchase, error) {
	p := model.Purchase{
		ID:               uuid.NewString(),
		ReceiptReference: in.ReceiptReference,
		TotalAmount:      in.TotalAmount,
		DiscountApplied:  in.DiscountApplied,
		ItemsSummary:     in.ItemsSummary,
		StoreID:          in.StoreID,
		StaffCode:        in.StaffCode,
		PurchaseDate:     time.Now().UTC(),
	}
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		acc, err := lockAccount(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		if !acc.active {
			return ErrAccountInactive
		}
		p.LoyaltyAccountID = acc.id
		p.PointsEarned = PointsFor(in.TotalAmount-in.DiscountApplied, acc.tier)

		var items interface{}
		if len(in.ItemsSummary) > 0 {
			items = []byte(in.ItemsSummary)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO purchases (id, loyalty_account_id, receipt_reference, total_amount, discount_applied,
			 points_earned, items_summary, store_id, staff_code, purchase_date)
			 VALUES (?,?,?,?,?,?,?,?,?,?)`,
			p.ID, acc.id, p.ReceiptReference, p.TotalAmount, p.DiscountApplied, p.PointsEarned,
			items, nullable(p.StoreID), nullable(p.StaffCode), p.PurchaseDate); err != nil {
			if database.IsDuplicate(err) {
				return ErrConflict
			}
			return err
		}
		if p.PointsEarned == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO points_ledger (id, loyalty_account_id, points, transaction_type, description,
			 reference_id, store_id, staff_code) VALUES (?,?,?,?,?,?,?,?)`,
			uuid.NewString(), acc.id, p.PointsEarned, model.TxnPurchase,
			"Purchase "+p.ReceiptReference, p.ID, nullable(p.StoreID), nullable(p.StaffCode)); err != nil {
			return err
		}

		lifetime := acc.lifetime + p.PointsEarned
		newTier := tier.ForLifetime(lifetime)
		if _, err := tx.ExecContext(ctx,
			`UPDATE loyalty_accounts SET current_points=current_points+?, lifetime_points=?,
			 current_tier=?, tier_multiplier=? WHERE id=?`,
			p.PointsEarned, lifetime, string(newTier), tier.Multiplier(newTier), acc.id); err != nil {
			return err
		}
		if newTier != acc.tier {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO notifications (id, user_id, type, title, message) VALUES (?,?,?,?,?)",
				uuid.NewString(), in.UserID, "tier",
				"Welcome to "+newTier.Label(),
				fmt.Sprintf("You now earn %.1fx points on every purchase.", tier.Multiplier(newTier)))
			return err
		}
		return nil
	})
	return p, err
}

// Redeem exchanges points for a reward.  The reward must be active, in
// stock and allowed for the member's tier, and the balance must cover its
// cost.  The new redemption code is valid for validFor.
func (r *LoyaltyRepo) Redeem(ctx context.Context, userID, rewardID string, validFor time.Duration) (model.Redemption, error) {
	red := model.Redemption{
		ID:             uuid.NewString(),
		RewardID:       &rewardID,
		RedemptionCode: utils.NewRedemptionCode(),
		Status:         model.RedemptionActive,
		ExpiresAt:      time.Now().UTC().Add(validFor),
		CreatedAt:      time.Now().UTC(),
	}
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		acc, err := lockAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !acc.active {
			return ErrAccountInactive
		}
		var (
			cost    int64
			minTier sql.NullString
			stock   sql.NullInt64
			active  bool
		)
		err = tx.QueryRowContext(ctx,
			"SELECT points_cost, min_tier, stock_quantity, is_active FROM rewards WHERE id=? FOR UPDATE",
			rewardID).Scan(&cost, &minTier, &stock, &active)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		switch {
		case minTier.Valid && !acc.tier.AtLeast(tier.Parse(minTier.String)):
			return ErrTierTooLow
		case stock.Valid && stock.Int64 <= 0:
			return ErrOutOfStock
		case acc.current < cost:
			return ErrInsufficientPoints
		}
		if stock.Valid {
			if _, err := tx.ExecContext(ctx,
				"UPDATE rewards SET stock_quantity=stock_quantity-1 WHERE id=?", rewardID); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE loyalty_accounts SET current_points=current_points-? WHERE id=?", cost, acc.id); err != nil {
			return err
		}
		red.LoyaltyAccountID = acc.id
		red.PointsSpent = cost
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO redemptions (id, loyalty_account_id, reward_id, redemption_code, points_spent,
			 status, expires_at, created_at) VALUES (?,?,?,?,?,?,?,?)`,
			red.ID, acc.id, rewardID, red.RedemptionCode, cost, red.Status, red.ExpiresAt, red.CreatedAt); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO points_ledger (id, loyalty_account_id, points, transaction_type, description, reference_id)
			 VALUES (?,?,?,?,?,?)`,
			uuid.NewString(), acc.id, -cost, model.TxnRedemption, "Reward redemption", red.ID)
		return err
	})
	return red, err
}

// UserIDForCard resolves a scanned barcode payload or a typed member ID to
// the card holder's user ID.
func (r *LoyaltyRepo) UserIDForCard(ctx context.Context, card string) (string, error) {
	var uid string
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM loyalty_accounts WHERE barcode_value=? OR member_id=? LIMIT 1", card, card).Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return uid, err
}
