package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// HistoryRepo reads a member's points ledger, purchases and redemptions.
// All three are keyed by loyalty account and returned newest first; a user
// without a loyalty account simply has empty history.
type HistoryRepo struct{ DB *sql.DB }

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{DB: db} }

const accountOf = "(SELECT id FROM loyalty_accounts WHERE user_id=?)"

// PointsHistory lists ledger entries, newest first.
func (r *HistoryRepo) PointsHistory(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, loyalty_account_id, points, transaction_type, description, reference_id,
		 store_id, staff_code, expires_at, created_at
		 FROM points_ledger WHERE loyalty_account_id = `+accountOf+`
		 ORDER BY created_at DESC LIMIT ?`, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LedgerEntry{}
	for rows.Next() {
		var (
			e                     model.LedgerEntry
			ref, store, staffCode sql.NullString
			expires               sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.LoyaltyAccountID, &e.Points, &e.TransactionType, &e.Description,
			&ref, &store, &staffCode, &expires, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ReferenceID = strPtr(ref)
		e.StoreID = strPtr(store)
		e.StaffCode = strPtr(staffCode)
		e.ExpiresAt = timePtr(expires)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Purchases lists till receipts, newest first.
func (r *HistoryRepo) Purchases(ctx context.Context, userID string, limit int) ([]model.Purchase, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, loyalty_account_id, receipt_reference, total_amount, discount_applied, points_earned,
		 items_summary, store_id, staff_code, purchase_date, created_at
		 FROM purchases WHERE loyalty_account_id = `+accountOf+`
		 ORDER BY created_at DESC LIMIT ?`, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Purchase{}
	for rows.Next() {
		var (
			p                model.Purchase
			items            []byte
			store, staffCode sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.LoyaltyAccountID, &p.ReceiptReference, &p.TotalAmount,
			&p.DiscountApplied, &p.PointsEarned, &items, &store, &staffCode, &p.PurchaseDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		if len(items) > 0 {
			p.ItemsSummary = json.RawMessage(items)
		}
		p.StoreID = strPtr(store)
		p.StaffCode = strPtr(staffCode)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Redemptions lists redeemed rewards and deals, newest first.  Active codes
// past their expiry are reported as expired.
func (r *HistoryRepo) Redemptions(ctx context.Context, userID string, limit int) ([]model.Redemption, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, loyalty_account_id, reward_id, deal_id, redemption_code, points_spent,
		 CASE WHEN status='active' AND expires_at < UTC_TIMESTAMP() THEN 'expired' ELSE status END,
		 expires_at, used_at, used_at_store_id, created_at
		 FROM redemptions WHERE loyalty_account_id = `+accountOf+`
		 ORDER BY created_at DESC LIMIT ?`, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Redemption{}
	for rows.Next() {
		var (
			red                     model.Redemption
			reward, deal, usedStore sql.NullString
			usedAt                  sql.NullTime
		)
		if err := rows.Scan(&red.ID, &red.LoyaltyAccountID, &reward, &deal, &red.RedemptionCode,
			&red.PointsSpent, &red.Status, &red.ExpiresAt, &usedAt, &usedStore, &red.CreatedAt); err != nil {
			return nil, err
		}
		red.RewardID = strPtr(reward)
		red.DealID = strPtr(deal)
		red.UsedAt = timePtr(usedAt)
		red.UsedAtStoreID = strPtr(usedStore)
		out = append(out, red)
	}
	return out, rows.Err()
}

func clampLimit(n int) int {
	if n <= 0 || n > 200 {
		return 50
	}
	return n
}
