package model

import (
	"encoding/json"
	"time"
)

// LedgerEntry is a row of `points_ledger`.  Points is positive for accruals
// and negative for redemptions or expiries.
type LedgerEntry struct {
	ID               string     `json:"id"`
	LoyaltyAccountID string     `json:"loyalty_account_id"`
	Points           int64      `json:"points"`
	TransactionType  string     `json:"transaction_type"`
	Description      string     `json:"description"`
	ReferenceID      *string    `json:"reference_id"`
	StoreID          *string    `json:"store_id"`
	StaffCode        *string    `json:"staff_code"`
	ExpiresAt        *time.Time `json:"expires_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Ledger transaction types.
const (
	TxnPurchase   = "purchase"
	TxnRedemption = "redemption"
	TxnBonus      = "bonus"
)

// Purchase is a till receipt linked to a loyalty account (`purchases`).
// Amounts are in cents.
type Purchase struct {
	ID               string          `json:"id"`
	LoyaltyAccountID string          `json:"loyalty_account_id"`
	ReceiptReference string          `json:"receipt_reference"`
	TotalAmount      int64           `json:"total_amount"`
	DiscountApplied  int64           `json:"discount_applied"`
	PointsEarned     int64           `json:"points_earned"`
	ItemsSummary     json.RawMessage `json:"items_summary,omitempty"`
	StoreID          *string         `json:"store_id"`
	StaffCode        *string         `json:"staff_code"`
	PurchaseDate     time.Time       `json:"purchase_date"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewPurchase is the input for recording a purchase at the till.
type NewPurchase struct {
	UserID           string          `json:"user_id"`
	ReceiptReference string          `json:"receipt_reference"`
	TotalAmount      int64           `json:"total_amount"`
	DiscountApplied  int64           `json:"discount_applied"`
	ItemsSummary     json.RawMessage `json:"items_summary,omitempty"`
	StoreID          *string         `json:"store_id,omitempty"`
	StaffCode        *string         `json:"staff_code,omitempty"`
}

// Redemption statuses.
const (
	RedemptionActive  = "active"
	RedemptionUsed    = "used"
	RedemptionExpired = "expired"
)

// Redemption is a reward or deal claimed by a member (`redemptions`).
type Redemption struct {
	ID               string     `json:"id"`
	LoyaltyAccountID string     `json:"loyalty_account_id"`
	RewardID         *string    `json:"reward_id"`
	DealID           *string    `json:"deal_id"`
	RedemptionCode   string     `json:"redemption_code"`
	PointsSpent      int64      `json:"points_spent"`
	Status           string     `json:"status"`
	ExpiresAt        time.Time  `json:"expires_at"`
	UsedAt           *time.Time `json:"used_at"`
	UsedAtStoreID    *string    `json:"used_at_store_id"`
	CreatedAt        time.Time  `json:"created_at"`
}
