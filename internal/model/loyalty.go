package model

import (
	"time"

	"github.com/iliyamo/loyalty-rewards/internal/tier"
)

// LoyaltyAccount mirrors the `loyalty_accounts` table.  A profile may exist
// without one.  CurrentPoints is the redeemable balance; LifetimePoints never
// decreases and drives CurrentTier.
type LoyaltyAccount struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"user_id"`
	MemberID            string     `json:"member_id"`
	BarcodeValue        string     `json:"barcode_value"`
	CurrentPoints       int64      `json:"current_points"`
	LifetimePoints      int64      `json:"lifetime_points"`
	CurrentTier         tier.Tier  `json:"current_tier"`
	TierMultiplier      float64    `json:"tier_multiplier"`
	MaxDiscountUnlocked int        `json:"max_discount_unlocked"`
	IsActive            bool       `json:"is_active"`
	ActivatedAt         *time.Time `json:"activated_at"`
	ReferredByStaffCode *string    `json:"referred_by_staff_code"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
