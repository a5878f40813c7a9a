package model

import (
	"time"

	"github.com/iliyamo/loyalty-rewards/internal/tier"
)

// Deal is a promotional offer from the `deals` table.
type Deal struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	Category      string     `json:"category"`
	DiscountValue string     `json:"discount_value"`
	ImageURL      *string    `json:"image_url"`
	IsActive      bool       `json:"is_active"`
	IsMemberOnly  bool       `json:"is_member_only"`
	MinPoints     *int64     `json:"min_points"`
	MinTier       *tier.Tier `json:"min_tier"`
	ValidFrom     time.Time  `json:"valid_from"`
	ValidUntil    time.Time  `json:"valid_until"`
	CreatedAt     time.Time  `json:"created_at"`
}

// EndingSoon reports whether the deal expires within the next seven days.
func (d Deal) EndingSoon(now time.Time) bool {
	left := d.ValidUntil.Sub(now)
	return left > 0 && left < 7*24*time.Hour
}

// Reward is a catalog item redeemable for points, from the `rewards` table.
type Reward struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	Category      string     `json:"category"`
	ImageURL      *string    `json:"image_url"`
	PointsCost    int64      `json:"points_cost"`
	MinTier       *tier.Tier `json:"min_tier"`
	StockQuantity *int       `json:"stock_quantity"` // nil means unlimited
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
}
