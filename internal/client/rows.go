package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// ProfileByID reads the profile row.  A missing row matches
// gateway.ErrNotFound.
func (c *Client) ProfileByID(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	if err := c.call(ctx, http.MethodGet, "/rest/v1/profiles/"+url.PathEscape(userID), nil, &p, true); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoyaltyAccountByUserID reads the loyalty account.  Users who were never
// activated get gateway.ErrNotFound.
func (c *Client) LoyaltyAccountByUserID(ctx context.Context, userID string) (*model.LoyaltyAccount, error) {
	var a model.LoyaltyAccount
	if err := c.call(ctx, http.MethodGet, "/rest/v1/users/"+url.PathEscape(userID)+"/loyalty-account", nil, &a, true); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var out struct {
		HasRole bool `json:"has_role"`
	}
	path := "/rest/v1/users/" + url.PathEscape(userID) + "/roles/" + url.PathEscape(role)
	if err := c.call(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return false, err
	}
	return out.HasRole, nil
}

// UpdateProfile applies u and returns the stored row.
func (c *Client) UpdateProfile(ctx context.Context, userID string, u model.ProfileUpdate) (*model.Profile, error) {
	var p model.Profile
	if err := c.call(ctx, http.MethodPatch, "/rest/v1/profiles/"+url.PathEscape(userID), u, &p, true); err != nil {
		return nil, err
	}
	return &p, nil
}

// Deals lists active deals.  An empty category or "all" returns every deal.
func (c *Client) Deals(ctx context.Context, category string) ([]model.Deal, error) {
	path := "/rest/v1/deals"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var out []model.Deal
	err := c.call(ctx, http.MethodGet, path, nil, &out, false)
	return out, err
}

func (c *Client) Rewards(ctx context.Context) ([]model.Reward, error) {
	var out []model.Reward
	err := c.call(ctx, http.MethodGet, "/rest/v1/rewards", nil, &out, false)
	return out, err
}

func (c *Client) Stores(ctx context.Context) ([]model.Store, error) {
	var out []model.Store
	err := c.call(ctx, http.MethodGet, "/rest/v1/stores", nil, &out, false)
	return out, err
}

// Redeem spends points on a reward and returns the redemption code.
func (c *Client) Redeem(ctx context.Context, rewardID string) (model.Redemption, error) {
	var out model.Redemption
	err := c.call(ctx, http.MethodPost, "/rest/v1/rewards/"+url.PathEscape(rewardID)+"/redeem", nil, &out, true)
	return out, err
}

func (c *Client) PointsHistory(ctx context.Context, limit int) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	err := c.call(ctx, http.MethodGet, withLimit("/rest/v1/me/points-history", limit), nil, &out, true)
	return out, err
}

func (c *Client) Purchases(ctx context.Context, limit int) ([]model.Purchase, error) {
	var out []model.Purchase
	err := c.call(ctx, http.MethodGet, withLimit("/rest/v1/me/purchases", limit), nil, &out, true)
	return out, err
}

func (c *Client) Redemptions(ctx context.Context, limit int) ([]model.Redemption, error) {
	var out []model.Redemption
	err := c.call(ctx, http.MethodGet, withLimit("/rest/v1/me/redemptions", limit), nil, &out, true)
	return out, err
}

func (c *Client) Notifications(ctx context.Context, limit int) ([]model.Notification, error) {
	var out []model.Notification
	err := c.call(ctx, http.MethodGet, withLimit("/rest/v1/me/notifications", limit), nil, &out, true)
	return out, err
}

// MarkRead marks the given notifications read, or all of them when ids is
// empty, and returns how many changed.
func (c *Client) MarkRead(ctx context.Context, ids []string) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	err := c.call(ctx, http.MethodPost, "/rest/v1/me/notifications/read", map[string][]string{"ids": ids}, &out, true)
	return out.Updated, err
}

func (c *Client) Preferences(ctx context.Context) (model.NotificationPreferences, error) {
	var out model.NotificationPreferences
	err := c.call(ctx, http.MethodGet, "/rest/v1/me/preferences", nil, &out, true)
	return out, err
}

func (c *Client) SavePreferences(ctx context.Context, p model.NotificationPreferences) (model.NotificationPreferences, error) {
	var out model.NotificationPreferences
	err := c.call(ctx, http.MethodPut, "/rest/v1/me/preferences", p, &out, true)
	return out, err
}

func withLimit(path string, limit int) string {
	if limit <= 0 {
		return path
	}
	return path + "?limit=" + strconv.Itoa(limit)
}
