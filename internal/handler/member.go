package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/config"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/validate"
)

// ProfileStore is implemented by *repository.ProfileRepo.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	Update(ctx context.Context, userID string, u model.ProfileUpdate) error
}

// LoyaltyStore is implemented by *repository.LoyaltyRepo.
type LoyaltyStore interface {
	GetByUserID(ctx context.Context, userID string) (*model.LoyaltyAccount, error)
	Redeem(ctx context.Context, userID, rewardID string, validFor time.Duration) (model.Redemption, error)
	RecordPurchase(ctx context.Context, in model.NewPurchase) (model.Purchase, error)
	UserIDForCard(ctx context.Context, card string) (string, error)
}

// RoleStore is implemented by *repository.RoleRepo.
type RoleStore interface {
	Has(ctx context.Context, userID, role string) (bool, error)
}

// MemberHandler serves the per-user rows: profile, loyalty account, roles
// and reward redemption.  Users may only read and change their own rows.
type MemberHandler struct {
	Profiles ProfileStore
	Loyalty  LoyaltyStore
	Roles    RoleStore
	Cfg      config.RedemptionConfig
}

func NewMemberHandler(p ProfileStore, l LoyaltyStore, r RoleStore, cfg config.RedemptionConfig) *MemberHandler {
	return &MemberHandler{Profiles: p, Loyalty: l, Roles: r, Cfg: cfg}
}

// GetProfile handles GET /rest/v1/profiles/:id.
func (h *MemberHandler) GetProfile(c echo.Context) error {
	uid, ok := self(c)
	if !ok {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Profiles.GetByUserID(ctx, uid)
	if err != nil {
		return storeErr(c, err, "load profile failed")
	}
	return c.JSON(http.StatusOK, p)
}

// UpdateProfile handles PATCH /rest/v1/profiles/:id and returns the
// updated row.
func (h *MemberHandler) UpdateProfile(c echo.Context) error {
	uid, ok := self(c)
	if !ok {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	var u model.ProfileUpdate
	if err := c.Bind(&u); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	current, err := h.Profiles.GetByUserID(ctx, uid)
	if err != nil {
		return storeErr(c, err, "load profile failed")
	}
	check := validate.ProfileEdit{FullName: current.FullName}
	if u.FullName != nil {
		check.FullName = *u.FullName
	}
	if u.Phone != nil {
		check.Phone = *u.Phone
	}
	if errs := validate.CheckProfileEdit(check); !errs.OK() {
		return invalid(c, errs)
	}
	if err := h.Profiles.Update(ctx, uid, u); err != nil {
		return storeErr(c, err, "update profile failed")
	}
	p, err := h.Profiles.GetByUserID(ctx, uid)
	if err != nil {
		return storeErr(c, err, "load profile failed")
	}
	return c.JSON(http.StatusOK, p)
}

// GetLoyaltyAccount handles GET /rest/v1/users/:id/loyalty-account.  A user
// without an account gets 404.
func (h *MemberHandler) GetLoyaltyAccount(c echo.Context) error {
	uid, ok := self(c)
	if !ok {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	acc, err := h.Loyalty.GetByUserID(ctx, uid)
	if err != nil {
		return storeErr(c, err, "load loyalty account failed")
	}
	return c.JSON(http.StatusOK, acc)
}

// HasRole handles GET /rest/v1/users/:id/roles/:role.
func (h *MemberHandler) HasRole(c echo.Context) error {
	uid, ok := self(c)
	if !ok {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	role := c.Param("role")
	if !model.ValidRole(role) {
		return errJSON(c, http.StatusBadRequest, "unknown role")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	has, err := h.Roles.Has(ctx, uid, role)
	if err != nil {
		return storeErr(c, err, "role lookup failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"role": role, "has_role": has})
}

// Redeem handles POST /rest/v1/rewards/:id/redeem.
func (h *MemberHandler) Redeem(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	red, err := h.Loyalty.Redeem(ctx, middleware.UserID(c), c.Param("id"), h.Cfg.ValidFor)
	if err != nil {
		return storeErr(c, err, "redeem failed")
	}
	return c.JSON(http.StatusCreated, red)
}
