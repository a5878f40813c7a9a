package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/middleware"
	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// HistoryStore is implemented by *repository.HistoryRepo.
type HistoryStore interface {
	PointsHistory(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error)
	Purchases(ctx context.Context, userID string, limit int) ([]model.Purchase, error)
	Redemptions(ctx context.Context, userID string, limit int) ([]model.Redemption, error)
}

// HistoryHandler serves /rest/v1/me/{points-history,purchases,redemptions}.
type HistoryHandler struct{ History HistoryStore }

func NewHistoryHandler(s HistoryStore) *HistoryHandler { return &HistoryHandler{History: s} }

func (h *HistoryHandler) PointsHistory(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	rows, err := h.History.PointsHistory(ctx, middleware.UserID(c), limitParam(c))
	if err != nil {
		return storeErr(c, err, "load points history failed")
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *HistoryHandler) Purchases(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	rows, err := h.History.Purchases(ctx, middleware.UserID(c), limitParam(c))
	if err != nil {
		return storeErr(c, err, "load purchases failed")
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *HistoryHandler) Redemptions(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	rows, err := h.History.Redemptions(ctx, middleware.UserID(c), limitParam(c))
	if err != nil {
		return storeErr(c, err, "load redemptions failed")
	}
	return c.JSON(http.StatusOK, rows)
}
