package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/middleware"
	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// NotificationStore is implemented by *repository.NotificationRepo.
type NotificationStore interface {
	List(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
	Preferences(ctx context.Context, userID string) (model.NotificationPreferences, error)
	SavePreferences(ctx context.Context, p model.NotificationPreferences) error
}

// InboxHandler serves notifications and notification preferences.
type InboxHandler struct{ Notifications NotificationStore }

func NewInboxHandler(s NotificationStore) *InboxHandler { return &InboxHandler{Notifications: s} }

type markReadReq struct {
	IDs []string `json:"ids"`
}

func (h *InboxHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	rows, err := h.Notifications.List(ctx, middleware.UserID(c), limitParam(c))
	if err != nil {
		return storeErr(c, err, "list notifications failed")
	}
	return c.JSON(http.StatusOK, rows)
}

// MarkRead marks the listed notifications read, or all of them when the
// body has no ids.
func (h *InboxHandler) MarkRead(c echo.Context) error {
	var req markReadReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	n, err := h.Notifications.MarkRead(ctx, middleware.UserID(c), req.IDs)
	if err != nil {
		return storeErr(c, err, "mark read failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

func (h *InboxHandler) GetPreferences(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Notifications.Preferences(ctx, middleware.UserID(c))
	if err != nil {
		return storeErr(c, err, "load preferences failed")
	}
	return c.JSON(http.StatusOK, p)
}

// PutPreferences replaces the caller's preferences.  The user_id in the
// body is ignored.
func (h *InboxHandler) PutPreferences(c echo.Context) error {
	var p model.NotificationPreferences
	if err := c.Bind(&p); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	p.UserID = middleware.UserID(c)
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Notifications.SavePreferences(ctx, p); err != nil {
		return storeErr(c, err, "save preferences failed")
	}
	return c.JSON(http.StatusOK, p)
}
