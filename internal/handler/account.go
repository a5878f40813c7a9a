package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/account"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
)

// AccountDeleter is implemented by *account.Deleter.
type AccountDeleter interface {
	Delete(ctx context.Context, userID string, req account.Request) error
}

// AccountHandler serves /functions/v1/delete-account.
type AccountHandler struct{ Deleter AccountDeleter }

func NewAccountHandler(d AccountDeleter) *AccountHandler { return &AccountHandler{Deleter: d} }

// DeleteAccount removes the caller's account and everything attached to it.
// The cascade runs detached from the request context.
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*dbTimeout)
	defer cancel()
	err := h.Deleter.Delete(ctx, middleware.UserID(c), account.Request{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	switch {
	case errors.Is(err, account.ErrNotFound):
		return errJSON(c, http.StatusNotFound, "account not found")
	case err != nil:
		return errJSON(c, http.StatusInternalServerError, account.ErrDeletionFailed.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
