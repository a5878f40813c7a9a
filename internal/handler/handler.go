// Package handler implements the HTTP endpoints of the gateway.  Handlers
// depend on small store interfaces that the repository types satisfy.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/middleware"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/validate"
)

const dbTimeout = 5 * time.Second

// dbCtx bounds the database work of one request.
func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func errJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

func invalid(c echo.Context, errs validate.Errors) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": errs})
}

// storeErr maps repository sentinels to HTTP responses.  Anything unknown
// is a 500 with the generic message.
func storeErr(c echo.Context, err error, generic string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errJSON(c, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrForbidden):
		return errJSON(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, repository.ErrConflict):
		return errJSON(c, http.StatusConflict, "conflict")
	case errors.Is(err, repository.ErrEmailExists):
		return errJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrInsufficientPoints):
		return errJSON(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, repository.ErrTierTooLow):
		return errJSON(c, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrOutOfStock), errors.Is(err, repository.ErrAccountInactive):
		return errJSON(c, http.StatusConflict, err.Error())
	}
	c.Logger().Errorf("%s: %v", generic, err)
	return errJSON(c, http.StatusInternalServerError, generic)
}

// self returns the caller's ID when it equals the :id path parameter.
func self(c echo.Context) (string, bool) {
	uid := middleware.UserID(c)
	return uid, uid != "" && uid == c.Param("id")
}

func limitParam(c echo.Context) int {
	n, _ := strconv.Atoi(c.QueryParam("limit"))
	return n
}

func seconds(d time.Duration) string {
	return strconv.Itoa(int(d.Seconds()))
}
