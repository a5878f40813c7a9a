package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// CatalogStore is implemented by *repository.CatalogRepo.
type CatalogStore interface {
	ActiveDeals(ctx context.Context) ([]model.Deal, error)
	ActiveRewards(ctx context.Context) ([]model.Reward, error)
	ActiveStores(ctx context.Context) ([]model.Store, error)
}

// CatalogHandler serves the public listings.  Responses are identical for
// every caller, which is what lets the router put them behind the cache.
type CatalogHandler struct{ Catalog CatalogStore }

func NewCatalogHandler(s CatalogStore) *CatalogHandler { return &CatalogHandler{Catalog: s} }

// Deals handles GET /rest/v1/deals with an optional ?category= filter.
func (h *CatalogHandler) Deals(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	deals, err := h.Catalog.ActiveDeals(ctx)
	if err != nil {
		return storeErr(c, err, "list deals failed")
	}
	if cat := strings.TrimSpace(c.QueryParam("category")); cat != "" && cat != "all" {
		kept := deals[:0]
		for _, d := range deals {
			if strings.EqualFold(d.Category, cat) {
				kept = append(kept, d)
			}
		}
		deals = kept
	}
	return c.JSON(http.StatusOK, deals)
}

// Rewards handles GET /rest/v1/rewards.
func (h *CatalogHandler) Rewards(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	rewards, err := h.Catalog.ActiveRewards(ctx)
	if err != nil {
		return storeErr(c, err, "list rewards failed")
	}
	return c.JSON(http.StatusOK, rewards)
}

// Stores handles GET /rest/v1/stores.
func (h *CatalogHandler) Stores(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	stores, err := h.Catalog.ActiveStores(ctx)
	if err != nil {
		return storeErr(c, err, "list stores failed")
	}
	return c.JSON(http.StatusOK, stores)
}
