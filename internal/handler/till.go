package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/loyalty-rewards/internal/model"
)

// TillHandler records purchases on behalf of members.  Routes using it are
// restricted to staff and admins.
type TillHandler struct{ Loyalty LoyaltyStore }

func NewTillHandler(s LoyaltyStore) *TillHandler { return &TillHandler{Loyalty: s} }

type purchaseReq struct {
	Card             string          `json:"card"` // barcode payload or member ID
	UserID           string          `json:"user_id"`
	ReceiptReference string          `json:"receipt_reference"`
	TotalAmount      int64           `json:"total_amount"`
	DiscountApplied  int64           `json:"discount_applied"`
	ItemsSummary     json.RawMessage `json:"items_summary"`
	StoreID          *string         `json:"store_id"`
	StaffCode        *string         `json:"staff_code"`
}

// RecordPurchase handles POST /rest/v1/purchases.
func (h *TillHandler) RecordPurchase(c echo.Context) error {
	var req purchaseReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.ReceiptReference = strings.TrimSpace(req.ReceiptReference)
	switch {
	case req.ReceiptReference == "":
		return errJSON(c, http.StatusBadRequest, "receipt_reference required")
	case req.TotalAmount <= 0:
		return errJSON(c, http.StatusBadRequest, "total_amount must be positive")
	case req.DiscountApplied < 0 || req.DiscountApplied > req.TotalAmount:
		return errJSON(c, http.StatusBadRequest, "discount_applied out of range")
	case req.UserID == "" && strings.TrimSpace(req.Card) == "":
		return errJSON(c, http.StatusBadRequest, "card or user_id required")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	uid := req.UserID
	if uid == "" {
		var err error
		if uid, err = h.Loyalty.UserIDForCard(ctx, strings.TrimSpace(req.Card)); err != nil {
			return storeErr(c, err, "card lookup failed")
		}
	}
	p, err := h.Loyalty.RecordPurchase(ctx, model.NewPurchase{
		UserID:           uid,
		ReceiptReference: req.ReceiptReference,
		TotalAmount:      req.TotalAmount,
		DiscountApplied:  req.DiscountApplied,
		ItemsSummary:     req.ItemsSummary,
		StoreID:          req.StoreID,
		StaffCode:        req.StaffCode,
	})
	if err != nil {
		return storeErr(c, err, "record purchase failed")
	}
	return c.JSON(http.StatusCreated, p)
}
