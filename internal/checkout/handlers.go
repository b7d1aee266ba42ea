package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/khc-home/storefront/internal/common"
	"github.com/khc-home/storefront/internal/obs"
	"github.com/khc-home/storefront/internal/shipping"
)

// Handler wires the checkout service to HTTP.
type Handler struct {
	Svc *Service
}

// CartQuote prices the cart-phase summary: subtotal, discounts and
// free-shipping progress, without shipping or tax.
func (h *Handler) CartQuote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload struct {
		Subtotal decimal.Decimal `json:"subtotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if payload.Subtotal.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "subtotal must not be negative", nil)
		return
	}
	start := time.Now()
	settings, err := h.Svc.Commerce.Load(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load settings", nil)
		return
	}
	summary, err := h.Svc.aggregator(settings.FreeShippingThreshold).Quote(r.Context(), payload.Subtotal)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to price cart", nil)
		return
	}
	observeQuote(start)
	common.Data(w, http.StatusOK, summary)
}

// Quote prices the full checkout including shipping and tax.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload struct {
		Subtotal decimal.Decimal `json:"subtotal"`
		Country  string          `json:"country"`
		State    string          `json:"state"`
		Weight   decimal.Decimal `json:"weight"`
		MethodID string          `json:"methodId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if payload.Subtotal.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "subtotal must not be negative", nil)
		return
	}
	start := time.Now()
	quote, err := h.Svc.Quote(r.Context(), QuoteInput{
		Subtotal: payload.Subtotal,
		Country:  payload.Country,
		State:    payload.State,
		Weight:   payload.Weight,
		MethodID: payload.MethodID,
	})
	if err != nil {
		h.writeQuoteError(w, err)
		return
	}
	observeQuote(start)
	common.Data(w, http.StatusOK, quote)
}

// Commit settles the order: debits the applied gift card and records promo
// usage, keyed by the order identifier.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload struct {
		OrderID  string          `json:"orderId"`
		Subtotal decimal.Decimal `json:"subtotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(payload.OrderID) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderId is required", nil)
		return
	}
	if payload.Subtotal.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "subtotal must not be negative", nil)
		return
	}
	result, err := h.Svc.Commit(r.Context(), CommitInput{OrderID: payload.OrderID, Subtotal: payload.Subtotal})
	if err != nil {
		countCommit("error")
		switch {
		case errors.Is(err, ErrOrderIDRequired):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "orderId is required", nil)
		case errors.Is(err, ErrGiftCardConflict):
			common.JSONError(w, http.StatusConflict, "GIFTCARD_CONFLICT", "gift card balance changed, request a new quote", nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to commit order", nil)
		}
		return
	}
	countCommit("ok")
	if result.GiftCardDebited && obs.GiftCardRedeemTotal != nil {
		obs.GiftCardRedeemTotal.WithLabelValues("ok").Inc()
	}
	if result.PromoSettled && obs.PromoSettleTotal != nil {
		obs.PromoSettleTotal.WithLabelValues("ok").Inc()
	}
	common.Data(w, http.StatusOK, result)
}

func (h *Handler) writeQuoteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shipping.ErrNoZone):
		common.JSONError(w, http.StatusUnprocessableEntity, "NO_SHIPPING_ZONE", "no shipping zone covers the destination", nil)
	case errors.Is(err, shipping.ErrNoMethod):
		common.JSONError(w, http.StatusUnprocessableEntity, "NO_SHIPPING_METHOD", "no shipping method available", nil)
	case errors.Is(err, shipping.ErrNegativeWeight):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "weight must not be negative", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to price checkout", nil)
	}
}

func observeQuote(start time.Time) {
	if obs.QuoteDuration == nil {
		return
	}
	obs.QuoteDuration.Observe(obs.Millis(time.Since(start)))
}

func countCommit(result string) {
	if obs.CheckoutCommitTotal == nil {
		return
	}
	obs.CheckoutCommitTotal.WithLabelValues(result).Inc()
}
