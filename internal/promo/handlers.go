package promo

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/khc-home/storefront/internal/common"
	"github.com/khc-home/storefront/internal/obs"
)

// Handler wires the promo registry to HTTP.
type Handler struct {
	Registry *Registry
}

// Validate checks a promo code against the current cart total without
// touching stored state.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo registry not configured", nil)
		return
	}
	var payload struct {
		Code      string          `json:"code"`
		CartTotal decimal.Decimal `json:"cartTotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(payload.Code) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	result, err := h.Registry.Validate(r.Context(), payload.Code, payload.CartTotal)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to validate promo code", nil)
		return
	}
	countValidate(result.Valid)
	common.Data(w, http.StatusOK, result)
}

// Apply marks a promo code as the applied code for the session.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo registry not configured", nil)
		return
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(payload.Code) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	result, err := h.Registry.Apply(r.Context(), payload.Code)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to apply promo code", nil)
		return
	}
	if !result.Valid {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", result.Message, nil)
		return
	}
	common.Data(w, http.StatusOK, result)
}

// RemoveApplied clears the applied promo code.
func (h *Handler) RemoveApplied(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo registry not configured", nil)
		return
	}
	if err := h.Registry.Remove(r.Context()); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to remove promo code", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Applied returns the currently applied promo code, if any.
func (h *Handler) Applied(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo registry not configured", nil)
		return
	}
	applied, err := h.Registry.Applied(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load applied promo", nil)
		return
	}
	common.Data(w, http.StatusOK, applied)
}

// Active lists promo codes a shopper could currently use.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	if h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "promo registry not configured", nil)
		return
	}
	active, err := h.Registry.Active(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list promo codes", nil)
		return
	}
	common.Data(w, http.StatusOK, active)
}

func countValidate(valid bool) {
	if obs.PromoValidateTotal == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	obs.PromoValidateTotal.WithLabelValues(result).Inc()
}
