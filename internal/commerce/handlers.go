package commerce

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/khc-home/storefront/internal/common"
	"github.com/khc-home/storefront/internal/currency"
)

// Handler wires commerce configuration to HTTP.
type Handler struct {
	Svc *Service
}

// GetCurrency returns the stored currency configuration.
func (h *Handler) GetCurrency(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "commerce service not configured", nil)
		return
	}
	settings, err := h.Svc.Load(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load currency config", nil)
		return
	}
	common.Data(w, http.StatusOK, settings.Currency)
}

// PutCurrency replaces the currency configuration.
func (h *Handler) PutCurrency(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "commerce service not configured", nil)
		return
	}
	var payload currency.Config
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	payload.Primary = strings.ToUpper(strings.TrimSpace(payload.Primary))
	if payload.Primary == "" {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "primary currency is required", nil)
		return
	}
	if !supports(payload, payload.Primary) {
		payload.Supported = append(payload.Supported, payload.Primary)
	}
	settings, err := h.Svc.Load(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load settings", nil)
		return
	}
	settings.Currency = payload
	if err := h.Svc.Save(r.Context(), settings); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to save currency config", nil)
		return
	}
	common.Data(w, http.StatusOK, payload)
}

// FormatPrice renders an amount using the stored display format.
func (h *Handler) FormatPrice(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "commerce service not configured", nil)
		return
	}
	var payload struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	formatter, err := h.Svc.Formatter(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load currency config", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"formatted": formatter.Format(payload.Amount, payload.Currency),
	})
}

func supports(cfg currency.Config, code string) bool {
	for _, c := range cfg.Supported {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}
