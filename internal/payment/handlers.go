package payment

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/khc-home/storefront/internal/common"
)

// Handler wires payment provider configuration to HTTP. Credentials are
// stored for a future payment integration and never sent to a provider.
type Handler struct {
	Store *Store
}

// Get returns the stored provider configuration with secrets redacted.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment store not configured", nil)
		return
	}
	providers, err := h.Store.Get(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load payment providers", nil)
		return
	}
	common.Data(w, http.StatusOK, providers.Redacted())
}

// Put replaces the provider configuration. Masked secrets in the payload
// keep their stored values, so a redacted Get can be edited and sent back.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "payment store not configured", nil)
		return
	}
	var payload Providers
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	switch strings.ToLower(strings.TrimSpace(payload.Active)) {
	case "", "midtrans", "xendit", "stripe":
	default:
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "unknown active provider", nil)
		return
	}
	saved, err := h.Store.Put(r.Context(), payload)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to save payment providers", nil)
		return
	}
	common.Data(w, http.StatusOK, saved.Redacted())
}
