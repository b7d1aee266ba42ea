package giftcard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/khc-home/storefront/internal/common"
	"github.com/khc-home/storefront/internal/events"
	"github.com/khc-home/storefront/internal/obs"
)

// Handler wires the gift card ledger to HTTP.
type Handler struct {
	Ledger    *Ledger
	Validator *validator.Validate
	Email     common.EmailSender
	Events    *events.Bus
	MinAmount decimal.Decimal
	MaxAmount decimal.Decimal
}

type purchaseRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	RecipientEmail string          `json:"recipientEmail" validate:"required,email"`
	Message        string          `json:"message" validate:"max=500"`
}

// Purchase issues a new gift card funded with the requested amount.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	if h.Ledger == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gift card ledger not configured", nil)
		return
	}
	var payload purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if h.Validator != nil {
		if err := h.Validator.Struct(payload); err != nil {
			countPurchase("rejected")
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid gift card request", validationDetails(err))
			return
		}
	}
	if payload.Amount.LessThan(h.minAmount()) || payload.Amount.GreaterThan(h.maxAmount()) {
		countPurchase("rejected")
		common.JSONError(w, http.StatusBadRequest, "VALIDATION",
			fmt.Sprintf("amount must be between %s and %s", h.minAmount(), h.maxAmount()), nil)
		return
	}
	card, err := h.Ledger.Purchase(r.Context(), payload.Amount, payload.RecipientEmail, payload.Message)
	if err != nil {
		countPurchase("error")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to purchase gift card", nil)
		return
	}
	countPurchase("ok")
	h.notifyRecipient(r.Context(), card)
	common.Data(w, http.StatusCreated, card)
}

// Validate reports whether a gift card code is currently redeemable.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.Ledger == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gift card ledger not configured", nil)
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
	result, err := h.Ledger.Validate(r.Context(), payload.Code)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to validate gift card", nil)
		return
	}
	common.Data(w, http.StatusOK, result)
}

// Apply marks a gift card as the one attached to the session.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if h.Ledger == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gift card ledger not configured", nil)
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
	result, err := h.Ledger.Apply(r.Context(), payload.Code)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to apply gift card", nil)
		return
	}
	if !result.Valid {
		common.JSONError(w, http.StatusUnprocessableEntity, "GIFTCARD_INVALID", result.Message, nil)
		return
	}
	common.Data(w, http.StatusOK, result)
}

// RemoveApplied detaches the gift card from the session.
func (h *Handler) RemoveApplied(w http.ResponseWriter, r *http.Request) {
	if h.Ledger == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gift card ledger not configured", nil)
		return
	}
	if err := h.Ledger.RemoveApplied(r.Context()); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to remove gift card", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Applied returns the gift card currently attached to the session.
func (h *Handler) Applied(w http.ResponseWriter, r *http.Request) {
	if h.Ledger == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gift card ledger not configured", nil)
		return
	}
	card, err := h.Ledger.Applied(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load applied gift card", nil)
		return
	}
	common.Data(w, http.StatusOK, card)
}

// Balance returns the remaining balance for a gift card code.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	if h.Ledger == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "gift card ledger not configured", nil)
		return
	}
	code := chi.URLParam(r, "code")
	balance, err := h.Ledger.Balance(r.Context(), code)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load gift card balance", nil)
		return
	}
	if balance == nil {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "gift card not found", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"code":    NormalizeCode(code),
		"balance": balance,
	})
}

func (h *Handler) notifyRecipient(ctx context.Context, card Card) {
	if h.Events != nil {
		_, _ = h.Events.Emit(ctx, events.TopicGiftCardPurchased, map[string]any{
			"code":   card.Code,
			"amount": card.Balance.String(),
		})
	}
	if h.Email == nil || strings.TrimSpace(card.RecipientEmail) == "" {
		return
	}
	subject := "You received a gift card"
	body := fmt.Sprintf("<p>Your gift card code is <strong>%s</strong> with a balance of %s.</p>", card.Code, card.Balance)
	if strings.TrimSpace(card.Message) != "" {
		body += fmt.Sprintf("<p>%s</p>", card.Message)
	}
	_ = h.Email.Send(card.RecipientEmail, subject, body)
}

func (h *Handler) minAmount() decimal.Decimal {
	if h.MinAmount.IsZero() {
		return decimal.NewFromInt(10)
	}
	return h.MinAmount
}

func (h *Handler) maxAmount() decimal.Decimal {
	if h.MaxAmount.IsZero() {
		return decimal.NewFromInt(1000)
	}
	return h.MaxAmount
}

func validationDetails(err error) any {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return nil
	}
	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

func countPurchase(result string) {
	if obs.GiftCardPurchaseTotal == nil {
		return
	}
	obs.GiftCardPurchaseTotal.WithLabelValues(result).Inc()
}
