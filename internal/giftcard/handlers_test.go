package giftcard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/khc-home/storefront/internal/common"
	"github.com/khc-home/storefront/internal/giftcard"
	"github.com/khc-home/storefront/internal/store"
)

func newHandler(t *testing.T) (*giftcard.Handler, *giftcard.Ledger, *common.InMemoryEmail) {
	t.Helper()
	ledger := &giftcard.Ledger{Store: store.NewMemory(), Log: zerolog.Nop()}
	outbox := &common.InMemoryEmail{}
	return &giftcard.Handler{
		Ledger:    ledger,
		Validator: validator.New(),
		Email:     outbox,
	}, ledger, outbox
}

func TestPurchaseEndpoint(t *testing.T) {
	handler, _, outbox := newHandler(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/giftcards", strings.NewReader(`{"amount":"100","recipientEmail":"dana@example.com","message":"enjoy"}`))
	handler.Purchase(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var body struct {
		Data giftcard.Card `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Data.Balance.Equal(decimal.NewFromInt(100)))
	require.True(t, strings.HasPrefix(body.Data.Code, giftcard.CodePrefix+"-"))

	require.Len(t, outbox.Outbox, 1)
	require.Equal(t, "dana@example.com", outbox.Outbox[0].To)
	require.Contains(t, outbox.Outbox[0].HTML, body.Data.Code)
}

func TestPurchaseEndpointRejectsAmountOutOfRange(t *testing.T) {
	handler, _, _ := newHandler(t)

	for _, amount := range []string{"5", "1500"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/giftcards", strings.NewReader(`{"amount":"`+amount+`","recipientEmail":"dana@example.com"}`))
		handler.Purchase(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code, "amount %s", amount)
	}
}

func TestPurchaseEndpointRejectsBadEmail(t *testing.T) {
	handler, _, _ := newHandler(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/giftcards", strings.NewReader(`{"amount":"100","recipientEmail":"not-an-email"}`))
	handler.Purchase(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestValidateEndpointUnknownCode(t *testing.T) {
	handler, _, _ := newHandler(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/giftcards/validate", strings.NewReader(`{"code":"KHC-XXXX-XXXX-XXXX"}`))
	handler.Validate(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data giftcard.ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.False(t, body.Data.Valid)
}

func TestApplyEndpoint(t *testing.T) {
	handler, ledger, _ := newHandler(t)
	card, err := ledger.Purchase(context.Background(), decimal.NewFromInt(50), "dana@example.com", "")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/giftcards/apply", strings.NewReader(`{"code":"`+card.Code+`"}`))
	handler.Apply(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	applied, err := ledger.Applied(context.Background())
	require.NoError(t, err)
	require.NotNil(t, applied)
	require.Equal(t, card.Code, applied.Code)
}

func TestBalanceEndpoint(t *testing.T) {
	handler, ledger, _ := newHandler(t)
	card, err := ledger.Purchase(context.Background(), decimal.NewFromInt(75), "dana@example.com", "")
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Get("/api/v1/giftcards/{code}/balance", handler.Balance)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/giftcards/"+card.Code+"/balance", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data struct {
			Code    string          `json:"code"`
			Balance decimal.Decimal `json:"balance"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, card.Code, body.Data.Code)
	require.True(t, body.Data.Balance.Equal(decimal.NewFromInt(75)))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/giftcards/KHC-0000-0000-0000/balance", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}
