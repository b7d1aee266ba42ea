package checkout_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/khc-home/storefront/internal/checkout"
	"github.com/khc-home/storefront/internal/pricing"
)

func TestCartQuoteEndpoint(t *testing.T) {
	svc, _, _ := newService(t)
	handler := &checkout.Handler{Svc: svc}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quote", strings.NewReader(`{"subtotal":"150"}`))
	handler.CartQuote(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data pricing.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Data.Subtotal.Equal(d("150")))
	require.True(t, body.Data.FreeShippingRemaining.Equal(d("150")))
}

func TestCartQuoteRejectsNegativeSubtotal(t *testing.T) {
	svc, _, _ := newService(t)
	handler := &checkout.Handler{Svc: svc}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quote", strings.NewReader(`{"subtotal":"-1"}`))
	handler.CartQuote(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQuoteEndpointNoZone(t *testing.T) {
	svc, _, _ := newService(t)
	handler := &checkout.Handler{Svc: svc}

	// zap the wildcard zone so an uncovered country fails
	settings, err := svc.Commerce.Load(context.Background())
	require.NoError(t, err)
	settings.Shipping.Zones = settings.Shipping.Zones[:1]
	require.NoError(t, svc.Commerce.Save(context.Background(), settings))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(`{"subtotal":"100","country":"JP","weight":"1"}`))
	handler.Quote(rr, req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestCommitEndpoint(t *testing.T) {
	svc, _, ledger := newService(t)
	handler := &checkout.Handler{Svc: svc}

	card, err := ledger.Purchase(context.Background(), decimal.NewFromInt(40), "dana@example.com", "")
	require.NoError(t, err)
	_, err = ledger.Apply(context.Background(), card.Code)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/commit", strings.NewReader(`{"orderId":"order-9","subtotal":"100"}`))
	handler.Commit(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data checkout.CommitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "order-9", body.Data.OrderID)
	require.True(t, body.Data.GiftCardDebited)

	balance, err := ledger.Balance(context.Background(), card.Code)
	require.NoError(t, err)
	require.NotNil(t, balance)
	require.True(t, balance.IsZero())
}

func TestCommitEndpointRequiresOrderID(t *testing.T) {
	svc, _, _ := newService(t)
	handler := &checkout.Handler{Svc: svc}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/commit", strings.NewReader(`{"subtotal":"100"}`))
	handler.Commit(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
