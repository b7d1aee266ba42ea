package promo_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/khc-home/storefront/internal/promo"
	"github.com/khc-home/storefront/internal/store"
)

func newTestHandler(t *testing.T) (*promo.Handler, *promo.Registry) {
	t.Helper()
	registry := &promo.Registry{Store: store.NewMemory(), Log: zerolog.Nop()}
	expiry := time.Now().AddDate(0, 1, 0)
	require.NoError(t, registry.Upsert(context.Background(), promo.Code{
		Code:        "SAVE20",
		Type:        promo.Percentage,
		Value:       decimal.NewFromInt(20),
		MinPurchase: decimal.NewFromInt(100),
		ExpiresAt:   &expiry,
		UsageLimit:  10,
		Active:      true,
	}))
	return &promo.Handler{Registry: registry}, registry
}

func TestValidateEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", strings.NewReader(`{"code":"save20","cartTotal":"250"}`))
	handler.Validate(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data promo.ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Data.Valid)
	require.NotNil(t, body.Data.Promo)
	require.Equal(t, "SAVE20", body.Data.Promo.Code)
}

func TestValidateEndpointBelowMinPurchase(t *testing.T) {
	handler, _ := newTestHandler(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", strings.NewReader(`{"code":"SAVE20","cartTotal":"50"}`))
	handler.Validate(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data promo.ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.False(t, body.Data.Valid)
	require.Contains(t, body.Data.Message, "minimum purchase")
}

func TestValidateEndpointRequiresCode(t *testing.T) {
	handler, _ := newTestHandler(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promos/validate", strings.NewReader(`{"cartTotal":"50"}`))
	handler.Validate(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestApplyEndpointUnknownCode(t *testing.T) {
	handler, _ := newTestHandler(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promos/apply", strings.NewReader(`{"code":"NOPE"}`))
	handler.Apply(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestApplyThenRemove(t *testing.T) {
	handler, registry := newTestHandler(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promos/apply", strings.NewReader(`{"code":"SAVE20"}`))
	handler.Apply(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	applied, err := registry.Applied(context.Background())
	require.NoError(t, err)
	require.NotNil(t, applied)

	rr = httptest.NewRecorder()
	handler.RemoveApplied(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/promos/applied", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	applied, err = registry.Applied(context.Background())
	require.NoError(t, err)
	require.Nil(t, applied)
}

func TestActiveEndpointFiltersExpired(t *testing.T) {
	handler, registry := newTestHandler(t)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, registry.Upsert(context.Background(), promo.Code{
		Code:      "EXPIRED",
		Type:      promo.Fixed,
		Value:     decimal.NewFromInt(5),
		ExpiresAt: &past,
		Active:    true,
	}))

	rr := httptest.NewRecorder()
	handler.Active(rr, httptest.NewRequest(http.MethodGet, "/api/v1/promos/active", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data []promo.Code `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "SAVE20", body.Data[0].Code)
}
