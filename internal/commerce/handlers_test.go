package commerce_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/khc-home/storefront/internal/commerce"
	"github.com/khc-home/storefront/internal/currency"
	"github.com/khc-home/storefront/internal/store"
)

func TestGetCurrencyDefaults(t *testing.T) {
	handler := &commerce.Handler{Svc: &commerce.Service{Store: store.NewMemory(), Log: zerolog.Nop()}}

	rr := httptest.NewRecorder()
	handler.GetCurrency(rr, httptest.NewRequest(http.MethodGet, "/api/v1/config/currency", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data currency.Config `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "USD", body.Data.Primary)
}

func TestPutCurrencyRoundTrips(t *testing.T) {
	svc := &commerce.Service{Store: store.NewMemory(), Log: zerolog.Nop()}
	handler := &commerce.Handler{Svc: svc}

	payload := `{"primary":"eur","supported":["USD"],"displayFormat":{"symbolPosition":"after","decimalSeparator":",","thousandsSeparator":".","decimals":2}}`
	rr := httptest.NewRecorder()
	handler.PutCurrency(rr, httptest.NewRequest(http.MethodPut, "/api/v1/config/currency", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.GetCurrency(rr, httptest.NewRequest(http.MethodGet, "/api/v1/config/currency", nil))
	var body struct {
		Data currency.Config `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "EUR", body.Data.Primary)
	// the primary is always part of the supported set
	require.Contains(t, body.Data.Supported, "EUR")
}

func TestPutCurrencyRequiresPrimary(t *testing.T) {
	handler := &commerce.Handler{Svc: &commerce.Service{Store: store.NewMemory(), Log: zerolog.Nop()}}

	rr := httptest.NewRecorder()
	handler.PutCurrency(rr, httptest.NewRequest(http.MethodPut, "/api/v1/config/currency", strings.NewReader(`{"supported":["USD"]}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFormatPriceEndpoint(t *testing.T) {
	handler := &commerce.Handler{Svc: &commerce.Service{Store: store.NewMemory(), Log: zerolog.Nop()}}

	rr := httptest.NewRecorder()
	handler.FormatPrice(rr, httptest.NewRequest(http.MethodPost, "/api/v1/format-price", strings.NewReader(`{"amount":"1234.5"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data struct {
			Formatted string `json:"formatted"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "$1,234.50", body.Data.Formatted)
}
