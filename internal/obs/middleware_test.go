package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/khc-home/storefront/internal/obs"
)

func TestHTTPObsLabelsByRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics(registry)

	r := chi.NewRouter()
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/giftcards/{code}/balance", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, code := range []string{"GIFT-AAAA", "GIFT-BBBB"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/giftcards/"+code+"/balance", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rr.Code)
		}
	}

	// both requests collapse onto the pattern, not the concrete codes
	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/giftcards/{code}/balance", "200"))
	if total != 2 {
		t.Fatalf("expected counter 2 for route pattern, got %v", total)
	}
	if samples := testutil.CollectAndCount(metrics.ReqDur); samples == 0 {
		t.Fatal("expected histogram samples")
	}
	if inflight := testutil.ToFloat64(metrics.InFlight); inflight != 0 {
		t.Fatalf("expected no in-flight requests, got %v", inflight)
	}
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics(registry)
	second := obs.NewHTTPMetrics(registry)

	first.ReqTotal.WithLabelValues(http.MethodPost, "/promos/validate", "200").Inc()
	total := testutil.ToFloat64(second.ReqTotal.WithLabelValues(http.MethodPost, "/promos/validate", "200"))
	if total != 1 {
		t.Fatalf("expected second registration to share collectors, got %v", total)
	}
}
