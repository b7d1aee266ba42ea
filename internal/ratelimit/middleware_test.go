package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestMiddlewareThrottlesRepeatedValidation(t *testing.T) {
	handler := Handler{Client: newTestClient(t), PerMinute: 2}
	validate := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/promos/validate", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		validate.ServeHTTP(rr, req.Clone(req.Context()))
		if rr.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	validate.ServeHTTP(rr, req.Clone(req.Context()))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third attempt, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected remaining header: %q", rr.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestMiddlewareKeysByClient(t *testing.T) {
	handler := Handler{Client: newTestClient(t), PerMinute: 1}
	validate := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodPost, "/promos/validate", nil)
	first.Header.Set("X-Forwarded-For", "203.0.113.9")
	rr := httptest.NewRecorder()
	validate.ServeHTTP(rr, first)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	// a different client is not affected by the first client's attempts
	second := httptest.NewRequest(http.MethodPost, "/promos/validate", nil)
	second.Header.Set("X-Forwarded-For", "198.51.100.7")
	rr = httptest.NewRecorder()
	validate.ServeHTTP(rr, second)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected second client allowed, got %d", rr.Code)
	}
}

func TestMiddlewareFailsOpenOnRedisError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = client.Close() }()

	var gotErr error
	handler := Handler{Client: client, PerMinute: 1, OnError: func(err error) { gotErr = err }}
	validate := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	validate.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/giftcards/validate", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected request to proceed when redis is down, got %d", rr.Code)
	}
	if gotErr == nil {
		t.Fatal("expected OnError to receive the redis error")
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	limiter := Limiter{Client: client}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, _, err := limiter.Allow(ctx, "203.0.113.9", 3)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be within the limit", i+1)
		}
	}
	allowed, remaining, _, err := limiter.Allow(ctx, "203.0.113.9", 3)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed || remaining != 0 {
		t.Fatalf("expected limit reached, allowed=%v remaining=%d", allowed, remaining)
	}

	mr.FastForward(window + time.Second)

	allowed, _, _, err = limiter.Allow(ctx, "203.0.113.9", 3)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed {
		t.Fatal("expected attempts to be forgotten after the window")
	}
}
