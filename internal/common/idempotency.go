package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const idemKeyPrefix = "storefront:idem:"

// Idem enforces Idempotency-Key semantics for the purchase and commit
// endpoints, backed by Redis SETNX. Requests without the header pass
// through untouched, as does everything when no Redis is configured.
type Idem struct {
	Client *redis.Client
	TTL    time.Duration
}

// The raw header value is client-chosen, so hash it before using it as a
// Redis key.
func idemKey(header string) string {
	sum := sha256.Sum256([]byte(header))
	return idemKeyPrefix + hex.EncodeToString(sum[:])
}

func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.Client == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := idemKey(header)
		ok, err := i.Client.SetNX(r.Context(), key, "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// keeps the key expiring even if the handler panics
			_ = i.Client.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
