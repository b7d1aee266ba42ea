package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Blob keys for the independently persisted tables.
const (
	KeyPromoCodes       = "promo_codes"
	KeyGiftCards        = "gift_cards"
	KeyCommerceConfig   = "commerce_config"
	KeyPaymentProviders = "payment_providers"
	KeyCommitRecords    = "commit_records"
)

var (
	// ErrNotFound is returned when no blob exists under the requested key.
	ErrNotFound = errors.New("store: blob not found")
	// ErrCorrupt indicates the persisted blob could not be decoded.
	ErrCorrupt = errors.New("store: corrupt blob")
)

// Adapter persists named opaque blobs. Implementations must make Save
// observable by the next Load so balance checks always see current state.
type Adapter interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
}

// LoadJSON loads and decodes the blob stored under key into v.
// A decode failure is reported as ErrCorrupt rather than swallowed.
func LoadJSON(ctx context.Context, a Adapter, key string, v any) error {
	raw, err := a.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, a Adapter, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return a.Save(ctx, key, raw)
}
