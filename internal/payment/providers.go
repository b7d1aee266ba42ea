package payment

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/khc-home/storefront/internal/store"
)

// MidtransConfig holds stored Midtrans credentials.
type MidtransConfig struct {
	ServerKey string `json:"serverKey,omitempty"`
	ClientKey string `json:"clientKey,omitempty"`
	Sandbox   bool   `json:"sandbox"`
}

// XenditConfig holds stored Xendit credentials.
type XenditConfig struct {
	SecretKey string `json:"secretKey,omitempty"`
}

// StripeConfig holds stored Stripe credentials.
type StripeConfig struct {
	SecretKey      string `json:"secretKey,omitempty"`
	PublishableKey string `json:"publishableKey,omitempty"`
}

// Providers is the persisted payment-provider configuration blob. The
// engine stores credentials for the checkout surface but never calls a
// gateway itself.
type Providers struct {
	Active   string         `json:"active"`
	Midtrans MidtransConfig `json:"midtrans"`
	Xendit   XenditConfig   `json:"xendit"`
	Stripe   StripeConfig   `json:"stripe"`
}

const redacted = "********"

// Redacted returns a copy safe for display: secrets are masked, presence
// is still visible.
func (p Providers) Redacted() Providers {
	out := p
	out.Midtrans.ServerKey = mask(p.Midtrans.ServerKey)
	out.Xendit.SecretKey = mask(p.Xendit.SecretKey)
	out.Stripe.SecretKey = mask(p.Stripe.SecretKey)
	return out
}

func mask(secret string) string {
	if strings.TrimSpace(secret) == "" {
		return ""
	}
	return redacted
}

// Store loads and saves the provider configuration blob.
type Store struct {
	Adapter store.Adapter
	Log     zerolog.Logger

	mu sync.Mutex
}

// Get returns the stored configuration, zero-valued when nothing is stored.
func (s *Store) Get(ctx context.Context) (Providers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var p Providers
	err := store.LoadJSON(ctx, s.Adapter, store.KeyPaymentProviders, &p)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return Providers{}, nil
	case errors.Is(err, store.ErrCorrupt):
		s.Log.Error().Err(err).Msg("payment provider config corrupt, using empty")
		return Providers{}, nil
	default:
		return Providers{}, err
	}
	return p, nil
}

// Put persists the configuration. Masked values in the incoming payload
// keep the previously stored secret, so a redacted GET can be round-tripped.
func (s *Store) Put(ctx context.Context, incoming Providers) (Providers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var current Providers
	err := store.LoadJSON(ctx, s.Adapter, store.KeyPaymentProviders, &current)
	if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrCorrupt) {
		return Providers{}, err
	}
	merged := incoming
	merged.Midtrans.ServerKey = keepIfMasked(incoming.Midtrans.ServerKey, current.Midtrans.ServerKey)
	merged.Xendit.SecretKey = keepIfMasked(incoming.Xendit.SecretKey, current.Xendit.SecretKey)
	merged.Stripe.SecretKey = keepIfMasked(incoming.Stripe.SecretKey, current.Stripe.SecretKey)
	if err := store.SaveJSON(ctx, s.Adapter, store.KeyPaymentProviders, merged); err != nil {
		return Providers{}, err
	}
	return merged, nil
}

func keepIfMasked(incoming, current string) string {
	if incoming == redacted {
		return current
	}
	return incoming
}
