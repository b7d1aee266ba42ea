package commerce

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/khc-home/storefront/internal/currency"
	"github.com/khc-home/storefront/internal/shipping"
	"github.com/khc-home/storefront/internal/store"
	"github.com/khc-home/storefront/internal/tax"
)

// Settings is the persisted commerce configuration blob: tax table,
// shipping zones, currency display and the global free-shipping threshold.
type Settings struct {
	Tax                   tax.Calculator    `json:"tax"`
	Shipping              shipping.Resolver `json:"shipping"`
	Currency              currency.Config   `json:"currency"`
	FreeShippingThreshold decimal.Decimal   `json:"freeShippingThreshold"`
}

// DefaultSettings is what a fresh store runs with before any admin edit.
func DefaultSettings() Settings {
	return Settings{
		Tax:      tax.Calculator{Enabled: false},
		Shipping: shipping.Resolver{Enabled: false},
		Currency: currency.DefaultConfig(),
	}
}

// Service loads and saves the commerce configuration blob.
type Service struct {
	Store store.Adapter
	Log   zerolog.Logger

	mu sync.Mutex
}

// Load returns the stored settings, or defaults when nothing (or something
// unreadable) is stored. Corruption is logged, not swallowed silently.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var settings Settings
	err := store.LoadJSON(ctx, s.Store, store.KeyCommerceConfig, &settings)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return DefaultSettings(), nil
	case errors.Is(err, store.ErrCorrupt):
		s.Log.Error().Err(err).Msg("commerce config corrupt, using defaults")
		return DefaultSettings(), nil
	default:
		return Settings{}, err
	}
	if settings.Currency.Primary == "" {
		settings.Currency = currency.DefaultConfig()
	}
	return settings, nil
}

// Save persists the settings blob.
func (s *Service) Save(ctx context.Context, settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.SaveJSON(ctx, s.Store, store.KeyCommerceConfig, settings)
}

// Formatter builds a currency formatter from the stored configuration.
func (s *Service) Formatter(ctx context.Context) (currency.Formatter, error) {
	settings, err := s.Load(ctx)
	if err != nil {
		return currency.Formatter{}, err
	}
	return currency.Formatter{Config: settings.Currency}, nil
}
