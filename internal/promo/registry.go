package promo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/khc-home/storefront/internal/store"
)

// ValidationResult is the discriminated outcome of a validation call.
// Message is shown to the shopper verbatim.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	Promo   *Code  `json:"promo,omitempty"`
}

// table is the persisted blob shape: the code table, the session-applied
// code and the per-order settlement records that keep Settle idempotent.
type table struct {
	Codes       []Code            `json:"codes"`
	AppliedCode string            `json:"appliedCode,omitempty"`
	Settlements map[string]string `json:"settlements,omitempty"`
}

// Registry owns the promo code table and its usage counters. Nothing else
// mutates them. All reads go to the store so validation never operates on
// a counter cached before another session settled.
type Registry struct {
	Store store.Adapter
	Log   zerolog.Logger
	Now   func() time.Time

	mu sync.Mutex
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// load reads the current table. A missing blob yields an empty table; a
// corrupt blob is logged and also yields an empty table so the storefront
// keeps working, but the integrity failure is observable.
func (r *Registry) load(ctx context.Context) (table, error) {
	var t table
	err := store.LoadJSON(ctx, r.Store, store.KeyPromoCodes, &t)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
	case errors.Is(err, store.ErrCorrupt):
		r.Log.Error().Err(err).Msg("promo table corrupt, starting empty")
		t = table{}
	default:
		return table{}, err
	}
	if t.Settlements == nil {
		t.Settlements = make(map[string]string)
	}
	return t, nil
}

func (r *Registry) save(ctx context.Context, t table) error {
	return store.SaveJSON(ctx, r.Store, store.KeyPromoCodes, t)
}

func (t table) find(code string) (int, bool) {
	normalized := Normalize(code)
	for i := range t.Codes {
		if Normalize(t.Codes[i].Code) == normalized {
			return i, true
		}
	}
	return 0, false
}

// Validate checks a shopper-entered code against the cart total. It is
// pure: no call path here touches TimesUsed or the applied state.
func (r *Registry) Validate(ctx context.Context, code string, cartTotal decimal.Decimal) (ValidationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.load(ctx)
	if err != nil {
		return ValidationResult{}, err
	}
	idx, ok := t.find(code)
	if !ok {
		return ValidationResult{Message: "promo code not found"}, nil
	}
	promo := t.Codes[idx]
	if err := promo.Check(r.now(), cartTotal); err != nil {
		return ValidationResult{Message: failureMessage(err, promo)}, nil
	}
	return ValidationResult{
		Valid:   true,
		Message: "promo code applied: " + promo.Savings(),
		Promo:   &promo,
	}, nil
}

// Apply marks the code as the session-applied promo when it exists.
// It does not advance TimesUsed; that happens once, at Settle.
func (r *Registry) Apply(ctx context.Context, code string) (ValidationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.load(ctx)
	if err != nil {
		return ValidationResult{}, err
	}
	idx, ok := t.find(code)
	if !ok {
		return ValidationResult{Message: "promo code not found"}, nil
	}
	promo := t.Codes[idx]
	t.AppliedCode = Normalize(promo.Code)
	if err := r.save(ctx, t); err != nil {
		return ValidationResult{}, err
	}
	return ValidationResult{Valid: true, Message: "promo code applied", Promo: &promo}, nil
}

// Remove clears the session-applied promo. No other side effect.
func (r *Registry) Remove(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.load(ctx)
	if err != nil {
		return err
	}
	if t.AppliedCode == "" {
		return nil
	}
	t.AppliedCode = ""
	return r.save(ctx, t)
}

// Applied returns a snapshot of the session-applied promo, or nil.
func (r *Registry) Applied(ctx context.Context) (*Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if t.AppliedCode == "" {
		return nil, nil
	}
	idx, ok := t.find(t.AppliedCode)
	if !ok {
		return nil, nil
	}
	promo := t.Codes[idx]
	return &promo, nil
}

// CalculateDiscount computes the discount of the applied promo for the
// given cart total, zero when nothing is applied.
func (r *Registry) CalculateDiscount(ctx context.Context, cartTotal decimal.Decimal) (decimal.Decimal, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if applied == nil {
		return decimal.Zero, nil
	}
	return applied.Discount(cartTotal), nil
}

// Active lists codes usable right now, for display purposes.
func (r *Registry) Active(ctx context.Context) ([]Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	now := r.now()
	out := make([]Code, 0, len(t.Codes))
	for _, c := range t.Codes {
		if !c.Active {
			continue
		}
		if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
			continue
		}
		if c.UsageLimit > 0 && c.TimesUsed >= c.UsageLimit {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Settle advances TimesUsed for the code exactly once per order. A retried
// settle with the same order ID is a no-op, so a retried checkout commit
// cannot double-count usage.
func (r *Registry) Settle(ctx context.Context, code, orderID string) error {
	if orderID == "" {
		return errors.New("promo: order id required for settle")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.load(ctx)
	if err != nil {
		return err
	}
	if _, done := t.Settlements[orderID]; done {
		return nil
	}
	idx, ok := t.find(code)
	if !ok {
		return fmt.Errorf("promo: settle unknown code %q", Normalize(code))
	}
	if t.Codes[idx].UsageLimit > 0 && t.Codes[idx].TimesUsed >= t.Codes[idx].UsageLimit {
		return ErrUsageLimitReached
	}
	t.Codes[idx].TimesUsed++
	t.Settlements[orderID] = Normalize(code)
	return r.save(ctx, t)
}

// Upsert inserts or replaces a code row. Used by the seeder and admin surface.
func (r *Registry) Upsert(ctx context.Context, promo Code) error {
	promo.Code = Normalize(promo.Code)
	if promo.Code == "" {
		return errors.New("promo: code is required")
	}
	if promo.Value.Sign() <= 0 {
		return errors.New("promo: value must be positive")
	}
	if promo.MinPurchase.IsNegative() {
		return errors.New("promo: minPurchase must not be negative")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.load(ctx)
	if err != nil {
		return err
	}
	if idx, ok := t.find(promo.Code); ok {
		t.Codes[idx] = promo
	} else {
		t.Codes = append(t.Codes, promo)
	}
	return r.save(ctx, t)
}

// List returns every code row, for the admin surface.
func (r *Registry) List(ctx context.Context) ([]Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return t.Codes, nil
}

func failureMessage(err error, promo Code) string {
	switch {
	case errors.Is(err, ErrInactive):
		return "this promo code is no longer active"
	case errors.Is(err, ErrExpired):
		return "this promo code has expired"
	case errors.Is(err, ErrUsageLimitReached):
		return "this promo code has reached its usage limit"
	case errors.Is(err, ErrMinPurchaseUnmet):
		return "a minimum purchase of " + promo.MinPurchase.StringFixed(2) + " is required for this code"
	default:
		return "promo code cannot be applied"
	}
}
