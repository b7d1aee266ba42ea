package giftcard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/khc-home/storefront/internal/store"
)

// ValidationResult is the discriminated outcome of a gift card check.
type ValidationResult struct {
	Valid    bool   `json:"valid"`
	Message  string `json:"message"`
	GiftCard *Card  `json:"giftCard,omitempty"`
}

// redemption records a committed debit so a retried commit with the same
// order ID cannot double-debit.
type redemption struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

// ledgerBlob is the persisted shape: card rows, the session-applied code
// and per-order redemption records.
type ledgerBlob struct {
	Cards       []Card                `json:"cards"`
	AppliedCode string                `json:"appliedCode,omitempty"`
	Redemptions map[string]redemption `json:"redemptions,omitempty"`
}

// Ledger exclusively owns the gift card table; Redeem is the only path
// that mutates a balance. Every operation re-reads the persisted ledger so
// a balance captured at apply time can never be spent stale.
type Ledger struct {
	Store store.Adapter
	Log   zerolog.Logger
	Now   func() time.Time

	mu sync.Mutex
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Ledger) load(ctx context.Context) (ledgerBlob, error) {
	var b ledgerBlob
	err := store.LoadJSON(ctx, l.Store, store.KeyGiftCards, &b)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
	case errors.Is(err, store.ErrCorrupt):
		l.Log.Error().Err(err).Msg("gift card ledger corrupt, starting empty")
		b = ledgerBlob{}
	default:
		return ledgerBlob{}, err
	}
	if b.Redemptions == nil {
		b.Redemptions = make(map[string]redemption)
	}
	return b, nil
}

func (l *Ledger) save(ctx context.Context, b ledgerBlob) error {
	return store.SaveJSON(ctx, l.Store, store.KeyGiftCards, b)
}

func (b ledgerBlob) find(code string) (int, bool) {
	normalized := NormalizeCode(code)
	for i := range b.Cards {
		if NormalizeCode(b.Cards[i].Code) == normalized {
			return i, true
		}
	}
	return 0, false
}

// Purchase issues a new card. Amount bounds and recipient email format are
// enforced at the caller boundary; the ledger still refuses nonsense.
func (l *Ledger) Purchase(ctx context.Context, amount decimal.Decimal, recipientEmail, message string) (Card, error) {
	if amount.Sign() <= 0 {
		return Card{}, errors.New("giftcard: amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := l.load(ctx)
	if err != nil {
		return Card{}, err
	}
	now := l.now()
	card := Card{
		Code:           l.freshCode(b),
		Balance:        amount,
		OriginalAmount: amount,
		Active:         true,
		CreatedAt:      now,
		ExpiresAt:      now.AddDate(1, 0, 0),
		RecipientEmail: recipientEmail,
		Message:        message,
	}
	b.Cards = append(b.Cards, card)
	if err := l.save(ctx, b); err != nil {
		return Card{}, err
	}
	l.Log.Info().Str("code", card.Code).Str("recipient", recipientEmail).Msg("gift card issued")
	return card, nil
}

// freshCode generates a code not already present in the ledger.
func (l *Ledger) freshCode(b ledgerBlob) string {
	for {
		code := GenerateCode()
		if _, taken := b.find(code); !taken {
			return code
		}
	}
}

// Validate checks a card in fixed order: exists, active, unexpired,
// positive balance. The first failure short-circuits.
func (l *Ledger) Validate(ctx context.Context, code string) (ValidationResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := l.load(ctx)
	if err != nil {
		return ValidationResult{}, err
	}
	return l.validateLocked(b, code), nil
}

func (l *Ledger) validateLocked(b ledgerBlob, code string) ValidationResult {
	idx, ok := b.find(code)
	if !ok {
		return ValidationResult{Message: "gift card not found"}
	}
	card := b.Cards[idx]
	if !card.Active {
		return ValidationResult{Message: "this gift card has been deactivated"}
	}
	if card.Expired(l.now()) {
		return ValidationResult{Message: "this gift card has expired"}
	}
	if card.Balance.Sign() <= 0 {
		return ValidationResult{Message: "this gift card has no remaining balance"}
	}
	return ValidationResult{
		Valid:    true,
		Message:  "gift card balance: " + card.Balance.StringFixed(2),
		GiftCard: &card,
	}
}

// Apply validates the card and marks it as the session-applied card. The
// applied state is a reference by code, not a balance copy, so later reads
// always see the current ledger balance.
func (l *Ledger) Apply(ctx context.Context, code string) (ValidationResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := l.load(ctx)
	if err != nil {
		return ValidationResult{}, err
	}
	res := l.validateLocked(b, code)
	if !res.Valid {
		return res, nil
	}
	b.AppliedCode = NormalizeCode(code)
	if err := l.save(ctx, b); err != nil {
		return ValidationResult{}, err
	}
	return res, nil
}

// RemoveApplied clears the session-applied card without touching balances.
func (l *Ledger) RemoveApplied(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := l.load(ctx)
	if err != nil {
		return err
	}
	if b.AppliedCode == "" {
		return nil
	}
	b.AppliedCode = ""
	return l.save(ctx, b)
}

// Applied returns the current ledger row of the session-applied card, nil
// when nothing is applied.
func (l *Ledger) Applied(ctx context.Context) (*Card, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	if b.AppliedCode == "" {
		return nil, nil
	}
	idx, ok := b.find(b.AppliedCode)
	if !ok {
		return nil, nil
	}
	card := b.Cards[idx]
	return &card, nil
}

// Balance is a read-only lookup, nil when the card does not exist.
func (l *Ledger) Balance(ctx context.Context, code string) (*decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	idx, ok := b.find(code)
	if !ok {
		return nil, nil
	}
	balance := b.Cards[idx].Balance
	return &balance, nil
}

// Redeem is the sole mutating redemption entry point. It re-reads the
// persisted balance at call time, performs check-then-decrement under the
// ledger lock, and records the order ID so a retry is a no-op. Returns
// false without mutating when the balance cannot cover the amount.
func (l *Ledger) Redeem(ctx context.Context, code string, amount decimal.Decimal, orderID string) (bool, error) {
	if orderID == "" {
		return false, errors.New("giftcard: order id required for redeem")
	}
	if amount.IsNegative() {
		return false, errors.New("giftcard: redeem amount must not be negative")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	if prev, done := b.Redemptions[orderID]; done {
		// Retried commit: already debited for this order.
		return prev.Code == NormalizeCode(code), nil
	}
	idx, ok := b.find(code)
	if !ok {
		return false, nil
	}
	card := b.Cards[idx]
	if !card.Active || card.Expired(l.now()) {
		return false, nil
	}
	if card.Balance.LessThan(amount) {
		return false, nil
	}
	b.Cards[idx].Balance = card.Balance.Sub(amount)
	b.Redemptions[orderID] = redemption{Code: NormalizeCode(code), Amount: amount}
	if err := l.save(ctx, b); err != nil {
		return false, err
	}
	l.Log.Info().
		Str("code", b.Cards[idx].Code).
		Str("order_id", orderID).
		Str("amount", amount.StringFixed(2)).
		Str("balance", b.Cards[idx].Balance.StringFixed(2)).
		Msg("gift card redeemed")
	return true, nil
}
