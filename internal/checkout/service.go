package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/khc-home/storefront/internal/commerce"
	"github.com/khc-home/storefront/internal/events"
	"github.com/khc-home/storefront/internal/giftcard"
	"github.com/khc-home/storefront/internal/lock"
	"github.com/khc-home/storefront/internal/pricing"
	"github.com/khc-home/storefront/internal/promo"
	"github.com/khc-home/storefront/internal/store"
)

var (
	// ErrOrderIDRequired is returned when Commit is called without an order key.
	ErrOrderIDRequired = errors.New("checkout: order id is required")
	// ErrGiftCardConflict means the applied card could not cover the quoted
	// amount at commit time, typically because another session spent it.
	ErrGiftCardConflict = errors.New("checkout: gift card balance changed, re-quote required")
)

// QuoteInput carries the checkout-phase inputs supplied by the cart UI.
type QuoteInput struct {
	Subtotal decimal.Decimal
	Country  string
	State    string
	Weight   decimal.Decimal
	MethodID string
}

// Quote extends the cart summary with the checkout-phase components.
type Quote struct {
	Summary  pricing.Summary `json:"summary"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Payable  decimal.Decimal `json:"payable"`
	Currency string          `json:"currency"`
}

// CommitInput identifies the finalized order being committed.
type CommitInput struct {
	OrderID  string
	Subtotal decimal.Decimal
}

// CommitResult reports what the commit settled and debited.
type CommitResult struct {
	OrderID         string          `json:"orderId"`
	Summary         pricing.Summary `json:"summary"`
	PromoSettled    bool            `json:"promoSettled"`
	GiftCardDebited bool            `json:"giftCardDebited"`
}

// Service formalizes the two-phase protocol: everything before Commit is a
// pure reservation (validation and quoting, no mutation), and Commit is
// the single mutating call, keyed by an order identifier so a retried
// commit cannot double-debit a card or double-count a promo.
type Service struct {
	Promos   *promo.Registry
	Cards    *giftcard.Ledger
	Commerce *commerce.Service
	Events   *events.Bus
	Store    store.Adapter
	Log      zerolog.Logger

	// Lock serialises commits across replicas. Optional: a single replica
	// is already safe through the registry and ledger mutexes.
	Lock *lock.Locker

	mu sync.Mutex
}

// commitTable records the result of every committed order, keyed by order
// ID. A retried commit replays the stored result instead of re-quoting, so
// the caller sees the same totals even after the debit changed the ledger.
type commitTable struct {
	Orders map[string]CommitResult `json:"orders,omitempty"`
}

func (s *Service) loadCommits(ctx context.Context) (commitTable, error) {
	var t commitTable
	err := store.LoadJSON(ctx, s.Store, store.KeyCommitRecords, &t)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
	case errors.Is(err, store.ErrCorrupt):
		s.Log.Error().Err(err).Msg("commit records corrupt, starting empty")
		t = commitTable{}
	default:
		return commitTable{}, err
	}
	if t.Orders == nil {
		t.Orders = make(map[string]CommitResult)
	}
	return t, nil
}

func (s *Service) aggregator(threshold decimal.Decimal) pricing.Aggregator {
	return pricing.Aggregator{Promos: s.Promos, Cards: s.Cards, FreeShippingThreshold: threshold}
}

// Quote prices the full checkout: discounts, then shipping for the
// destination, then tax. Shipping is waived when the promo-discounted
// amount clears the global free-shipping threshold.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (Quote, error) {
	settings, err := s.Commerce.Load(ctx)
	if err != nil {
		return Quote{}, err
	}
	summary, err := s.aggregator(settings.FreeShippingThreshold).Quote(ctx, in.Subtotal)
	if err != nil {
		return Quote{}, err
	}

	shippingCost := decimal.Zero
	if settings.Shipping.Enabled {
		afterPromo := summary.Subtotal.Sub(summary.PromoDiscount)
		if settings.FreeShippingThreshold.Sign() > 0 && afterPromo.GreaterThanOrEqual(settings.FreeShippingThreshold) {
			shippingCost = decimal.Zero
		} else {
			shippingCost, err = settings.Shipping.Calculate(in.Country, in.Weight, in.MethodID)
			if err != nil {
				return Quote{}, err
			}
		}
	}

	taxable := summary.Total
	if row, ok := settings.Tax.Resolve(in.Country, in.State); ok && row.ApplyToShipping {
		taxable = taxable.Add(shippingCost)
	}
	taxAmount := settings.Tax.Calculate(taxable, in.Country, in.State)

	return Quote{
		Summary:  summary,
		Shipping: shippingCost,
		Tax:      taxAmount,
		Payable:  summary.Total.Add(taxAmount).Add(shippingCost),
		Currency: settings.Currency.Primary,
	}, nil
}

// Commit performs the single mutating step of an order: debit the applied
// gift card for the quoted amount and settle the applied promo, both keyed
// by the order ID. The gift card debit runs first because it is the step
// that can fail; a promo settle after a failed debit would be wrong.
func (s *Service) Commit(ctx context.Context, in CommitInput) (CommitResult, error) {
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return CommitResult{}, ErrOrderIDRequired
	}
	if s.Lock != nil {
		var result CommitResult
		err := s.Lock.WithLock(ctx, "commit:"+orderID, 30*time.Second, func(ctx context.Context) error {
			var err error
			result, err = s.commit(ctx, orderID, in)
			return err
		})
		return result, err
	}
	return s.commit(ctx, orderID, in)
}

func (s *Service) commit(ctx context.Context, orderID string, in CommitInput) (CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	commits, err := s.loadCommits(ctx)
	if err != nil {
		return CommitResult{}, err
	}
	if prev, done := commits.Orders[orderID]; done {
		s.Log.Info().Str("order_id", orderID).Msg("commit replayed")
		return prev, nil
	}

	settings, err := s.Commerce.Load(ctx)
	if err != nil {
		return CommitResult{}, err
	}
	summary, err := s.aggregator(settings.FreeShippingThreshold).Quote(ctx, in.Subtotal)
	if err != nil {
		return CommitResult{}, err
	}

	result := CommitResult{OrderID: orderID, Summary: summary}

	if summary.GiftCardDiscount.Sign() > 0 {
		applied, err := s.Cards.Applied(ctx)
		if err != nil {
			return CommitResult{}, err
		}
		if applied == nil {
			return CommitResult{}, ErrGiftCardConflict
		}
		ok, err := s.Cards.Redeem(ctx, applied.Code, summary.GiftCardDiscount, orderID)
		if err != nil {
			return CommitResult{}, err
		}
		if !ok {
			return CommitResult{}, ErrGiftCardConflict
		}
		result.GiftCardDebited = true
	}

	if summary.PromoDiscount.Sign() > 0 {
		applied, err := s.Promos.Applied(ctx)
		if err != nil {
			return CommitResult{}, err
		}
		if applied != nil {
			if err := s.Promos.Settle(ctx, applied.Code, orderID); err != nil {
				return CommitResult{}, err
			}
			result.PromoSettled = true
		}
	}

	commits.Orders[orderID] = result
	if err := store.SaveJSON(ctx, s.Store, store.KeyCommitRecords, commits); err != nil {
		return CommitResult{}, err
	}

	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicCheckoutCommitted, map[string]any{
			"orderId":          orderID,
			"total":            summary.Total.String(),
			"promoDiscount":    summary.PromoDiscount.String(),
			"giftCardDiscount": summary.GiftCardDiscount.String(),
		})
	}
	s.Log.Info().Str("order_id", orderID).Str("total", summary.Total.StringFixed(2)).Msg("checkout committed")
	return result, nil
}

// Helper for validation of a gift card redemption at the UI boundary; the
// engine re-checks everything at Commit regardless.
func (s *Service) CanCover(ctx context.Context, code string, amount decimal.Decimal) (bool, error) {
	balance, err := s.Cards.Balance(ctx, code)
	if err != nil {
		return false, err
	}
	if balance == nil {
		return false, nil
	}
	return balance.GreaterThanOrEqual(amount), nil
}
