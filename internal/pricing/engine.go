package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/khc-home/storefront/internal/giftcard"
	"github.com/khc-home/storefront/internal/promo"
)

// Summary aggregates the cart-level pricing components. Tax and shipping
// are deliberately absent: they belong to the later checkout phase, so the
// cart total is pre-tax by design.
type Summary struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	PromoDiscount    decimal.Decimal `json:"promoDiscount"`
	GiftCardDiscount decimal.Decimal `json:"giftCardDiscount"`
	Total            decimal.Decimal `json:"total"`

	// Free-shipping progress is informational and computed against the
	// promo-discounted amount only; spending a gift card never costs the
	// shopper free-shipping eligibility.
	FreeShippingRemaining decimal.Decimal `json:"freeShippingRemaining"`
	FreeShippingProgress  decimal.Decimal `json:"freeShippingProgress"`
}

// Compute applies the fixed discount precedence: promo first, then the
// gift card bounded by the remaining total, with the result clamped at
// zero. Pure; callers supply already-resolved amounts.
func Compute(subtotal, promoDiscount, giftCardBalance, freeShippingThreshold decimal.Decimal) Summary {
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}
	if promoDiscount.GreaterThan(subtotal) {
		promoDiscount = subtotal
	}
	if promoDiscount.IsNegative() {
		promoDiscount = decimal.Zero
	}

	afterPromo := subtotal.Sub(promoDiscount)

	giftCardDiscount := decimal.Min(giftCardBalance, afterPromo)
	if giftCardDiscount.IsNegative() {
		giftCardDiscount = decimal.Zero
	}

	total := afterPromo.Sub(giftCardDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	s := Summary{
		Subtotal:         subtotal,
		PromoDiscount:    promoDiscount,
		GiftCardDiscount: giftCardDiscount,
		Total:            total,
	}

	if freeShippingThreshold.Sign() > 0 {
		s.FreeShippingRemaining = decimal.Max(decimal.Zero, freeShippingThreshold.Sub(afterPromo))
		progress := afterPromo.Div(freeShippingThreshold).Mul(decimal.NewFromInt(100))
		s.FreeShippingProgress = decimal.Min(decimal.NewFromInt(100), progress)
	}
	return s
}

// Aggregator composes the promo registry and gift card ledger into the
// total shown to the shopper. It only reads; neither table is mutated here.
type Aggregator struct {
	Promos                *promo.Registry
	Cards                 *giftcard.Ledger
	FreeShippingThreshold decimal.Decimal
}

// Quote resolves the applied promo and gift card and computes the summary
// for the given external cart subtotal.
func (a Aggregator) Quote(ctx context.Context, subtotal decimal.Decimal) (Summary, error) {
	promoDiscount := decimal.Zero
	if a.Promos != nil {
		d, err := a.Promos.CalculateDiscount(ctx, subtotal)
		if err != nil {
			return Summary{}, err
		}
		promoDiscount = d
	}
	giftBalance := decimal.Zero
	if a.Cards != nil {
		applied, err := a.Cards.Applied(ctx)
		if err != nil {
			return Summary{}, err
		}
		if applied != nil {
			giftBalance = applied.Balance
		}
	}
	return Compute(subtotal, promoDiscount, giftBalance, a.FreeShippingThreshold), nil
}
