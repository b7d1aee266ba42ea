package promo

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInactive is returned when the code has been switched off.
	ErrInactive = errors.New("promo code not active")
	// ErrExpired is returned when the code's expiry instant has passed.
	ErrExpired = errors.New("promo code expired")
	// ErrUsageLimitReached indicates the code has exhausted its usage quota.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
	// ErrMinPurchaseUnmet indicates the cart total is below the code's minimum.
	ErrMinPurchaseUnmet = errors.New("promo code minimum purchase not met")
)

// DiscountType discriminates how a code's value is interpreted.
type DiscountType string

const (
	Percentage DiscountType = "percentage"
	Fixed      DiscountType = "fixed"
)

// Code is a single promo code row. TimesUsed never exceeds UsageLimit and
// is only ever advanced by Registry.Settle.
type Code struct {
	Code        string          `json:"code"`
	Type        DiscountType    `json:"discountType"`
	Value       decimal.Decimal `json:"value"`
	MinPurchase decimal.Decimal `json:"minPurchase"`
	ExpiresAt   *time.Time      `json:"expiryDate,omitempty"`
	UsageLimit  int             `json:"usageLimit"`
	TimesUsed   int             `json:"timesUsed"`
	Active      bool            `json:"active"`
	Description string          `json:"description,omitempty"`
}

// Check validates the code against the given instant and cart total.
// Checks run in a fixed order and the first failure wins.
func (c Code) Check(now time.Time, cartTotal decimal.Decimal) error {
	if !c.Active {
		return ErrInactive
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrExpired
	}
	if c.UsageLimit > 0 && c.TimesUsed >= c.UsageLimit {
		return ErrUsageLimitReached
	}
	if cartTotal.LessThan(c.MinPurchase) {
		return ErrMinPurchaseUnmet
	}
	return nil
}

// Discount computes the discount for a cart total. The result never
// exceeds the total and never goes negative.
func (c Code) Discount(cartTotal decimal.Decimal) decimal.Decimal {
	if cartTotal.Sign() <= 0 {
		return decimal.Zero
	}
	var discount decimal.Decimal
	switch c.Type {
	case Percentage:
		discount = cartTotal.Mul(c.Value).Div(decimal.NewFromInt(100))
	case Fixed:
		discount = c.Value
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(cartTotal) {
		discount = cartTotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

// Savings renders the human-readable savings line shown on success.
func (c Code) Savings() string {
	if c.Type == Percentage {
		return "save " + c.Value.String() + "% on your order"
	}
	return "save " + c.Value.StringFixed(2) + " on your order"
}

// Normalize canonicalises shopper input: codes are case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
