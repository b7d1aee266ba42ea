package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayFormat controls how a monetary amount is rendered.
type DisplayFormat struct {
	SymbolPosition     string `json:"symbolPosition"` // "before" or "after"
	DecimalSeparator   string `json:"decimalSeparator"`
	ThousandsSeparator string `json:"thousandsSeparator"`
	Decimals           int    `json:"decimals"`
}

// Config describes the store's currency setup. ConversionRates are carried
// for informational display only and are never applied to amounts.
type Config struct {
	Primary         string                     `json:"primary"`
	Supported       []string                   `json:"supported"`
	ConversionRates map[string]decimal.Decimal `json:"conversionRates,omitempty"`
	Display         DisplayFormat              `json:"displayFormat"`
}

// DefaultConfig returns the USD setup used when no commerce config is stored.
func DefaultConfig() Config {
	return Config{
		Primary:   "USD",
		Supported: []string{"USD"},
		Display: DisplayFormat{
			SymbolPosition:     "before",
			DecimalSeparator:   ".",
			ThousandsSeparator: ",",
			Decimals:           2,
		},
	}
}

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"AUD": "A$",
	"CAD": "C$",
	"IDR": "Rp",
	"INR": "₹",
	"KRW": "₩",
}

// Symbol returns the display symbol for a currency code, falling back to
// the code itself when unknown.
func Symbol(code string) string {
	if sym, ok := symbols[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return sym
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// Formatter renders amounts according to a Config. It is a pure value type.
type Formatter struct {
	Config Config
}

// Format renders amount in the given currency, or the primary currency when
// code is empty.
func (f Formatter) Format(amount decimal.Decimal, code string) string {
	display := f.Config.Display
	if display.DecimalSeparator == "" {
		display.DecimalSeparator = "."
	}
	if display.SymbolPosition == "" {
		display.SymbolPosition = "before"
	}
	if code == "" {
		code = f.Config.Primary
	}

	negative := amount.IsNegative()
	fixed := amount.Abs().StringFixed(int32(display.Decimals))

	intPart := fixed
	fracPart := ""
	if idx := strings.IndexByte(fixed, '.'); idx >= 0 {
		intPart, fracPart = fixed[:idx], fixed[idx+1:]
	}

	number := groupDigits(intPart, display.ThousandsSeparator)
	if fracPart != "" {
		number += display.DecimalSeparator + fracPart
	}
	if negative {
		number = "-" + number
	}

	if display.SymbolPosition == "after" {
		return number + Symbol(code)
	}
	return Symbol(code) + number
}

// groupDigits inserts sep between every three digits of the integer part.
func groupDigits(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
