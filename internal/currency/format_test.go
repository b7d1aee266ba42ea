package currency

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatDefaultUSD(t *testing.T) {
	f := Formatter{Config: DefaultConfig()}
	got := f.Format(decimal.NewFromFloat(1234.5), "USD")
	if got != "$1,234.50" {
		t.Fatalf("expected $1,234.50, got %s", got)
	}
}

func TestFormatLargeAmount(t *testing.T) {
	f := Formatter{Config: DefaultConfig()}
	got := f.Format(decimal.NewFromInt(1234567), "")
	if got != "$1,234,567.00" {
		t.Fatalf("expected $1,234,567.00, got %s", got)
	}
}

func TestFormatEuropeanSeparators(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Primary = "EUR"
	cfg.Display.DecimalSeparator = ","
	cfg.Display.ThousandsSeparator = "."
	cfg.Display.SymbolPosition = "after"
	f := Formatter{Config: cfg}
	got := f.Format(decimal.NewFromFloat(9876.54), "")
	if got != "9.876,54€" {
		t.Fatalf("expected 9.876,54€, got %s", got)
	}
}

func TestFormatZeroDecimals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Display.Decimals = 0
	f := Formatter{Config: cfg}
	got := f.Format(decimal.NewFromFloat(1500.75), "JPY")
	if got != "¥1,501" {
		t.Fatalf("expected ¥1,501, got %s", got)
	}
}

func TestFormatUnknownCurrencyFallsBackToCode(t *testing.T) {
	f := Formatter{Config: DefaultConfig()}
	got := f.Format(decimal.NewFromInt(10), "XTS")
	if got != "XTS10.00" {
		t.Fatalf("expected XTS10.00, got %s", got)
	}
}

func TestFormatNegative(t *testing.T) {
	f := Formatter{Config: DefaultConfig()}
	got := f.Format(decimal.NewFromFloat(-1234.5), "USD")
	if got != "$-1,234.50" {
		t.Fatalf("expected $-1,234.50, got %s", got)
	}
}
