package payment_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/khc-home/storefront/internal/payment"
	"github.com/khc-home/storefront/internal/store"
)

func TestPutThenGet(t *testing.T) {
	ctx := context.Background()
	s := &payment.Store{Adapter: store.NewMemory(), Log: zerolog.Nop()}

	_, err := s.Put(ctx, payment.Providers{
		Active:   "midtrans",
		Midtrans: payment.MidtransConfig{ServerKey: "sk-live", ClientKey: "ck-live", Sandbox: true},
	})
	require.NoError(t, err)

	got, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "midtrans", got.Active)
	require.Equal(t, "sk-live", got.Midtrans.ServerKey)
}

func TestRedactedMasksSecretsOnly(t *testing.T) {
	p := payment.Providers{
		Active:   "stripe",
		Midtrans: payment.MidtransConfig{ServerKey: "sk", ClientKey: "ck"},
		Stripe:   payment.StripeConfig{SecretKey: "secret", PublishableKey: "pub"},
	}
	r := p.Redacted()
	require.Equal(t, "********", r.Midtrans.ServerKey)
	require.Equal(t, "ck", r.Midtrans.ClientKey)
	require.Equal(t, "********", r.Stripe.SecretKey)
	require.Equal(t, "pub", r.Stripe.PublishableKey)
}

func TestPutKeepsSecretWhenMasked(t *testing.T) {
	ctx := context.Background()
	s := &payment.Store{Adapter: store.NewMemory(), Log: zerolog.Nop()}

	_, err := s.Put(ctx, payment.Providers{Xendit: payment.XenditConfig{SecretKey: "original"}})
	require.NoError(t, err)

	// round-trip a redacted GET payload
	_, err = s.Put(ctx, payment.Providers{Active: "xendit", Xendit: payment.XenditConfig{SecretKey: "********"}})
	require.NoError(t, err)

	got, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "original", got.Xendit.SecretKey)
	require.Equal(t, "xendit", got.Active)
}
