package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PromoValidateTotal counts promo code validation outcomes.
	PromoValidateTotal *prometheus.CounterVec
	// PromoSettleTotal counts promo usage settlements at checkout.
	PromoSettleTotal *prometheus.CounterVec
	// GiftCardPurchaseTotal counts gift card purchase outcomes.
	GiftCardPurchaseTotal *prometheus.CounterVec
	// GiftCardRedeemTotal counts gift card redemption outcomes.
	GiftCardRedeemTotal *prometheus.CounterVec
	// CheckoutCommitTotal counts checkout commit outcomes.
	CheckoutCommitTotal *prometheus.CounterVec
	// QuoteDuration records pricing quote computation latency in milliseconds.
	QuoteDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PromoValidateTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "promo_validate_total",
			Help:      "Count of promo code validation outcomes.",
		}, []string{"result"})
		PromoSettleTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "promo_settle_total",
			Help:      "Count of promo usage settlements by outcome.",
		}, []string{"result"})
		GiftCardPurchaseTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "giftcard_purchase_total",
			Help:      "Count of gift card purchase outcomes.",
		}, []string{"result"})
		GiftCardRedeemTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "giftcard_redeem_total",
			Help:      "Count of gift card redemption outcomes.",
		}, []string{"result"})
		CheckoutCommitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "checkout_commit_total",
			Help:      "Count of checkout commit outcomes.",
		}, []string{"result"})
		QuoteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "quote_duration_ms",
			Help:      "Latency of order quote computation in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		})

		mustRegisterCollector(reg, PromoValidateTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromoValidateTotal = v
			}
		})
		mustRegisterCollector(reg, PromoSettleTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromoSettleTotal = v
			}
		})
		mustRegisterCollector(reg, GiftCardPurchaseTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				GiftCardPurchaseTotal = v
			}
		})
		mustRegisterCollector(reg, GiftCardRedeemTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				GiftCardRedeemTotal = v
			}
		})
		mustRegisterCollector(reg, CheckoutCommitTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutCommitTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				QuoteDuration = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
