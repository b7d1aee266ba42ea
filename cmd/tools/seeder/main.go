package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/khc-home/storefront/internal/commerce"
	"github.com/khc-home/storefront/internal/config"
	"github.com/khc-home/storefront/internal/currency"
	"github.com/khc-home/storefront/internal/promo"
	"github.com/khc-home/storefront/internal/shipping"
	"github.com/khc-home/storefront/internal/store"
	"github.com/khc-home/storefront/internal/tax"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adapter, cleanup, err := buildAdapter(ctx, cfg)
	if err != nil {
		log.Fatalf("initialise store backend: %v", err)
	}
	defer cleanup()

	log.Printf("Seeding backend %q...", cfg.StoreBackend)
	seedPromos(ctx, adapter)
	seedCommerce(ctx, adapter)
	log.Println("Seeding completed successfully!")
}

func buildAdapter(ctx context.Context, cfg *config.Config) (store.Adapter, func(), error) {
	nop := func() {}
	switch cfg.StoreBackend {
	case config.BackendFile:
		if err := os.MkdirAll(cfg.StoreDir, 0o755); err != nil {
			return nil, nop, err
		}
		return store.File{Dir: cfg.StoreDir}, nop, nil
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nop, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nop, err
		}
		return store.Redis{Client: client}, func() { _ = client.Close() }, nil
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nop, err
		}
		pg := store.Postgres{Pool: pool}
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nop, err
		}
		return pg, pool.Close, nil
	case config.BackendMemory:
		return nil, nop, errors.New("memory backend has nothing to seed, pick file, redis or postgres")
	default:
		return nil, nop, errors.New("unknown store backend " + cfg.StoreBackend)
	}
}

func seedPromos(ctx context.Context, adapter store.Adapter) {
	registry := &promo.Registry{Store: adapter, Log: zerolog.Nop()}

	year := time.Now().AddDate(1, 0, 0)
	codes := []promo.Code{
		{
			Code:        "SAVE20",
			Type:        promo.Percentage,
			Value:       decimal.NewFromInt(20),
			MinPurchase: decimal.NewFromInt(100),
			ExpiresAt:   &year,
			UsageLimit:  1000,
			Active:      true,
			Description: "20% off orders over $100",
		},
		{
			Code:        "WELCOME10",
			Type:        promo.Fixed,
			Value:       decimal.NewFromInt(10),
			ExpiresAt:   &year,
			UsageLimit:  5000,
			Active:      true,
			Description: "$10 off your first order",
		},
		{
			Code:        "FREESHIP",
			Type:        promo.Fixed,
			Value:       decimal.NewFromFloat(5.99),
			MinPurchase: decimal.NewFromInt(50),
			ExpiresAt:   &year,
			UsageLimit:  2000,
			Active:      true,
			Description: "Shipping on us for orders over $50",
		},
	}

	log.Println("Seeding promo codes...")
	for _, code := range codes {
		if err := registry.Upsert(ctx, code); err != nil {
			log.Fatalf("seed promo %s: %v", code.Code, err)
		}
	}
}

func seedCommerce(ctx context.Context, adapter store.Adapter) {
	svc := &commerce.Service{Store: adapter, Log: zerolog.Nop()}

	settings := commerce.Settings{
		Tax: tax.Calculator{
			Enabled: true,
			Rates: []tax.Rate{
				{ID: "us-ca", Name: "California Sales Tax", Rate: decimal.NewFromFloat(7.25), Country: "US", State: "CA"},
				{ID: "us-ny", Name: "New York Sales Tax", Rate: decimal.NewFromFloat(8.875), Country: "US", State: "NY"},
				{ID: "us", Name: "US Base Rate", Rate: decimal.NewFromInt(10), Country: "US"},
				{ID: "de", Name: "Germany VAT", Rate: decimal.NewFromInt(19), Country: "DE", ApplyToShipping: true},
			},
			DefaultRate: decimal.NewFromInt(5),
		},
		Shipping: shipping.Resolver{
			Enabled: true,
			Zones: []shipping.Zone{
				{
					ID:        "domestic",
					Name:      "United States",
					Countries: []string{"US"},
					Methods: []shipping.Method{
						{ID: "standard", Name: "Standard", Price: decimal.NewFromFloat(5.99), Enabled: true, Days: shipping.EstimatedDays{Min: 3, Max: 7}},
						{ID: "express", Name: "Express", Price: decimal.NewFromFloat(14.99), Enabled: true, Days: shipping.EstimatedDays{Min: 1, Max: 2}},
					},
				},
				{
					ID:        "worldwide",
					Name:      "Rest of World",
					Countries: []string{shipping.Wildcard},
					Methods: []shipping.Method{
						{ID: "intl-standard", Name: "International Standard", Price: decimal.NewFromFloat(19.99), Enabled: true, Days: shipping.EstimatedDays{Min: 7, Max: 21}},
					},
				},
			},
		},
		Currency: currency.Config{
			Primary:   "USD",
			Supported: []string{"USD", "EUR", "GBP"},
			Display: currency.DisplayFormat{
				SymbolPosition:     "before",
				DecimalSeparator:   ".",
				ThousandsSeparator: ",",
				Decimals:           2,
			},
		},
		FreeShippingThreshold: decimal.NewFromInt(75),
	}

	log.Println("Seeding commerce settings...")
	if err := svc.Save(ctx, settings); err != nil {
		log.Fatalf("seed commerce settings: %v", err)
	}
}
