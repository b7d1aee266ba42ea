package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/khc-home/storefront/internal/checkout"
	"github.com/khc-home/storefront/internal/commerce"
	"github.com/khc-home/storefront/internal/common"
	"github.com/khc-home/storefront/internal/config"
	"github.com/khc-home/storefront/internal/events"
	"github.com/khc-home/storefront/internal/giftcard"
	"github.com/khc-home/storefront/internal/health"
	"github.com/khc-home/storefront/internal/lock"
	"github.com/khc-home/storefront/internal/obs"
	"github.com/khc-home/storefront/internal/payment"
	"github.com/khc-home/storefront/internal/promo"
	"github.com/khc-home/storefront/internal/ratelimit"
	"github.com/khc-home/storefront/internal/security"
	"github.com/khc-home/storefront/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	obs.MustRegisterDomainMetrics(nil)

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			Endpoint:      cfg.TracingEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url")
		}
		redisClient = redis.NewClient(redisOpts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("ping redis")
		}
	}

	adapter, pool, err := buildStore(ctx, cfg, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise store backend")
	}
	if pool != nil {
		defer pool.Close()
	}
	logger.Info().Str("backend", cfg.StoreBackend).Msg("store backend ready")

	bus := &events.Bus{
		Notifiers: []events.Notifier{events.LogNotifier{Logger: logger}},
		Log:       logger,
	}

	promoRegistry := &promo.Registry{Store: adapter, Log: logger}
	cardLedger := &giftcard.Ledger{Store: adapter, Log: logger}
	commerceSvc := &commerce.Service{Store: adapter, Log: logger}
	paymentStore := &payment.Store{Adapter: adapter, Log: logger}

	checkoutSvc := &checkout.Service{
		Promos:   promoRegistry,
		Cards:    cardLedger,
		Commerce: commerceSvc,
		Events:   bus,
		Store:    adapter,
		Log:      logger,
	}
	if redisClient != nil {
		checkoutSvc.Lock = &lock.Locker{Client: redisClient}
	}

	promoHandler := &promo.Handler{Registry: promoRegistry}
	giftcardHandler := &giftcard.Handler{
		Ledger:    cardLedger,
		Validator: validator.New(),
		Email:     common.NopEmailSender{},
		Events:    bus,
		MinAmount: cfg.GiftCardMinAmount,
		MaxAmount: cfg.GiftCardMaxAmount,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}
	commerceHandler := &commerce.Handler{Svc: commerceSvc}
	paymentHandler := &payment.Handler{Store: paymentStore}

	idem := common.Idem{Client: redisClient, TTL: cfg.IdempotencyTTL}

	httpMetrics := obs.NewHTTPMetrics(nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{HSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug/pprof", newPprofMux())
	}

	healthHandler := health.Handler{
		Checker: health.Probe{Store: adapter, Redis: redisClient},
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	var validateLimiter func(http.Handler) http.Handler
	if cfg.RateLimitEnabled && redisClient != nil {
		limiter := ratelimit.Handler{
			Client:    redisClient,
			PerMinute: cfg.RateLimitPerMinute,
			OnError: func(err error) {
				logger.Error().Err(err).Msg("rate limiter unavailable")
			},
		}
		validateLimiter = limiter.Middleware
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/promos", func(p chi.Router) {
			p.With(maybe(validateLimiter)).Post("/validate", promoHandler.Validate)
			p.Post("/apply", promoHandler.Apply)
			p.Get("/applied", promoHandler.Applied)
			p.Delete("/applied", promoHandler.RemoveApplied)
			p.Get("/active", promoHandler.Active)
		})

		v.Route("/giftcards", func(g chi.Router) {
			g.With(idem.Middleware).Post("/", giftcardHandler.Purchase)
			g.With(maybe(validateLimiter)).Post("/validate", giftcardHandler.Validate)
			g.Post("/apply", giftcardHandler.Apply)
			g.Get("/applied", giftcardHandler.Applied)
			g.Delete("/applied", giftcardHandler.RemoveApplied)
			g.Get("/{code}/balance", giftcardHandler.Balance)
		})

		v.Post("/quote", checkoutHandler.CartQuote)
		v.Route("/checkout", func(c chi.Router) {
			c.Post("/quote", checkoutHandler.Quote)
			c.With(idem.Middleware).Post("/commit", checkoutHandler.Commit)
		})

		v.Route("/config", func(c chi.Router) {
			c.Get("/currency", commerceHandler.GetCurrency)
			c.Put("/currency", commerceHandler.PutCurrency)
			c.Get("/payment-providers", paymentHandler.Get)
			c.Put("/payment-providers", paymentHandler.Put)
		})

		v.Post("/format-price", commerceHandler.FormatPrice)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop, stopCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopCancel()
	<-stop.Done()

	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

func buildStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger zerolog.Logger) (store.Adapter, *pgxpool.Pool, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return store.NewMemory(), nil, nil
	case config.BackendFile:
		if err := os.MkdirAll(cfg.StoreDir, 0o755); err != nil {
			return nil, nil, err
		}
		return store.File{Dir: cfg.StoreDir}, nil, nil
	case config.BackendRedis:
		if redisClient == nil {
			return nil, nil, errors.New("redis backend selected but no redis client")
		}
		return store.Redis{Client: redisClient}, nil, nil
	case config.BackendPostgres:
		poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		poolConfig.ConnConfig.Tracer = store.QueryTracer{}
		if poolConfig.ConnConfig.RuntimeParams == nil {
			poolConfig.ConnConfig.RuntimeParams = map[string]string{}
		}
		poolConfig.ConnConfig.RuntimeParams["application_name"] = "storefront-api"
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		pg := store.Postgres{Pool: pool}
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Msg("postgres schema ready")
		return pg, pool, nil
	default:
		return nil, nil, errors.New("unknown store backend " + cfg.StoreBackend)
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

// maybe turns a nil middleware into a no-op so routes can be declared once.
func maybe(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw != nil {
		return mw
	}
	return func(next http.Handler) http.Handler { return next }
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}
