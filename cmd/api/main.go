package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agentic-checkout/config"
	staticCatalog "agentic-checkout/internal/adapter/catalog/static"
	httpHandler "agentic-checkout/internal/adapter/http/handler"
	pspStripe "agentic-checkout/internal/adapter/psp/stripe"
	memStorage "agentic-checkout/internal/adapter/storage/memory"
	pgStorage "agentic-checkout/internal/adapter/storage/postgres"
	redisStorage "agentic-checkout/internal/adapter/storage/redis"
	"agentic-checkout/internal/core/domain"
	"agentic-checkout/internal/core/ports"
	"agentic-checkout/internal/service"
	"agentic-checkout/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("kv_backend", cfg.KV.Backend).
		Int("port", cfg.Server.Port).
		Msg("Starting agentic checkout server")

	ctx := context.Background()

	// Initialize the KV backend holding sessions and idempotency records.
	var (
		kv             ports.KVStore
		rateLimitStore *redisStorage.RateLimitStore
		healthCheckers []ports.HealthChecker
		closeBackend   func()
	)
	switch cfg.KV.Backend {
	case "redis":
		rdb, err := redisStorage.NewClient(ctx, cfg.KV.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		closeBackend = func() { rdb.Close() }
		kv = redisStorage.NewKVStore(rdb)
		if cfg.RateLimit.Enabled {
			rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		}
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	case "postgres":
		pool, err := pgStorage.NewPool(ctx, cfg.KV.Postgres, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		closeBackend = pool.Close
		store := pgStorage.NewKVStore(pool)
		if err := store.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate KV table")
		}
		kv = store
		healthCheckers = append(healthCheckers, pgStorage.NewHealthCheck(pool))
	default:
		log.Warn().Msg("Using in-memory KV store; sessions will not survive restarts")
		kv = memStorage.NewKVStore()
		closeBackend = func() {}
	}
	defer closeBackend()

	// Core services
	sessionStore := service.NewSessionStore(kv, cfg.Session.TTL)
	guard := service.NewIdempotencyGuard(kv, cfg.Idempotency.TTL, log)
	sigSvc := service.NewHMACSignatureService(cfg.Signature.Tolerance)

	webhookSink := service.NewWebhookSender(
		cfg.Webhook.URL,
		cfg.Merchant.Name,
		[]byte(cfg.Webhook.Secret),
		sigSvc,
		&http.Client{},
		cfg.Webhook.Timeout,
		log,
	)

	// Inbound auth scheme
	var authVerifier ports.AuthVerifier
	switch cfg.Auth.Mode {
	case "jwt":
		authVerifier = service.NewJWTVerifier(cfg.Auth.JWTSecret)
	case "none":
		log.Warn().Msg("Authentication disabled; do not run this in production")
		authVerifier = service.NoopVerifier{}
	default:
		authVerifier = service.NewStaticTokenVerifier(cfg.Auth.BearerToken)
	}

	// Catalog and PSP adapters
	catalog := demoCatalog()
	psp := pspStripe.New(cfg.Stripe.APIKey)

	checkoutSvc := service.NewCheckoutService(sessionStore, catalog, psp, webhookSink, guard, log)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		CheckoutSvc:     checkoutSvc,
		AuthVerifier:    authVerifier,
		SigSvc:          sigSvc,
		SignatureSecret: []byte(cfg.Signature.Secret),
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  healthCheckers,
		APIVersion:      cfg.API.Version,
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// demoCatalog is the built-in product set used until a merchant feed adapter
// is wired in. TODO: replace with a feed-backed catalog adapter once the
// product feed service is deployed.
func demoCatalog() *staticCatalog.Catalog {
	usd := func(amount int64) domain.Money {
		return domain.Money{Amount: amount, Currency: "usd"}
	}
	products := map[string]staticCatalog.Product{
		"item_tshirt": {Title: "Logo T-Shirt", UnitPrice: usd(2000), SKU: "TS-01"},
		"item_hoodie": {Title: "Zip Hoodie", UnitPrice: usd(5500), SKU: "HD-01"},
		"item_mug":    {Title: "Ceramic Mug", UnitPrice: usd(1200), SKU: "MG-01"},
	}
	fulfillment := []domain.FulfillmentChoice{
		{ID: "standard", Label: "Standard Shipping (5-7 days)", Price: usd(500)},
		{ID: "express", Label: "Express Shipping (1-2 days)", Price: usd(1500)},
	}
	return staticCatalog.New(products, "usd", 875, fulfillment)
}
