package handler

import (
	"agentic-checkout/internal/adapter/http/middleware"
	redisStore "agentic-checkout/internal/adapter/storage/redis"
	"agentic-checkout/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	CheckoutSvc     ports.CheckoutService
	AuthVerifier    ports.AuthVerifier
	SigSvc          ports.SignatureService
	SignatureSecret []byte                     // empty = inbound signature check disabled
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	APIVersion      string
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit
	r.Use(middleware.RequestContext(deps.APIVersion))

	// Health check (deep — verifies the configured KV backend)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	checkoutHandler := NewCheckoutHandler(deps.CheckoutSvc)

	sessions := r.Group("/checkout_sessions",
		middleware.BearerAuth(deps.AuthVerifier),
		middleware.SignatureVerify(deps.SigSvc, deps.SignatureSecret),
	)
	{
		sessions.POST("", rl("checkout_write"), checkoutHandler.Create)
		sessions.GET("/:id", rl("checkout_read"), checkoutHandler.Get)
		sessions.POST("/:id", rl("checkout_write"), checkoutHandler.Update)
		sessions.POST("/:id/complete", rl("checkout_write"), checkoutHandler.Complete)
		sessions.POST("/:id/cancel", rl("checkout_write"), checkoutHandler.Cancel)
	}

	return r
}
