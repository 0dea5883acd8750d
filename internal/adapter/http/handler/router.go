package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	ReconSvc       ports.ReconciliationService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep, verifies PostgreSQL + Redis)
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

	// All API routes require an authenticated principal.
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	v1 := r.Group("/api/v1", jwtAuth)

	walletHandler := NewWalletHandler(deps.LedgerSvc)
	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	reconHandler := NewReconciliationHandler(deps.ReconSvc)

	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl("wallets"), walletHandler.CreateWallet)
		wallets.GET("/:wallet_id/transactions", rl("queries"), walletHandler.ListTransactions)
	}

	v1.GET("/balances", rl("queries"), walletHandler.GetBalances)

	transactions := v1.Group("/transactions")
	{
		transactions.POST("", rl("transactions"), ledgerHandler.CreateTransaction)
	}

	transfers := v1.Group("/transfers")
	{
		transfers.POST("", rl("transfers"), ledgerHandler.Transfer)
	}

	reconciliation := v1.Group("/reconciliation")
	{
		reconciliation.POST("/run", rl("reconciliation"), reconHandler.Run)
		reconciliation.POST("/wallets/:wallet_id", rl("reconciliation"), reconHandler.EmergencyFix)
	}

	return r
}
