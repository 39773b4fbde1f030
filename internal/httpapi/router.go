// Package httpapi implements the HTTP surface described by the external
// interfaces: a gin router exposing LNURL-pay/NIP-05 public endpoints plus
// the authenticated /v1 wallet API.
package httpapi

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/numeraire/swissknife-go/internal/auth"
	"github.com/numeraire/swissknife-go/internal/btc"
	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/invoicesvc"
	"github.com/numeraire/swissknife-go/internal/lnaddresssvc"
	"github.com/numeraire/swissknife-go/internal/lnurl"
	"github.com/numeraire/swissknife-go/internal/logger"
	"github.com/numeraire/swissknife-go/internal/nostrsvc"
	"github.com/numeraire/swissknife-go/internal/paymentsvc"
	"github.com/numeraire/swissknife-go/internal/store"
	"github.com/numeraire/swissknife-go/internal/systemsvc"
	"github.com/numeraire/swissknife-go/internal/walletsvc"
)

// Deps wires every service the router dispatches into.
type Deps struct {
	Config      config.ServerConfig
	RateLimit   config.RateLimitConfig
	Monitoring  config.MonitoringConfig
	Logger      *logger.Logger
	Auth        *auth.Service
	Invoices    *invoicesvc.Service
	Payments    *paymentsvc.Service
	LnAddresses *lnaddresssvc.Service
	Nostr       *nostrsvc.Service
	Wallets     *walletsvc.Service
	System      *systemsvc.Service
	LnUrl       *lnurl.Service // nil if this deployment serves no ln_address domain
	BtcWallet   btc.Wallet     // nil if this deployment runs Lightning-only
	Network     string         // bitcoin network label surfaced by NodeInfo
}

// NewRouter builds the gin engine: global middleware, public LNURL/NIP-05/
// health endpoints, then the authenticated /v1 API.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(d.Logger))
	router.Use(requestTimeoutMiddleware(d.Config))
	router.Use(metricsMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "api-key", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))
	router.Use(rateLimitMiddleware(d.RateLimit))

	h := newHandlers(d)

	router.GET("/.well-known/lnurlp/:username", h.lnurlp)
	router.GET("/lnurlp/:username/callback", h.lnurlpCallback)
	router.GET("/.well-known/nostr.json", h.nostrJSON)

	router.POST("/v1/auth/sign-in", h.signIn)

	router.GET("/v1/system/health", h.health)
	router.GET("/v1/system/ready", h.ready)
	router.GET("/v1/system/version", h.version)

	if d.Monitoring.Enabled {
		path := d.Monitoring.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/v1")
	v1.Use(requireAuth(d.Auth))
	{
		v1.GET("/me", h.me)
		v1.GET("/wallets/:id", h.getWallet)
		v1.GET("/wallets/:id/onchain", h.listOnchainTransactions)

		v1.GET("/lightning-node/info", requirePermission(store.PermissionFullAccess), h.nodeInfo)

		invoices := v1.Group("/invoices")
		{
			invoices.POST("", requirePermission(store.PermissionWriteTransactions), h.createInvoice)
			invoices.GET("", requirePermission(store.PermissionReadTransactions), h.listInvoices)
			invoices.GET("/:id", requirePermission(store.PermissionReadTransactions), h.getInvoice)
			invoices.DELETE("/:id", requirePermission(store.PermissionWriteTransactions), h.deleteInvoice)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("", requirePermission(store.PermissionWriteTransactions), h.sendPayment)
			payments.GET("", requirePermission(store.PermissionReadTransactions), h.listPayments)
			payments.GET("/:id", requirePermission(store.PermissionReadTransactions), h.getPayment)
			payments.DELETE("/:id", requirePermission(store.PermissionWriteTransactions), h.deletePayment)
		}

		lnAddrs := v1.Group("/ln-addresses")
		{
			lnAddrs.POST("", requirePermission(store.PermissionWriteLnAddress), h.registerLnAddress)
			lnAddrs.GET("", requirePermission(store.PermissionReadLnAddress), h.listLnAddresses)
			lnAddrs.GET("/:id", requirePermission(store.PermissionReadLnAddress), h.getLnAddress)
			lnAddrs.DELETE("/:id", requirePermission(store.PermissionWriteLnAddress), h.deleteLnAddress)
		}

		apiKeys := v1.Group("/api-keys")
		{
			apiKeys.POST("", requirePermission(store.PermissionWriteApiKey), h.createApiKey)
			apiKeys.GET("", requirePermission(store.PermissionReadApiKey), h.listApiKeys)
			apiKeys.GET("/:id", requirePermission(store.PermissionReadApiKey), h.getApiKey)
			apiKeys.DELETE("/:id", requirePermission(store.PermissionWriteApiKey), h.deleteApiKey)
		}

		sysCfg := v1.Group("/system/config")
		sysCfg.Use(requirePermission(store.PermissionFullAccess))
		{
			sysCfg.GET("/:key", h.getConfig)
			sysCfg.PUT("/:key", h.setConfig)
		}
	}

	return router
}

// requestTimeoutMiddleware bounds how long any single handler may run,
// wrapping the request context per the configured RequestTimeout.
func requestTimeoutMiddleware(cfg config.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.RequestTimeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
