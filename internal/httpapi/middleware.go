package httpapi

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/auth"
	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/logger"
	"github.com/numeraire/swissknife-go/internal/metrics"
	"github.com/numeraire/swissknife-go/internal/store"
)

// requestIDMiddleware stamps every request with an X-Request-ID, generating
// one when the caller didn't supply it.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// loggerMiddleware logs each completed request at Info, with the request ID
// and any handler-attached errors.
func loggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("http request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// metricsMiddleware records swissknife_http_requests_total and
// swissknife_http_request_duration_seconds for every completed request,
// keyed by the matched route template rather than the raw path so
// path-parameterized routes (e.g. /v1/invoices/:id) don't explode the
// label cardinality.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// rateLimitMiddleware throttles inbound requests with a single shared
// token bucket, matching cfg's requests-per-minute/burst.
func rateLimitMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute)/rate.Limit(60), cfg.Burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			writeError(c, apperrors.New(apperrors.KindWebServer, "too many requests"))
			return
		}
		c.Next()
	}
}

// requireAuth resolves the caller's Principal from either a Bearer JWT or
// an api-key header and stores it in the gin context; every protected
// route is mounted behind this.
func requireAuth(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rawKey := c.GetHeader("api-key"); rawKey != "" {
			key, err := base64.StdEncoding.DecodeString(rawKey)
			if err != nil {
				writeError(c, apperrors.Authentication("malformed api key"))
				return
			}
			principal, err := authSvc.AuthenticateApiKey(c.Request.Context(), key)
			if err != nil {
				writeError(c, err)
				return
			}
			setPrincipal(c, principal)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			writeError(c, apperrors.Authentication("missing bearer token"))
			return
		}
		token := strings.TrimPrefix(authHeader, prefix)

		principal, err := authSvc.AuthenticateJWT(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			return
		}
		setPrincipal(c, principal)
		c.Next()
	}
}

// requirePermission rejects the request with 403 unless the resolved
// principal's permission set grants p.
func requirePermission(p store.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := currentPrincipal(c)
		if principal == nil || !store.HasPermission(principal.Permissions, p) {
			writeError(c, apperrors.MissingPermission(string(p)))
			return
		}
		c.Next()
	}
}
