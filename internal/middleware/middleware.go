// Package middleware holds the gin middleware shared by the relay, layout
// and place HTTP servers.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"go.klb.dev/wmglue/internal/metrics"
)

// RequestIDHeader carries the per-request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// NewEngine returns a gin engine in release mode with recovery, request IDs
// and debug request logging installed.
func NewEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Logger())
	return r
}

// RequestID propagates an incoming X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Logger logs every request at debug level through slog.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client", c.ClientIP(),
			"request_id", c.GetString("request_id"),
		)
	}
}

// Metrics records request count and latency per matched route.
func Metrics(m *metrics.HTTP) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.Record(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// BearerAuth rejects requests without "Authorization: Bearer <token>".
// An empty token disables the check. Paths listed in skip are always allowed.
func BearerAuth(token string, skip ...string) gin.HandlerFunc {
	open := make(map[string]bool, len(skip))
	for _, p := range skip {
		open[p] = true
	}
	return func(c *gin.Context) {
		if token == "" || open[c.Request.URL.Path] {
			c.Next()
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// PermissiveCORS allows every origin, method and header. OPTIONS preflights
// are answered with 200.
func PermissiveCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:              []string{"*"},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	})
}

// GlobalRateLimit shares one token bucket across all clients.
func GlobalRateLimit(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// Error aborts with status and a {"error": msg} body.
func Error(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
