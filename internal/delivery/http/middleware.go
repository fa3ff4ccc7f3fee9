package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CORSMiddleware handles CORS for the browser extension and the dashboard pages
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if isAllowedOrigin(origin, allowedOrigins) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Expose-Headers",
				"X-Imagefinder-Pass-Id, X-Imagefinder-Rows, X-Imagefinder-Matched, X-Imagefinder-Skipped")
			c.Writer.Header().Set("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isAllowedOrigin checks if the origin is in the allowed list.
// One "*" in an allowed origin matches any run of characters.
func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range allowedOrigins {
		prefix, suffix, wildcard := strings.Cut(allowed, "*")
		if !wildcard {
			if origin == allowed {
				return true
			}
			continue
		}
		if len(origin) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
			return true
		}
	}
	return false
}

// LoggerMiddleware logs every request through zap
func LoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("Request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("Request", fields...)
		default:
			logger.Info("Request", fields...)
		}
	}
}

// RecoveryMiddleware recovers from panics
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// ipLimiter keeps one token bucket per client IP
type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
}

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute, burst int) *ipLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{
		limiters: make(map[string]*ipEntry),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now

	// Idle clients are forgotten lazily
	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idle {
			delete(l.limiters, key)
		}
	}
	return entry.limiter.AllowN(now, 1)
}

// RateLimitMiddleware limits each client IP to perMinute requests.
// A non-positive perMinute disables limiting.
func RateLimitMiddleware(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newIPLimiter(perMinute, burst)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP(), time.Now()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
