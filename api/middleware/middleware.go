package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"ddd-users/api/response"
	"ddd-users/config"
	"ddd-users/infrastructure/auth"
	metrics "ddd-users/infrastructure/metrics/prometheus"
	"ddd-users/infrastructure/persistence"
	"ddd-users/pkg/errors"
	"ddd-users/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	RequestIDHeader = "X-Request-ID"

	// ClaimsKey gin context 中保存已验证令牌的键
	ClaimsKey = "claims"
)

// RequestIDMiddleware 生成或透传请求 ID，并放入 request context，
// 之后的应用层、仓储和 GORM 日志都能带上它
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(response.RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(persistence.ContextWithRequestID(c.Request.Context(), requestID))

		c.Next()
	}
}

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		log := logger.WithRequestID(response.GetRequestID(c))
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error("HTTP Request", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}
	}
}

func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.WithRequestID(response.GetRequestID(c)).Error("Panic recovered",
					zap.Any("error", recovered),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"))

				response.Abort(c, http.StatusInternalServerError, errors.CodeInternal, "internal server error")
			}
		}()

		c.Next()
	}
}

// CORSMiddleware 基于 gin-contrib/cors
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
	for _, origin := range cfg.AllowOrigins {
		if origin == "*" {
			corsCfg.AllowAllOrigins = true
			corsCfg.AllowOrigins = nil
			// 通配来源不能同时携带凭证
			corsCfg.AllowCredentials = false
			break
		}
		corsCfg.AllowOrigins = append(corsCfg.AllowOrigins, origin)
	}
	if len(corsCfg.AllowOrigins) == 0 && !corsCfg.AllowAllOrigins {
		// cors.New 拒绝空来源列表
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	return cors.New(corsCfg)
}

// RateLimiter 按客户端 IP 限流
type RateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(r float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(r),
		burst: burst,
	}
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(ip); ok {
		return limiter.(*rate.Limiter)
	}
	limiter, _ := rl.limiters.LoadOrStore(ip, rate.NewLimiter(rl.rate, rl.burst))
	return limiter.(*rate.Limiter)
}

func RateLimitMiddleware(cfg *config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiter := NewRateLimiter(cfg.Rate, cfg.Burst)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.getLimiter(ip).Allow() {
			logger.WithRequestID(response.GetRequestID(c)).Warn("Rate limit exceeded",
				zap.String("client_ip", ip))
			response.Abort(c, http.StatusTooManyRequests, errors.CodeTooManyRequest, "too many requests, please try again later")
			return
		}
		c.Next()
	}
}

// MetricsMiddleware 记录请求数与耗时，route 使用 gin 的路由模板避免高基数
func MetricsMiddleware(m *metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Observe(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// TokenParser 验证访问令牌
type TokenParser interface {
	Parse(token string, tokenType string) (*auth.Claims, error)
}

// RequireAuth 要求 Authorization: Bearer <access token>
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Abort(c, http.StatusUnauthorized, errors.CodeUnauthorized, "missing bearer token")
			return
		}

		claims, err := tokens.Parse(token, auth.TokenTypeAccess)
		if err != nil {
			logger.WithRequestID(response.GetRequestID(c)).Warn("Rejected access token", zap.Error(err))
			response.Abort(c, http.StatusUnauthorized, errors.CodeUnauthorized, "invalid or expired token")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom 返回 RequireAuth 放入的令牌声明
func ClaimsFrom(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
