package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"hostexposer/internal/server/api/response"
	"hostexposer/internal/server/auth"
	"hostexposer/internal/server/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Middleware represents middleware manager
type Middleware struct {
	logger *zap.Logger
	config *config.Config
}

// New creates a new middleware manager
func New(cfg *config.Config, logger *zap.Logger) *Middleware {
	return &Middleware{
		logger: logger,
		config: cfg,
	}
}

// RequestID adds request ID to context
func (m *Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Logger logs request details
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("error", errs))
		}

		m.logger.Info("Request completed", fields...)
	}
}

// Recovery recovers from panics
func (m *Middleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				buf := make([]byte, 2048)
				n := runtime.Stack(buf, false)

				var errMsg string
				switch e := err.(type) {
				case error:
					errMsg = e.Error()
				case string:
					errMsg = e
				default:
					errMsg = fmt.Sprintf("%v", e)
				}

				m.logger.Error("Panic recovered",
					zap.String("error", errMsg),
					zap.String("stack", string(buf[:n])))

				response.New(c, m.logger).InternalError(errors.New("internal server error"))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// Cors handles CORS
func (m *Middleware) Cors() gin.HandlerFunc {
	cors := m.config.API.CORS
	maxAge := strconv.Itoa(cors.MaxAge)

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", strings.Join(cors.AllowedOrigins, ","))
		c.Header("Access-Control-Allow-Methods", strings.Join(cors.AllowedMethods, ","))
		c.Header("Access-Control-Allow-Headers", strings.Join(cors.AllowedHeaders, ","))
		c.Header("Access-Control-Max-Age", maxAge)
		if cors.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// BasicAuth rejects requests whose Authorization header does not carry the server password
func (m *Middleware) BasicAuth(authenticator *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authenticator.CheckHeader(c.GetHeader("Authorization")); err != nil {
			m.logger.Debug("Unauthorized request",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()))
			response.New(c, m.logger).Unauthorized(errors.New("unauthorized"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// NoCache adds no-cache headers
func (m *Middleware) NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}

// Secure adds security headers
func (m *Middleware) Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}
