package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"hostexposer/internal/server/api/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterStore keeps one token bucket per client IP
type limiterStore struct {
	limiters    sync.Map // map[string]*rate.Limiter
	rate        rate.Limit
	burst       int
	mu          sync.Mutex
	lastCleanup time.Time
}

func newLimiterStore(requests int, window time.Duration, burst int) *limiterStore {
	if burst <= 0 {
		burst = requests
	}
	return &limiterStore{
		rate:        rate.Limit(float64(requests) / window.Seconds()),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	if l, ok := s.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}

	actual, _ := s.limiters.LoadOrStore(key, rate.NewLimiter(s.rate, s.burst))
	s.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops idle limiters, at most every five minutes
func (s *limiterStore) maybeCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if time.Since(s.lastCleanup) < 5*time.Minute {
		return
	}
	s.lastCleanup = time.Now()

	s.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(s.burst) {
			s.limiters.Delete(key)
		}
		return true
	})
}

// RateLimit implements per-IP rate limiting
func (m *Middleware) RateLimit() gin.HandlerFunc {
	cfg := m.config.API.RateLimit
	store := newLimiterStore(cfg.Requests, cfg.Window, cfg.Burst)

	return func(c *gin.Context) {
		limiter := store.get(c.ClientIP())
		if limiter.Allow() {
			c.Next()
			return
		}

		r := limiter.Reserve()
		delay := r.Delay()
		r.Cancel()

		c.Header("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(delay.Seconds())))))
		response.New(c, m.logger).Error(http.StatusTooManyRequests, errors.New("rate limit exceeded"))
		c.Abort()
	}
}
