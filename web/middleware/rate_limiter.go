package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiterConfig holds configuration for per-session answer throttling.
type RateLimiterConfig struct {
	AnswersPerMinute int
	BurstSize        int
}

// TokenBucket implements a token bucket rate limiter.
type TokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request can proceed and consumes a token if so.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	tb.tokens = min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate))
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Remaining returns the number of tokens remaining.
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tokens := min(tb.maxTokens, tb.tokens+(elapsed*tb.refillRate))
	return int(tokens)
}

// SessionRateLimiter throttles answer submissions per session. Callers on
// the same session queue behind the engine's lock anyway; this guards
// against runaway clients replaying answers in a loop.
type SessionRateLimiter struct {
	config      RateLimiterConfig
	limits      map[string]*TokenBucket
	mu          sync.RWMutex
	logger      *zap.Logger
	stopCleanup chan struct{}
}

func NewSessionRateLimiter(config RateLimiterConfig, logger *zap.Logger) *SessionRateLimiter {
	limiter := &SessionRateLimiter{
		config:      config,
		limits:      make(map[string]*TokenBucket),
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}

	go limiter.cleanupRoutine()

	return limiter
}

func (srl *SessionRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			srl.cleanup()
		case <-srl.stopCleanup:
			return
		}
	}
}

// cleanup drops all buckets once the map grows large. Buckets refill to full
// within a minute, so losing state is harmless.
func (srl *SessionRateLimiter) cleanup() {
	srl.mu.Lock()
	defer srl.mu.Unlock()

	if len(srl.limits) > 1000 {
		srl.logger.Info("Cleaning up rate limiter cache", zap.Int("limiters", len(srl.limits)))
		srl.limits = make(map[string]*TokenBucket)
	}
}

// Stop stops the cleanup routine.
func (srl *SessionRateLimiter) Stop() {
	close(srl.stopCleanup)
}

// AllowAnswer checks if an answer can be submitted for the given session.
func (srl *SessionRateLimiter) AllowAnswer(sessionID string) bool {
	srl.mu.Lock()
	bucket, exists := srl.limits[sessionID]
	if !exists {
		refillRate := float64(srl.config.AnswersPerMinute) / 60.0
		bucket = NewTokenBucket(float64(srl.config.BurstSize), refillRate)
		srl.limits[sessionID] = bucket
	}
	srl.mu.Unlock()

	return bucket.Allow()
}

// AnswerLimit returns remaining answer tokens for a session.
func (srl *SessionRateLimiter) AnswerLimit(sessionID string) (remaining int, limit int) {
	srl.mu.RLock()
	bucket, exists := srl.limits[sessionID]
	srl.mu.RUnlock()

	if !exists {
		return srl.config.BurstSize, srl.config.BurstSize
	}
	return bucket.Remaining(), srl.config.BurstSize
}

// RateLimitAnswers creates a Gin middleware that throttles answer submission
// per session id.
func RateLimitAnswers(limiter *SessionRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing session id"})
			return
		}

		allowed := limiter.AllowAnswer(sessionID)
		remaining, limit := limiter.AnswerLimit(sessionID)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			logger, _ := c.Get("logger")
			zapLogger, _ := logger.(*zap.Logger)
			if zapLogger != nil {
				zapLogger.Warn("Rate limit exceeded",
					zap.String("session_id", sessionID),
					zap.Int("limit", limit))
			}

			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"limit":       limit,
				"remaining":   remaining,
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}
