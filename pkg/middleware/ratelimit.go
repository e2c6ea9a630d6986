package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter enforces RATE_LIMIT_TRANSCRIBE (spec §5): a fixed number
// of transcription-triggering requests per minute, per user. Grounded
// on the examples corpus's per-API-key token bucket, rekeyed here on
// user_id and refilled over a one-minute window instead of an hour.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	maxTokens  float64
	refillRate float64 // tokens per second
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter builds a limiter allowing perMinute requests/minute/user.
func NewRateLimiter(perMinute int) *RateLimiter {
	rl := &RateLimiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  float64(perMinute),
		refillRate: float64(perMinute) / 60.0,
	}
	go rl.cleanup()
	return rl
}

// TranscribeRateLimit returns Gin middleware gating routes that enqueue
// a transcription job (audio registration/upload). It must run after
// AuthMiddleware so user_id is already in context.
func (rl *RateLimiter) TranscribeRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		uid, _ := userID.(string)
		if uid == "" {
			c.Next()
			return
		}

		allowed, remaining := rl.allow(uid)
		c.Header("X-RateLimit-Limit", strconv.Itoa(int(rl.maxTokens)))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(remaining)))
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "transcription rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allow(userID string) (bool, float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[userID]
	if !exists {
		b = &bucket{tokens: rl.maxTokens, lastRefill: time.Now()}
		rl.buckets[userID] = b
	}

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * rl.refillRate
	if b.tokens > rl.maxTokens {
		b.tokens = rl.maxTokens
	}
	b.lastRefill = now

	if b.tokens < 1.0 {
		return false, b.tokens
	}
	b.tokens--
	return true, b.tokens
}

// cleanup evicts buckets idle for over ten minutes so memory doesn't
// grow with every user who has ever uploaded once.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for id, b := range rl.buckets {
			if now.Sub(b.lastRefill) > 10*time.Minute {
				delete(rl.buckets, id)
			}
		}
		rl.mu.Unlock()
	}
}
