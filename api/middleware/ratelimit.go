package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/orgscope/config"
	"github.com/use-agent/orgscope/models"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL   = time.Hour
	limiterSweepTick = 5 * time.Minute
)

// limiterSet hands out one token bucket per caller identity.
type limiterSet struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(cfg config.RateLimitConfig) *limiterSet {
	return &limiterSet{
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// allow takes one token from identity's bucket.
func (s *limiterSet) allow(identity string) bool {
	s.mu.Lock()
	b, ok := s.buckets[identity]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.buckets[identity] = b
	}
	now := s.now()
	b.lastSeen = now
	s.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets unused for longer than idle.
func (s *limiterSet) sweep(idle time.Duration) {
	cutoff := s.now().Add(-idle)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(s.buckets, id)
		}
	}
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimit returns per-identity token-bucket middleware. The identity is the
// authenticated API key, or the client IP when auth is off. Rejections carry
// a Retry-After hint. Buckets idle for an hour are dropped.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	set := newLimiterSet(cfg)

	go func() {
		ticker := time.NewTicker(limiterSweepTick)
		defer ticker.Stop()
		for range ticker.C {
			set.sweep(limiterIdleTTL)
		}
	}()

	retryAfter := ""
	if cfg.RequestsPerSecond > 0 {
		retryAfter = strconv.Itoa(int(math.Ceil(1 / cfg.RequestsPerSecond)))
	}

	return func(c *gin.Context) {
		identity := c.GetString(ContextKeyAPIKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		if !set.allow(identity) {
			if retryAfter != "" {
				c.Header("Retry-After", retryAfter)
			}
			abort(c, http.StatusTooManyRequests, models.ErrCodeRateLimited,
				"rate limit exceeded, please slow down")
			return
		}
		c.Next()
	}
}
