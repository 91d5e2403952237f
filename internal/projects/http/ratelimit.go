package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
)

// OwnerLimiter bounds mutation calls per owner with a token bucket each.
type OwnerLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
	limiters map[string]*ownerBucket
}

type ownerBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewOwnerLimiter allows perMinute calls per owner, with bursts of up to a
// tenth of that (at least one). perMinute <= 0 returns nil, which allows
// everything.
func NewOwnerLimiter(perMinute int) *OwnerLimiter {
	if perMinute <= 0 {
		return nil
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &OwnerLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		now:      time.Now,
		limiters: make(map[string]*ownerBucket),
	}
}

// Allow reports whether ownerID may make another call now.
func (l *OwnerLimiter) Allow(ownerID string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.limiters[ownerID]
	if !ok {
		b = &ownerBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ownerID] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// Sweep drops buckets that have not been used for a while and returns how
// many were removed.
func (l *OwnerLimiter) Sweep() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	removed := 0
	for id, b := range l.limiters {
		if b.lastSeen.Before(cutoff) {
			delete(l.limiters, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked owners.
func (l *OwnerLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Middleware rejects requests over the owner's budget with 429. Requests
// without an owner pass through so the handler can answer 401.
func (l *OwnerLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := auth.UserFirebaseUID(c)
		if ownerID != "" && !l.Allow(ownerID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "too many requests"})
			return
		}
		c.Next()
	}
}
