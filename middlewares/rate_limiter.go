package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/utils"
	"golang.org/x/time/rate"
)

// RateLimiter allows rate requests per interval for each client IP.
type RateLimiter struct {
	rate      int
	interval  time.Duration
	ips       map[string][]time.Time
	exempt    map[string]bool
	lastSweep time.Time
	mu        sync.Mutex
}

func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		rate:      rate,
		interval:  interval,
		ips:       make(map[string][]time.Time),
		exempt:    make(map[string]bool),
		lastSweep: time.Now(),
	}
}

// Exempt skips limiting for the given route paths.
func (rl *RateLimiter) Exempt(paths ...string) *RateLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for _, p := range paths {
		rl.exempt[p] = true
	}
	return rl
}

// sweep drops IPs with no request inside the window. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.interval {
		return
	}
	cutoff := now.Add(-rl.interval)
	for ip, hits := range rl.ips {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(rl.ips, ip)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		rl.mu.Lock()
		if rl.exempt[c.FullPath()] || rl.exempt[c.Request.URL.Path] {
			rl.mu.Unlock()
			c.Next()
			return
		}
		now := time.Now()
		rl.sweep(now)
		cutoff := now.Add(-rl.interval)
		valid := rl.ips[ip][:0]
		for _, t := range rl.ips[ip] {
			if t.After(cutoff) {
				valid = append(valid, t)
			}
		}
		if len(valid) >= rl.rate {
			rl.ips[ip] = valid
			rl.mu.Unlock()
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		rl.ips[ip] = append(valid, now)
		rl.mu.Unlock()

		c.Next()
	}
}

type loginEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginLimiter throttles PIN attempts with a token bucket per client IP.
type LoginLimiter struct {
	every time.Duration
	burst int

	mu        sync.Mutex
	limiters  map[string]*loginEntry
	lastSweep time.Time
}

func NewLoginLimiter(every time.Duration, burst int) *LoginLimiter {
	return &LoginLimiter{
		every:     every,
		burst:     burst,
		limiters:  make(map[string]*loginEntry),
		lastSweep: time.Now(),
	}
}

// idle is how long a bucket takes to refill completely. Entries unused that
// long are dropped.
func (ll *LoginLimiter) idle() time.Duration {
	return ll.every * time.Duration(ll.burst)
}

func (ll *LoginLimiter) limiter(ip string) *rate.Limiter {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	now := time.Now()
	if idle := ll.idle(); now.Sub(ll.lastSweep) >= idle {
		for k, e := range ll.limiters {
			if now.Sub(e.lastSeen) >= idle {
				delete(ll.limiters, k)
			}
		}
		ll.lastSweep = now
	}

	e, ok := ll.limiters[ip]
	if !ok {
		e = &loginEntry{limiter: rate.NewLimiter(rate.Every(ll.every), ll.burst)}
		ll.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter
}

func (ll *LoginLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ll.limiter(c.ClientIP()).Allow() {
			utils.InfoLogger.Printf("Too many PIN attempts from %s", c.ClientIP())
			c.JSON(http.StatusTooManyRequests, utils.JSONResponse{
				Status:  false,
				Message: "Too many attempts, please wait a moment",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
