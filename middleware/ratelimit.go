package middleware

import (
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Tier is a token bucket configuration
type Tier struct {
	Rate  rate.Limit
	Burst int
}

// Limits groups the per-client tiers.
// Normal serves fresh lookups, Cached serves cache-only answers once Normal is
// exhausted, and Sync covers the high-frequency playback sample routes.
type Limits struct {
	Normal Tier
	Cached Tier
	Sync   Tier
}

// ClientLimiters holds one client's buckets
type ClientLimiters struct {
	Normal *rate.Limiter
	Cached *rate.Limiter
	Sync   *rate.Limiter

	lastSeen time.Time
}

// Remaining returns the whole tokens left in l
func Remaining(l *rate.Limiter) int {
	tokens := math.Floor(l.Tokens())
	if tokens < 0 {
		return 0
	}
	return int(tokens)
}

// IPRateLimiter manages tiered rate limiting per client IP
type IPRateLimiter struct {
	clients map[string]*ClientLimiters
	mu      sync.Mutex
	limits  Limits
	now     func() time.Time
}

// NewIPRateLimiter creates a limiter with the given tiers
func NewIPRateLimiter(limits Limits) *IPRateLimiter {
	return &IPRateLimiter{
		clients: make(map[string]*ClientLimiters),
		limits:  limits,
		now:     time.Now,
	}
}

// Limits returns the configured tiers
func (i *IPRateLimiter) Limits() Limits {
	return i.limits
}

// GetLimiters returns the buckets for ip, creating them on first use
func (i *IPRateLimiter) GetLimiters(ip string) *ClientLimiters {
	i.mu.Lock()
	defer i.mu.Unlock()

	client, exists := i.clients[ip]
	if !exists {
		client = &ClientLimiters{
			Normal: rate.NewLimiter(i.limits.Normal.Rate, i.limits.Normal.Burst),
			Cached: rate.NewLimiter(i.limits.Cached.Rate, i.limits.Cached.Burst),
			Sync:   rate.NewLimiter(i.limits.Sync.Rate, i.limits.Sync.Burst),
		}
		i.clients[ip] = client
	}
	client.lastSeen = i.now()
	return client
}

// Cleanup forgets clients not seen within idle and returns how many were dropped
func (i *IPRateLimiter) Cleanup(idle time.Duration) int {
	cutoff := i.now().Add(-idle)

	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for ip, client := range i.clients {
		if client.lastSeen.Before(cutoff) {
			delete(i.clients, ip)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked clients
func (i *IPRateLimiter) Size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.clients)
}

// ClientIP returns the request's client address without the port.
// X-Forwarded-For is honoured only when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first := strings.TrimSpace(strings.Split(fwd, ",")[0])
			if first != "" {
				return first
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
