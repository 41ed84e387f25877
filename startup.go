package main

import (
	"context"
	"fmt"
	"karaoke-api-go/cache"
	"karaoke-api-go/circuitbreaker"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/middleware"
	"karaoke-api-go/services/lyrics"
	"karaoke-api-go/services/notifier"
	"karaoke-api-go/services/providers"
	"karaoke-api-go/services/providers/genius"
	"karaoke-api-go/services/providers/lrclib"
	"karaoke-api-go/services/providers/lyricstify"
	"karaoke-api-go/services/providers/musixmatch"
	"karaoke-api-go/stats"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const rateLimiterIdleTimeout = 10 * time.Minute

// openLyricsCache uses Redis when REDIS_ADDR is set and the local bbolt cache otherwise
func openLyricsCache() (cache.Store, error) {
	if conf.Configuration.RedisAddr != "" {
		store, err := cache.NewRedisStore(conf.Configuration.RedisAddr, conf.Configuration.RedisPassword, conf.Configuration.RedisDB)
		if err == nil {
			return store, nil
		}
		log.Warnf("%s Redis unavailable, falling back to local cache: %v", logcolors.LogCacheInit, err)
	}
	return cache.NewPersistentCache(conf.Configuration.CacheDBPath, conf.FeatureFlags.CacheCompression)
}

// newBreakerSet creates the per-source circuit breakers. Every transition is logged;
// opening and recovering are also published for alerting.
func newBreakerSet() *circuitbreaker.Set {
	threshold := conf.Configuration.CircuitBreakerThreshold
	cooldown := time.Duration(conf.Configuration.CircuitBreakerCooldownSecs) * time.Second

	return circuitbreaker.NewSet(circuitbreaker.Config{
		Threshold: threshold,
		Cooldown:  cooldown,
		OnTransition: func(name string, from, to circuitbreaker.State) {
			switch to {
			case circuitbreaker.StateOpen:
				log.Warnf("%s Circuit breaker OPEN (%s -> %s)", logcolors.Provider(name), from, to)
				notifier.PublishSourceDown(name, threshold, cooldown)
			case circuitbreaker.StateClosed:
				log.Infof("%s Circuit breaker %s -> %s", logcolors.Provider(name), from, to)
				notifier.PublishSourceRecovered(name)
			default:
				log.Infof("%s Circuit breaker %s -> %s", logcolors.Provider(name), from, to)
			}
		},
	})
}

// startAlerting routes published events to the configured notifiers
func startAlerting() {
	notifiers := notifier.FromConfig()
	if len(notifiers) == 0 {
		log.Infof("%s No notifiers configured, alerts are log-only", logcolors.LogNotifier)
		return
	}
	handler := notifier.NewAlertHandler(notifier.AlertConfig{
		Notifiers:        notifiers,
		CooldownDuration: time.Duration(conf.Notifier.AlertCooldownSecs) * time.Second,
	})
	handler.Start(notifier.GetEventBus())
}

// setupProviders builds every lyrics source from config, registers them for the
// provider-specific routes and returns them in waterfall form
func setupProviders(registry *providers.Registry) lyrics.Sources {
	src := lyrics.Sources{
		LRCLIB:     lrclib.NewFromConfig(),
		Musixmatch: musixmatch.NewFromConfig(),
		Streaming:  lyricstify.NewFromConfig(),
		Genius:     genius.NewFromConfig(),
	}
	for _, p := range []providers.Provider{src.LRCLIB, src.Musixmatch, src.Streaming, src.Genius} {
		registry.Register(p)
	}

	if conf.Providers.MusixmatchAPIKey == "" {
		log.Infof("%s MUSIXMATCH_API_KEY not set, source will be skipped", logcolors.LogConfig)
	}
	if conf.Providers.GeniusAccessToken == "" {
		log.Infof("%s GENIUS_ACCESS_TOKEN not set, source will be skipped", logcolors.LogConfig)
	}
	return src
}

func newRateLimiter() *middleware.IPRateLimiter {
	c := conf.Configuration
	return middleware.NewIPRateLimiter(middleware.Limits{
		Normal: middleware.Tier{Rate: rate.Limit(c.RateLimitPerSecond), Burst: c.RateLimitBurstLimit},
		Cached: middleware.Tier{Rate: rate.Limit(c.CachedRateLimitPerSecond), Burst: c.CachedRateLimitBurstLimit},
		Sync:   middleware.Tier{Rate: rate.Limit(c.SyncRateLimitPerSecond), Burst: c.SyncRateLimitBurstLimit},
	})
}

// isSyncRoute matches the high-frequency time sample route
func isSyncRoute(r *http.Request) bool {
	return r.Method == http.MethodPost &&
		strings.HasPrefix(r.URL.Path, "/sessions/") &&
		strings.HasSuffix(r.URL.Path, "/time")
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int, tier string) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	w.Header().Set("X-RateLimit-Type", tier)
}

func rejectRateLimited(w http.ResponseWriter, r *http.Request, ip string, limit int) {
	stats.Get().RecordRateLimit("exceeded")
	log.Warnf("%s IP %s exceeded rate limit on %s", logcolors.LogRateLimit, ip, r.URL.Path)
	setRateLimitHeaders(w, limit, 0, "exceeded")
	w.Header().Set("Retry-After", "1")
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

// limitMiddleware applies the per-IP tiers. Time samples draw from the sync tier.
// Everything else tries the normal tier, then the cached tier, which only allows
// answers that need no upstream call.
func limitMiddleware(next http.Handler, limiter *middleware.IPRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A valid API key bypasses rate limits
		if middleware.Authenticated(r.Context()) {
			stats.Get().RecordRateLimit("bypass")
			w.Header().Set("X-RateLimit-Bypass", "true")
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "bypass")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ip := middleware.ClientIP(r, conf.Configuration.TrustProxyHeaders)
		limiters := limiter.GetLimiters(ip)
		limits := limiter.Limits()

		if isSyncRoute(r) {
			if !limiters.Sync.Allow() {
				rejectRateLimited(w, r, ip, limits.Sync.Burst)
				return
			}
			stats.Get().RecordRateLimit("sync")
			setRateLimitHeaders(w, limits.Sync.Burst, middleware.Remaining(limiters.Sync), "sync")
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "sync")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if limiters.Normal.Allow() {
			stats.Get().RecordRateLimit("normal")
			setRateLimitHeaders(w, limits.Normal.Burst, middleware.Remaining(limiters.Normal), "normal")
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, "normal")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Normal tier exceeded, try cached tier
		if limiters.Cached.Allow() {
			stats.Get().RecordRateLimit("cached")
			setRateLimitHeaders(w, limits.Cached.Burst, middleware.Remaining(limiters.Cached), "cached")
			log.Debugf("%s IP %s exceeded normal tier, using cached tier", logcolors.LogRateLimit, ip)
			ctx := context.WithValue(r.Context(), cacheOnlyModeKey, true)
			ctx = context.WithValue(ctx, rateLimitTypeKey, "cached")
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		rejectRateLimited(w, r, ip, limits.Cached.Burst)
	})
}

// statsMiddleware records request counts, status codes and response times
func statsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewResponseRecorder(w)
		next.ServeHTTP(rec, r)

		s := stats.Get()
		s.RecordRequest(r.URL.Path)
		s.RecordStatusCode(rec.StatusCode)
		s.RecordResponseTime(time.Since(start), r.URL.Path)
	})
}

// runEvery calls fn every interval until ctx is done
func runEvery(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// startBackgroundJobs starts cache sweeping, session expiry and rate limiter cleanup
func startBackgroundJobs(ctx context.Context) {
	if pc, ok := lyricsCache.(*cache.PersistentCache); ok {
		interval := time.Duration(conf.Configuration.CacheInvalidationIntervalInSeconds) * time.Second
		log.Infof("%s Sweeping expired entries every %v", logcolors.LogCacheSweep, interval)
		go runEvery(ctx, interval, func() {
			removed, err := pc.SweepExpired()
			if err != nil {
				log.Errorf("%s Sweep failed: %v", logcolors.LogCacheSweep, err)
				return
			}
			if removed > 0 {
				log.Infof("%s Removed %d expired entries", logcolors.LogCacheSweep, removed)
			}
		})
	}

	if timeout := conf.SessionIdleTimeout(); timeout > 0 {
		go sessions.Run(ctx, timeout/4)
	}

	go runEvery(ctx, rateLimiterIdleTimeout, func() {
		if removed := rateLimiter.Cleanup(rateLimiterIdleTimeout); removed > 0 {
			log.Debugf("%s Forgot %d idle clients", logcolors.LogRateLimit, removed)
		}
	})
}
