package main

import (
	"karaoke-api-go/cache"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/notifier"
	"karaoke-api-go/stats"
	"net/http"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == conf.Configuration.CacheAccessToken
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"help": "Use /getLyrics to get timed lyrics for a song. Provide the song name and artist name as query parameters. Example: /getLyrics?s=Shape%20of%20You&a=Ed%20Sheeran",
		"endpoints": map[string]string{
			"GET /getLyrics":                "s, a, al, d, trackId; user uploads win, then cache, then sources",
			"GET /{provider}/getLyrics":     "query a single source: " + strings.Join(providerRegistry.List(), ", "),
			"POST /lyrics/user":             "upload LRC for a track id",
			"GET|DELETE /lyrics/user/{id}":  "read (?format=lrc to download) or delete an upload",
			"POST /sessions":                "start a sync session for a track",
			"POST /sessions/{id}/time":      "push a player time sample",
			"GET|DELETE /sessions/{id}":     "inspect or end a session",
			"GET /tracks/{trackId}":         "streaming-platform track metadata",
			"GET /karaoke/video":            "best karaoke/instrumental video for s and a",
			"POST|GET /recordings":          "append to or list the recordings ledger",
			"GET /health, /stats, /cache":   "ops",
			"POST /circuit-breaker/reset":   "ops, ?provider= resets one source",
		},
	})
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	numKeys, sizeKB := lyricsCache.Stats()

	health := map[string]interface{}{
		"status":          "ok",
		"uptime":          stats.Get().Uptime().Round(time.Second).String(),
		"sources":         resolver.Steps(),
		"circuitBreakers": breakers.Snapshots(),
		"sessions":        sessions.Count(),
		"cache": map[string]interface{}{
			"keys":    numKeys,
			"size_kb": sizeKB,
		},
	}

	if spotifyClient != nil && spotifyClient.Configured() {
		expiry, remaining, needsRefresh := spotifyClient.TokenStatus()
		token := map[string]interface{}{
			"needsRefresh":     needsRefresh,
			"remainingSeconds": int64(remaining.Seconds()),
		}
		if !expiry.IsZero() {
			token["expiresAt"] = expiry.Format(time.RFC3339)
		}
		health["spotifyToken"] = token
	}
	health["karaokeSearch"] = youtubeClient != nil && youtubeClient.Configured()

	Respond(w, r).JSON(health)
}

func getStats(w http.ResponseWriter, r *http.Request) {
	snapshot := stats.Get().Snapshot()
	snapshot["sessions_active"] = sessions.Count()
	if rateLimiter != nil {
		snapshot["rate_limited_clients"] = rateLimiter.Size()
	}
	Respond(w, r).JSON(snapshot)
}

func getCacheDump(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	numKeys, sizeKB := lyricsCache.Stats()
	s := stats.Get()
	response := CacheDumpResponse{
		Backend:      "bbolt",
		NumberOfKeys: numKeys,
		SizeInKB:     sizeKB,
		SizeInMB:     float64(sizeKB) / 1024,
		Performance: CachePerformance{
			Hits:         s.CacheHits.Load(),
			Misses:       s.CacheMisses.Load(),
			NegativeHits: s.NegativeCacheHits.Load(),
			UserHits:     s.UserLyricsHits.Load(),
			HitRate:      s.CacheHitRate(),
		},
	}

	switch store := lyricsCache.(type) {
	case *cache.PersistentCache:
		// ?keys=true lists live keys; values stay out of the dump
		if r.URL.Query().Get("keys") == "true" {
			now := time.Now().Unix()
			store.Range(func(key string, entry cache.CacheEntry) bool {
				if entry.ExpiresAt == 0 || entry.ExpiresAt > now {
					response.Keys = append(response.Keys, key)
				}
				return true
			})
			sort.Strings(response.Keys)
		}
	case *cache.RedisStore:
		response.Backend = "redis"
	}

	Respond(w, r).JSON(response)
}

func clearCache(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	numKeys, _ := lyricsCache.Stats()
	if err := lyricsCache.Clear(); err != nil {
		log.Errorf("%s Failed to clear cache: %v", logcolors.LogCacheClear, err)
		Respond(w, r).Error(http.StatusInternalServerError, "failed to clear cache")
		return
	}
	log.Infof("%s Cleared %d keys", logcolors.LogCacheClear, numKeys)
	notifier.PublishCacheCleared(numKeys)
	Respond(w, r).JSON(map[string]interface{}{
		"message":      "Cache cleared",
		"keys_cleared": numKeys,
	})
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"breakers": breakers.Snapshots(),
	})
}

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	name := r.URL.Query().Get("provider")
	if name == "" {
		breakers.ResetAll()
		log.Infof("%s All circuit breakers reset", logcolors.LogServer)
		Respond(w, r).JSON(map[string]interface{}{"reset": "all"})
		return
	}

	if !breakers.Reset(name) {
		Respond(w, r).Error(http.StatusNotFound, "no circuit breaker for "+name)
		return
	}
	log.Infof("%s Circuit breaker reset for %s", logcolors.LogServer, name)
	Respond(w, r).JSON(map[string]interface{}{"reset": name})
}
