package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/lyrics"
	"karaoke-api-go/services/providers"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	lyricsKeyPrefix   = "lyrics"
	negativeKeyPrefix = "no_lyrics:"
	trackKeyPrefix    = "track:"
	karaokeKeyPrefix  = "karaoke:"
)

// Basic cache operations

func getCache(key string) (string, bool) {
	return lyricsCache.Get(key)
}

func setCache(key, value string, ttl time.Duration) {
	if err := lyricsCache.Set(key, value, ttl); err != nil {
		log.Errorf("%s Error setting cache value: %v", logcolors.LogCache, err)
	}
}

func getCachedJSON(key string, out interface{}) bool {
	cached, ok := getCache(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(cached), out); err != nil {
		log.Warnf("%s Dropping unreadable entry %s: %v", logcolors.LogCache, key, err)
		lyricsCache.Delete(key)
		return false
	}
	return true
}

func setCachedJSON(key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Errorf("%s Error marshaling cache value for %s: %v", logcolors.LogCache, key, err)
		return
	}
	setCache(key, string(data), ttl)
}

// Lyrics cache operations

// getCachedLyrics returns a previously resolved lookup. Entries without lines are
// treated as missing.
func getCachedLyrics(key string) (*CachedLyrics, bool) {
	var cached CachedLyrics
	if !getCachedJSON(key, &cached) || len(cached.Lines) == 0 {
		return nil, false
	}
	return &cached, true
}

// setCachedLyrics stores a resolved lookup for the lyrics cache TTL
func setCachedLyrics(key string, res *lyrics.Resolution) {
	setCachedJSON(key, CachedLyrics{
		Lines:      res.Lines,
		SourceName: res.SourceName,
		Origin:     res.Origin,
		CachedAt:   time.Now().Unix(),
	}, conf.LyricsCacheTTL())
	log.Infof("%s Cached %d lines from %s under %s", logcolors.LogCacheLyrics, len(res.Lines), res.SourceName, key)
}

// Negative cache operations

// getNegativeCache checks if a lookup is known to have no lyrics.
// Returns the reason and true if found and not expired.
func getNegativeCache(key string) (string, bool) {
	negativeKey := negativeKeyPrefix + key
	var entry NegativeCacheEntry
	if !getCachedJSON(negativeKey, &entry) {
		return "", false
	}

	// The store expires entries on its own; this covers a TTL lowered since the write
	expiresAt := time.Unix(entry.Timestamp, 0).Add(conf.NegativeCacheTTL())
	if time.Now().After(expiresAt) {
		lyricsCache.Delete(negativeKey)
		return "", false
	}
	return entry.Reason, true
}

// setNegativeCache remembers a lookup that found nothing
func setNegativeCache(key, reason string) {
	setCachedJSON(negativeKeyPrefix+key, NegativeCacheEntry{
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	}, conf.NegativeCacheTTL())
	log.Infof("%s Cached 'no lyrics' for key: %s (reason: %s)", logcolors.LogCacheNegative, key, reason)
}

// deleteNegativeCache forgets a "no lyrics" answer, e.g. after a user upload
func deleteNegativeCache(key string) {
	if err := lyricsCache.Delete(negativeKeyPrefix + key); err != nil {
		log.Warnf("%s Failed to delete negative entry %s: %v", logcolors.LogCacheNegative, key, err)
	}
}

// shouldNegativeCache reports whether err is a permanent "no lyrics" answer.
// Cancellations and transport failures are not remembered.
func shouldNegativeCache(err error) bool {
	return errors.Is(err, lyrics.ErrNoLyrics) || errors.Is(err, providers.ErrNotFound)
}

// Cache key builders

func normalizeField(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// buildQuery creates the normalized lookup string shared by every lyrics key.
// Casing and whitespace differences map to the same key.
func buildQuery(track providers.TrackIdentity, trackID string) string {
	query := normalizeField(track.Name) + " " + normalizeField(track.Artist)
	if album := normalizeField(track.Album); album != "" {
		query += " " + album
	}
	if d := track.RoundedDuration(); d > 0 {
		query += fmt.Sprintf(" %ds", d)
	}
	// The streaming step only runs with a track id, so those lookups get their own key
	if id := strings.TrimSpace(trackID); id != "" {
		query += " #" + id
	}
	return query
}

// buildNormalizedCacheKey returns the key for a resolved lookup
func buildNormalizedCacheKey(track providers.TrackIdentity, trackID string) string {
	return lyricsKeyPrefix + ":" + buildQuery(track, trackID)
}

// buildProviderCacheKey returns the key for a single provider's raw answer
func buildProviderCacheKey(p providers.Provider, track providers.TrackIdentity, trackID string) string {
	return p.CacheKeyPrefix() + ":" + buildQuery(track, trackID)
}

func buildKaraokeCacheKey(trackName, artistName string) string {
	return karaokeKeyPrefix + normalizeField(trackName) + " " + normalizeField(artistName)
}
