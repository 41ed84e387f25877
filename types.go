package main

import (
	"karaoke-api-go/services/lrc"
	"karaoke-api-go/services/providers"
)

type contextKey string

const (
	cacheOnlyModeKey contextKey = "cacheOnlyMode"
	rateLimitTypeKey contextKey = "rateLimitType"
)

// CachePerformance contains cache hit/miss statistics
type CachePerformance struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	NegativeHits int64   `json:"negative_hits"`
	UserHits     int64   `json:"user_hits"`
	HitRate      float64 `json:"hit_rate_percent"`
}

// CacheDumpResponse is the response format for /cache endpoint
type CacheDumpResponse struct {
	Backend      string           `json:"backend"`
	NumberOfKeys int              `json:"number_of_keys"`
	SizeInKB     int              `json:"size_kb"`
	SizeInMB     float64          `json:"size_mb"`
	Performance  CachePerformance `json:"performance"`
	Keys         []string         `json:"keys,omitempty"`
}

// CachedLyrics is the cached form of a resolved lookup
type CachedLyrics struct {
	Lines      []lrc.Line       `json:"lyrics"`
	SourceName string           `json:"source"`
	Origin     providers.Origin `json:"origin"`
	CachedAt   int64            `json:"cachedAt"`
}

// NegativeCacheEntry stores info about failed lyrics lookups
type NegativeCacheEntry struct {
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// LyricsResponse is the body of a successful lyrics lookup
type LyricsResponse struct {
	TrackID       string                  `json:"trackId,omitempty"`
	Track         providers.TrackIdentity `json:"track"`
	Source        string                  `json:"source"`
	Origin        providers.Origin        `json:"origin"`
	Lyrics        []lrc.Line              `json:"lyrics"`
	UploadAllowed bool                    `json:"uploadAllowed"`
}

// UserLyricsRequest is the body of POST /lyrics/user
type UserLyricsRequest struct {
	TrackID    string `json:"trackId"`
	TrackName  string `json:"trackName"`
	ArtistName string `json:"artistName"`
	LRCContent string `json:"lrcContent"`
}

// CreateSessionRequest is the body of POST /sessions
type CreateSessionRequest struct {
	TrackID    string  `json:"trackId"`
	TrackName  string  `json:"trackName"`
	ArtistName string  `json:"artistName"`
	AlbumName  string  `json:"albumName"`
	Duration   float64 `json:"duration"`
}

// TimeSampleRequest is the body of POST /sessions/{id}/time
type TimeSampleRequest struct {
	Time *float64 `json:"time"`
}
