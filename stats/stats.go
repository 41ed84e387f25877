package stats

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const maxInt64 = int64(^uint64(0) >> 1)

// Stats holds all server statistics with atomic counters
type Stats struct {
	StartTime time.Time

	// Requests by route family
	TotalRequests      atomic.Int64
	LyricsRequests     atomic.Int64
	UserLyricsRequests atomic.Int64
	SessionRequests    atomic.Int64
	TrackRequests      atomic.Int64
	KaraokeRequests    atomic.Int64
	RecordingRequests  atomic.Int64
	OpsRequests        atomic.Int64
	OtherRequests      atomic.Int64

	// Lyrics resolution
	CacheHits         atomic.Int64
	CacheMisses       atomic.Int64
	NegativeCacheHits atomic.Int64
	UserLyricsHits    atomic.Int64
	NoLyrics          atomic.Int64

	// Playback sync
	SessionsCreated atomic.Int64
	SyncSamples     atomic.Int64
	SyncScrolls     atomic.Int64

	// Rate limiting
	RateLimitNormal   atomic.Int64
	RateLimitCached   atomic.Int64
	RateLimitSync     atomic.Int64
	RateLimitBypass   atomic.Int64
	RateLimitExceeded atomic.Int64

	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response times in microseconds
	totalResponseTime   atomic.Int64
	responseCount       atomic.Int64
	minResponseTime     atomic.Int64
	maxResponseTime     atomic.Int64
	lyricsResponseTime  atomic.Int64
	lyricsResponseCount atomic.Int64

	// Lyrics served per source name
	sourceUsage sync.Map
}

// New creates an empty stats instance
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(maxInt64)
	return s
}

var global = New()

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest counts a request by its path
func (s *Stats) RecordRequest(path string) {
	s.TotalRequests.Add(1)
	switch {
	case path == "/getLyrics" || strings.HasSuffix(path, "/getLyrics"):
		s.LyricsRequests.Add(1)
	case strings.HasPrefix(path, "/lyrics/user"):
		s.UserLyricsRequests.Add(1)
	case strings.HasPrefix(path, "/sessions"):
		s.SessionRequests.Add(1)
	case strings.HasPrefix(path, "/tracks/"):
		s.TrackRequests.Add(1)
	case strings.HasPrefix(path, "/karaoke/"):
		s.KaraokeRequests.Add(1)
	case strings.HasPrefix(path, "/recordings"):
		s.RecordingRequests.Add(1)
	case path == "/health" || path == "/stats" || strings.HasPrefix(path, "/cache") || strings.HasPrefix(path, "/circuit-breaker"):
		s.OpsRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

func (s *Stats) RecordCacheHit()         { s.CacheHits.Add(1) }
func (s *Stats) RecordCacheMiss()        { s.CacheMisses.Add(1) }
func (s *Stats) RecordNegativeCacheHit() { s.NegativeCacheHits.Add(1) }
func (s *Stats) RecordUserLyricsHit()    { s.UserLyricsHits.Add(1) }
func (s *Stats) RecordNoLyrics()         { s.NoLyrics.Add(1) }
func (s *Stats) RecordSessionCreated()   { s.SessionsCreated.Add(1) }

// RecordSyncSample counts a pushed time sample and whether it moved the cursor
func (s *Stats) RecordSyncSample(scrolled bool) {
	s.SyncSamples.Add(1)
	if scrolled {
		s.SyncScrolls.Add(1)
	}
}

// RecordRateLimit records which tier served (or rejected) a request
func (s *Stats) RecordRateLimit(tier string) {
	switch tier {
	case "normal":
		s.RateLimitNormal.Add(1)
	case "cached":
		s.RateLimitCached.Add(1)
	case "sync":
		s.RateLimitSync.Add(1)
	case "bypass":
		s.RateLimitBypass.Add(1)
	case "exceeded":
		s.RateLimitExceeded.Add(1)
	}
}

// RecordSource counts lyrics served from the named source
func (s *Stats) RecordSource(name string) {
	if name == "" {
		return
	}
	counter, _ := s.sourceUsage.LoadOrStore(name, &atomic.Int64{})
	counter.(*atomic.Int64).Add(1)
}

// SourceUsageSnapshot returns lyrics served per source
func (s *Stats) SourceUsageSnapshot() map[string]int64 {
	out := make(map[string]int64)
	s.sourceUsage.Range(func(k, v interface{}) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time for path
func (s *Stats) RecordResponseTime(duration time.Duration, path string) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}

	if strings.HasSuffix(path, "/getLyrics") {
		s.lyricsResponseTime.Add(us)
		s.lyricsResponseCount.Add(1)
	}
}

// Uptime returns the time since StartTime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns the cache hit rate as a percentage
func (s *Stats) CacheHitRate() float64 {
	hits := s.CacheHits.Load()
	total := hits + s.CacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

func average(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total/count) * time.Microsecond
}

// AvgResponseTime returns the mean response time
func (s *Stats) AvgResponseTime() time.Duration {
	return average(s.totalResponseTime.Load(), s.responseCount.Load())
}

// MinResponseTime returns the fastest response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == maxInt64 {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the slowest response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// AvgLyricsResponseTime returns the mean response time of lyrics lookups
func (s *Stats) AvgLyricsResponseTime() time.Duration {
	return average(s.lyricsResponseTime.Load(), s.lyricsResponseCount.Load())
}

// counters names every cumulative counter; used for persistence
func (s *Stats) counters() map[string]*atomic.Int64 {
	return map[string]*atomic.Int64{
		"total_requests":        &s.TotalRequests,
		"lyrics_requests":       &s.LyricsRequests,
		"user_lyrics_requests":  &s.UserLyricsRequests,
		"session_requests":      &s.SessionRequests,
		"track_requests":        &s.TrackRequests,
		"karaoke_requests":      &s.KaraokeRequests,
		"recording_requests":    &s.RecordingRequests,
		"ops_requests":          &s.OpsRequests,
		"other_requests":        &s.OtherRequests,
		"cache_hits":            &s.CacheHits,
		"cache_misses":          &s.CacheMisses,
		"negative_cache_hits":   &s.NegativeCacheHits,
		"user_lyrics_hits":      &s.UserLyricsHits,
		"no_lyrics":             &s.NoLyrics,
		"sessions_created":      &s.SessionsCreated,
		"sync_samples":          &s.SyncSamples,
		"sync_scrolls":          &s.SyncScrolls,
		"rate_limit_normal":     &s.RateLimitNormal,
		"rate_limit_cached":     &s.RateLimitCached,
		"rate_limit_sync":       &s.RateLimitSync,
		"rate_limit_bypass":     &s.RateLimitBypass,
		"rate_limit_exceeded":   &s.RateLimitExceeded,
		"status_2xx":            &s.Status2xx,
		"status_4xx":            &s.Status4xx,
		"status_5xx":            &s.Status5xx,
		"total_response_time":   &s.totalResponseTime,
		"response_count":        &s.responseCount,
		"lyrics_response_time":  &s.lyricsResponseTime,
		"lyrics_response_count": &s.lyricsResponseCount,
	}
}

// Snapshot returns a point-in-time view of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	sources := s.SourceUsageSnapshot()
	sourceNames := make([]string, 0, len(sources))
	for name := range sources {
		sourceNames = append(sourceNames, name)
	}
	sort.Strings(sourceNames)

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":       s.TotalRequests.Load(),
			"lyrics":      s.LyricsRequests.Load(),
			"user_lyrics": s.UserLyricsRequests.Load(),
			"sessions":    s.SessionRequests.Load(),
			"tracks":      s.TrackRequests.Load(),
			"karaoke":     s.KaraokeRequests.Load(),
			"recordings":  s.RecordingRequests.Load(),
			"ops":         s.OpsRequests.Load(),
			"other":       s.OtherRequests.Load(),
		},
		"lyrics": map[string]interface{}{
			"cache_hits":          s.CacheHits.Load(),
			"cache_misses":        s.CacheMisses.Load(),
			"negative_cache_hits": s.NegativeCacheHits.Load(),
			"user_lyrics_hits":    s.UserLyricsHits.Load(),
			"not_found":           s.NoLyrics.Load(),
			"hit_rate":            s.CacheHitRate(),
			"sources":             sources,
			"source_names":        sourceNames,
		},
		"sync": map[string]interface{}{
			"sessions_created": s.SessionsCreated.Load(),
			"samples":          s.SyncSamples.Load(),
			"scrolls":          s.SyncScrolls.Load(),
		},
		"rate_limiting": map[string]interface{}{
			"normal_tier": s.RateLimitNormal.Load(),
			"cached_tier": s.RateLimitCached.Load(),
			"sync_tier":   s.RateLimitSync.Load(),
			"bypass":      s.RateLimitBypass.Load(),
			"exceeded":    s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg":        s.AvgResponseTime().String(),
			"min":        s.MinResponseTime().String(),
			"max":        s.MaxResponseTime().String(),
			"avg_lyrics": s.AvgLyricsResponseTime().String(),
		},
	}
}
