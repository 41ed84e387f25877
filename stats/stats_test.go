package stats

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestRecordRequest_Categories(t *testing.T) {
	s := New()
	paths := []string{
		"/getLyrics",
		"/lrclib/getLyrics",
		"/lyrics/user/abc",
		"/sessions",
		"/sessions/123/time",
		"/tracks/4uLU6hMCjMI75M1A2tKUQC",
		"/karaoke/video",
		"/recordings",
		"/health",
		"/cache/clear",
		"/circuit-breaker",
		"/",
	}
	for _, p := range paths {
		s.RecordRequest(p)
	}

	checks := map[string]int64{
		"total":      s.TotalRequests.Load(),
		"lyrics":     s.LyricsRequests.Load(),
		"userLyrics": s.UserLyricsRequests.Load(),
		"sessions":   s.SessionRequests.Load(),
		"tracks":     s.TrackRequests.Load(),
		"karaoke":    s.KaraokeRequests.Load(),
		"recordings": s.RecordingRequests.Load(),
		"ops":        s.OpsRequests.Load(),
		"other":      s.OtherRequests.Load(),
	}
	want := map[string]int64{
		"total": 12, "lyrics": 2, "userLyrics": 1, "sessions": 2, "tracks": 1,
		"karaoke": 1, "recordings": 1, "ops": 3, "other": 1,
	}
	for k, w := range want {
		if checks[k] != w {
			t.Errorf("%s: expected %d, got %d", k, w, checks[k])
		}
	}
}

func TestCacheHitRate(t *testing.T) {
	s := New()
	if s.CacheHitRate() != 0 {
		t.Errorf("Expected 0 with no traffic, got %f", s.CacheHitRate())
	}
	s.RecordCacheHit()
	s.RecordCacheHit()
	s.RecordCacheHit()
	s.RecordCacheMiss()
	if got := s.CacheHitRate(); got != 75 {
		t.Errorf("Expected 75%%, got %f", got)
	}
}

func TestRecordRateLimit(t *testing.T) {
	s := New()
	for _, tier := range []string{"normal", "normal", "cached", "sync", "bypass", "exceeded", "bogus"} {
		s.RecordRateLimit(tier)
	}
	if s.RateLimitNormal.Load() != 2 || s.RateLimitCached.Load() != 1 || s.RateLimitSync.Load() != 1 ||
		s.RateLimitBypass.Load() != 1 || s.RateLimitExceeded.Load() != 1 {
		t.Errorf("Unexpected tier counters: %v", s.Snapshot()["rate_limiting"])
	}
}

func TestRecordSource(t *testing.T) {
	s := New()
	s.RecordSource("LRCLIB")
	s.RecordSource("LRCLIB")
	s.RecordSource("user")
	s.RecordSource("")

	usage := s.SourceUsageSnapshot()
	if len(usage) != 2 || usage["LRCLIB"] != 2 || usage["user"] != 1 {
		t.Errorf("Unexpected source usage %v", usage)
	}
}

func TestResponseTimes(t *testing.T) {
	s := New()
	if s.MinResponseTime() != 0 || s.AvgResponseTime() != 0 {
		t.Error("Expected zero durations before any response")
	}

	s.RecordResponseTime(10*time.Millisecond, "/getLyrics")
	s.RecordResponseTime(30*time.Millisecond, "/health")

	if s.MinResponseTime() != 10*time.Millisecond {
		t.Errorf("Expected min 10ms, got %v", s.MinResponseTime())
	}
	if s.MaxResponseTime() != 30*time.Millisecond {
		t.Errorf("Expected max 30ms, got %v", s.MaxResponseTime())
	}
	if s.AvgResponseTime() != 20*time.Millisecond {
		t.Errorf("Expected avg 20ms, got %v", s.AvgResponseTime())
	}
	if s.AvgLyricsResponseTime() != 10*time.Millisecond {
		t.Errorf("Expected lyrics avg 10ms, got %v", s.AvgLyricsResponseTime())
	}
}

func TestConcurrentRecording(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordRequest("/getLyrics")
				s.RecordSource("Musixmatch")
				s.RecordSyncSample(j%2 == 0)
			}
		}()
	}
	wg.Wait()

	if s.LyricsRequests.Load() != 5000 {
		t.Errorf("Expected 5000 lyrics requests, got %d", s.LyricsRequests.Load())
	}
	if s.SourceUsageSnapshot()["Musixmatch"] != 5000 {
		t.Errorf("Expected 5000 Musixmatch hits, got %d", s.SourceUsageSnapshot()["Musixmatch"])
	}
	if s.SyncSamples.Load() != 5000 || s.SyncScrolls.Load() != 2500 {
		t.Errorf("Unexpected sync counters %d/%d", s.SyncSamples.Load(), s.SyncScrolls.Load())
	}
}

func TestStore_SaveLoad(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stats.db")

	s := New()
	s.StartTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.RecordRequest("/getLyrics")
	s.RecordCacheHit()
	s.RecordSessionCreated()
	s.RecordSource("Genius")
	s.RecordResponseTime(5*time.Millisecond, "/getLyrics")

	store, err := NewStore(dbPath, s)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	restored := New()
	store, err = NewStore(dbPath, restored)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer store.Close()

	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if restored.TotalRequests.Load() != 1 || restored.CacheHits.Load() != 1 || restored.SessionsCreated.Load() != 1 {
		t.Errorf("Counters not restored: %v", restored.Snapshot()["requests"])
	}
	if restored.SourceUsageSnapshot()["Genius"] != 1 {
		t.Errorf("Source usage not restored: %v", restored.SourceUsageSnapshot())
	}
	if restored.MinResponseTime() != 5*time.Millisecond {
		t.Errorf("Expected min response time 5ms, got %v", restored.MinResponseTime())
	}
	if !restored.StartTime.Equal(s.StartTime) {
		t.Errorf("Expected first start %v, got %v", s.StartTime, restored.StartTime)
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	s := New()
	store, err := NewStore(filepath.Join(t.TempDir(), "stats.db"), s)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Load(); err != nil {
		t.Fatalf("Load on empty db failed: %v", err)
	}
	if s.TotalRequests.Load() != 0 {
		t.Error("Expected untouched counters")
	}
}

func TestStore_AutoSave(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "stats.db")
	s := New()
	store, err := NewStore(dbPath, s)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	store.StartAutoSave(ctx, 10*time.Millisecond)
	s.RecordRequest("/karaoke/video")
	time.Sleep(50 * time.Millisecond)
	cancel()
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	restored := New()
	store, err = NewStore(dbPath, restored)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer store.Close()
	store.Load()
	if restored.KaraokeRequests.Load() != 1 {
		t.Errorf("Expected autosaved karaoke request, got %d", restored.KaraokeRequests.Load())
	}
}
