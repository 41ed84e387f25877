package config

import (
	"os"
	"testing"
	"time"
)

// clearEnv unsets the given keys for the duration of the test
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	original := make(map[string]string)
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			original[key] = v
		}
		os.Unsetenv(key)
	}
	t.Cleanup(func() {
		for key, value := range original {
			os.Setenv(key, value)
		}
	})
}

func TestConfigDefaultValues(t *testing.T) {
	clearEnv(t,
		"RATE_LIMIT_PER_SECOND",
		"RATE_LIMIT_BURST_LIMIT",
		"LYRICS_CACHE_TTL_IN_SECONDS",
		"NEGATIVE_CACHE_TTL_MINUTES",
		"PLAIN_TEXT_SECONDS_PER_LINE",
		"SYNC_OFFSET_SECONDS",
		"LRCLIB_BASE_URL",
		"MUSIXMATCH_API_KEY",
		"GENIUS_ACCESS_TOKEN",
		"FF_CACHE_COMPRESSION",
	)

	cfg, err := load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"RateLimitPerSecond default", cfg.Configuration.RateLimitPerSecond, 2},
		{"RateLimitBurstLimit default", cfg.Configuration.RateLimitBurstLimit, 5},
		{"LyricsCacheTTLInSeconds default", cfg.Configuration.LyricsCacheTTLInSeconds, 86400},
		{"NegativeCacheTTLInMinutes default", cfg.Configuration.NegativeCacheTTLInMinutes, 60},
		{"PlainTextSecondsPerLine default", cfg.Configuration.PlainTextSecondsPerLine, 3.0},
		{"SyncOffsetSeconds default", cfg.Configuration.SyncOffsetSeconds, 0.3},
		{"LRCLIBBaseURL default", cfg.Providers.LRCLIBBaseURL, "https://lrclib.net/api"},
		{"MusixmatchAPIKey default", cfg.Providers.MusixmatchAPIKey, ""},
		{"GeniusAccessToken default", cfg.Providers.GeniusAccessToken, ""},
		{"CacheCompression default", cfg.FeatureFlags.CacheCompression, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	clearEnv(t, "MUSIXMATCH_API_KEY", "PLAIN_TEXT_SECONDS_PER_LINE", "ALLOWED_ORIGINS")

	os.Setenv("MUSIXMATCH_API_KEY", "mxm-key")
	os.Setenv("PLAIN_TEXT_SECONDS_PER_LINE", "4.5")
	os.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	defer func() {
		os.Unsetenv("MUSIXMATCH_API_KEY")
		os.Unsetenv("PLAIN_TEXT_SECONDS_PER_LINE")
		os.Unsetenv("ALLOWED_ORIGINS")
	}()

	cfg, err := load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Providers.MusixmatchAPIKey != "mxm-key" {
		t.Errorf("Expected MusixmatchAPIKey 'mxm-key', got %q", cfg.Providers.MusixmatchAPIKey)
	}
	if cfg.Configuration.PlainTextSecondsPerLine != 4.5 {
		t.Errorf("Expected PlainTextSecondsPerLine 4.5, got %v", cfg.Configuration.PlainTextSecondsPerLine)
	}
	if len(cfg.Configuration.AllowedOrigins) != 2 || cfg.Configuration.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected AllowedOrigins: %v", cfg.Configuration.AllowedOrigins)
	}
}

func TestConfigDurations(t *testing.T) {
	var cfg Config
	cfg.Configuration.LyricsCacheTTLInSeconds = 120
	cfg.Configuration.NegativeCacheTTLInMinutes = 5
	cfg.Configuration.SessionIdleTimeoutSecs = 30

	if cfg.LyricsCacheTTL() != 2*time.Minute {
		t.Errorf("LyricsCacheTTL = %v, want 2m", cfg.LyricsCacheTTL())
	}
	if cfg.NegativeCacheTTL() != 5*time.Minute {
		t.Errorf("NegativeCacheTTL = %v, want 5m", cfg.NegativeCacheTTL())
	}
	if cfg.SessionIdleTimeout() != 30*time.Second {
		t.Errorf("SessionIdleTimeout = %v, want 30s", cfg.SessionIdleTimeout())
	}
}
