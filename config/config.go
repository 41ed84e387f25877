package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		Port                      string   `envconfig:"PORT" default:"8080"`
		LogLevel                  string   `envconfig:"LOG_LEVEL" default:"info"`
		AllowedOrigins            []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
		RateLimitPerSecond        int      `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
		RateLimitBurstLimit       int      `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5"`
		CachedRateLimitPerSecond  int      `envconfig:"CACHED_RATE_LIMIT_PER_SECOND" default:"10"`
		CachedRateLimitBurstLimit int      `envconfig:"CACHED_RATE_LIMIT_BURST_LIMIT" default:"20"`
		// Session time samples arrive every ~100ms, so the sync routes get their own budget
		SyncRateLimitPerSecond  int    `envconfig:"SYNC_RATE_LIMIT_PER_SECOND" default:"20"`
		SyncRateLimitBurstLimit int    `envconfig:"SYNC_RATE_LIMIT_BURST_LIMIT" default:"40"`
		CacheAccessToken        string `envconfig:"CACHE_ACCESS_TOKEN" default:""`
		APIKey                  string `envconfig:"API_KEY" default:""`
		APIKeyRequired          bool   `envconfig:"API_KEY_REQUIRED" default:"false"`
		TrustProxyHeaders       bool   `envconfig:"TRUST_PROXY_HEADERS" default:"false"`

		// Storage
		CacheDBPath                        string `envconfig:"CACHE_DB_PATH" default:"./data/cache.db"`
		UserLyricsDBPath                   string `envconfig:"USER_LYRICS_DB_PATH" default:"./data/user_lyrics.db"`
		RecordingsDBPath                   string `envconfig:"RECORDINGS_DB_PATH" default:"./data/recordings.db"`
		StatsDBPath                        string `envconfig:"STATS_DB_PATH" default:"./data/stats.db"`
		StatsSaveIntervalSecs              int    `envconfig:"STATS_SAVE_INTERVAL_SECS" default:"300"`
		LyricsCacheTTLInSeconds            int    `envconfig:"LYRICS_CACHE_TTL_IN_SECONDS" default:"86400"`
		NegativeCacheTTLInMinutes          int    `envconfig:"NEGATIVE_CACHE_TTL_MINUTES" default:"60"`
		CacheInvalidationIntervalInSeconds int    `envconfig:"CACHE_INVALIDATION_INTERVAL_IN_SECONDS" default:"3600"`
		RedisAddr                          string `envconfig:"REDIS_ADDR" default:""`
		RedisPassword                      string `envconfig:"REDIS_PASSWORD" default:""`
		RedisDB                            int    `envconfig:"REDIS_DB" default:"0"`

		// Lyrics timing
		PlainTextSecondsPerLine float64 `envconfig:"PLAIN_TEXT_SECONDS_PER_LINE" default:"3"`
		SyncOffsetSeconds       float64 `envconfig:"SYNC_OFFSET_SECONDS" default:"0.3"`
		SessionIdleTimeoutSecs  int     `envconfig:"SESSION_IDLE_TIMEOUT_SECS" default:"1800"`

		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`     // Consecutive failures before circuit opens
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"` // Seconds to wait before retrying
	}

	Providers struct {
		LRCLIBBaseURL     string `envconfig:"LRCLIB_BASE_URL" default:"https://lrclib.net/api"`
		LRCLIBUserAgent   string `envconfig:"LRCLIB_USER_AGENT" default:"karaoke-api-go v1.0.0"`
		MusixmatchBaseURL string `envconfig:"MUSIXMATCH_BASE_URL" default:"https://api.musixmatch.com/ws/1.1"`
		MusixmatchAPIKey  string `envconfig:"MUSIXMATCH_API_KEY" default:""`
		GeniusBaseURL     string `envconfig:"GENIUS_BASE_URL" default:"https://api.genius.com"`
		GeniusAccessToken string `envconfig:"GENIUS_ACCESS_TOKEN" default:""`
		LyricstifyBaseURL string `envconfig:"LYRICSTIFY_BASE_URL" default:"https://lyricstify-api.vercel.app"`

		SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID" default:""`
		SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET" default:""`
		SpotifyTokenURL     string `envconfig:"SPOTIFY_TOKEN_URL" default:"https://accounts.spotify.com/api/token"`
		SpotifyAPIBaseURL   string `envconfig:"SPOTIFY_API_BASE_URL" default:"https://api.spotify.com/v1"`

		YouTubeAPIKey  string `envconfig:"YOUTUBE_API_KEY" default:""`
		YouTubeBaseURL string `envconfig:"YOUTUBE_BASE_URL" default:"https://www.googleapis.com/youtube/v3"`
	}

	Notifier struct {
		SMTPHost          string `envconfig:"NOTIFIER_SMTP_HOST" default:""`
		SMTPPort          string `envconfig:"NOTIFIER_SMTP_PORT" default:"587"`
		SMTPUsername      string `envconfig:"NOTIFIER_SMTP_USERNAME" default:""`
		SMTPPassword      string `envconfig:"NOTIFIER_SMTP_PASSWORD" default:""`
		FromEmail         string `envconfig:"NOTIFIER_FROM_EMAIL" default:""`
		ToEmail           string `envconfig:"NOTIFIER_TO_EMAIL" default:""`
		TelegramBotToken  string `envconfig:"NOTIFIER_TELEGRAM_BOT_TOKEN" default:""`
		TelegramChatID    string `envconfig:"NOTIFIER_TELEGRAM_CHAT_ID" default:""`
		NtfyTopic         string `envconfig:"NOTIFIER_NTFY_TOPIC" default:""`
		NtfyServer        string `envconfig:"NOTIFIER_NTFY_SERVER" default:"https://ntfy.sh"`
		AlertCooldownSecs int    `envconfig:"NOTIFIER_ALERT_COOLDOWN_SECS" default:"900"`
	}

	FeatureFlags struct {
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
	}
}

// LyricsCacheTTL returns the positive lyrics cache TTL as a duration
func (c Config) LyricsCacheTTL() time.Duration {
	return time.Duration(c.Configuration.LyricsCacheTTLInSeconds) * time.Second
}

// NegativeCacheTTL returns how long "no lyrics found" answers are remembered
func (c Config) NegativeCacheTTL() time.Duration {
	return time.Duration(c.Configuration.NegativeCacheTTLInMinutes) * time.Minute
}

// SessionIdleTimeout returns how long a sync session may go without samples
func (c Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.Configuration.SessionIdleTimeoutSecs) * time.Second
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}
