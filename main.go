package main

import (
	"context"
	"errors"
	"karaoke-api-go/cache"
	"karaoke-api-go/circuitbreaker"
	"karaoke-api-go/config"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/middleware"
	"karaoke-api-go/services/lyrics"
	"karaoke-api-go/services/notifier"
	"karaoke-api-go/services/playback"
	"karaoke-api-go/services/providers"
	"karaoke-api-go/services/recordings"
	"karaoke-api-go/services/spotify"
	"karaoke-api-go/services/userlyrics"
	"karaoke-api-go/services/youtube"
	"karaoke-api-go/stats"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var conf = config.Get()

var (
	lyricsCache      cache.Store
	userLyrics       *userlyrics.Store
	ledger           *recordings.Ledger
	providerRegistry *providers.Registry
	breakers         *circuitbreaker.Set
	resolver         *lyrics.Resolver
	sessions         *playback.Manager
	spotifyClient    *spotify.Client
	youtubeClient    *youtube.Client
	rateLimiter      *middleware.IPRateLimiter

	// lookupGroup collapses identical concurrent lyrics lookups
	lookupGroup singleflight.Group
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(conf.Configuration.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func main() {
	var err error

	lyricsCache, err = openLyricsCache()
	if err != nil {
		log.Fatalf("%s Failed to open lyrics cache: %v", logcolors.LogCacheInit, err)
	}
	defer lyricsCache.Close()

	userLyrics, err = userlyrics.Open(conf.Configuration.UserLyricsDBPath)
	if err != nil {
		log.Fatalf("%s Failed to open store: %v", logcolors.LogUserLyrics, err)
	}
	defer userLyrics.Close()

	ledger, err = recordings.Open(conf.Configuration.RecordingsDBPath)
	if err != nil {
		log.Fatalf("%s Failed to open ledger: %v", logcolors.LogRecordings, err)
	}
	defer ledger.Close()

	statsStore, err := stats.NewStore(conf.Configuration.StatsDBPath, stats.Get())
	if err != nil {
		log.Warnf("%s Stats will not persist: %v", logcolors.LogStats, err)
	} else if err := statsStore.Load(); err != nil {
		log.Warnf("%s %v", logcolors.LogStats, err)
	}

	providerRegistry = providers.NewRegistry()
	breakers = newBreakerSet()
	resolver = lyrics.NewResolver(setupProviders(providerRegistry), breakers, conf.Configuration.PlainTextSecondsPerLine)
	sessions = playback.NewManager(conf.SessionIdleTimeout(), conf.Configuration.SyncOffsetSeconds)
	spotifyClient = spotify.NewFromConfig()
	youtubeClient = youtube.NewFromConfig()
	rateLimiter = newRateLimiter()

	startAlerting()
	log.Infof("%s Lyrics sources in order: %v", logcolors.LogServer, resolver.Steps())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startBackgroundJobs(ctx)
	if statsStore != nil {
		statsStore.StartAutoSave(ctx, time.Duration(conf.Configuration.StatsSaveIntervalSecs)*time.Second)
	}

	router := mux.NewRouter()
	setupRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   conf.Configuration.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key", middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	// cors -> logging -> api key -> rate limit -> stats -> router
	var handler http.Handler = statsMiddleware(router)
	handler = limitMiddleware(handler, rateLimiter)
	handler = middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		Key:         conf.Configuration.APIKey,
		Required:    conf.Configuration.APIKeyRequired,
		PublicPaths: []string{"/", "/health"},
	})(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = c.Handler(handler)

	server := &http.Server{
		Addr:              ":" + conf.Configuration.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("%s Server listening on port %s", logcolors.LogServer, conf.Configuration.Port)
		notifier.PublishServerStarted(conf.Configuration.Port, resolver.Steps())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("%s Server failed: %v", logcolors.LogServer, err)
		}
	}()

	<-ctx.Done()
	log.Infof("%s Shutting down", logcolors.LogServer)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s Graceful shutdown failed: %v", logcolors.LogServer, err)
	}

	if statsStore != nil {
		if err := statsStore.Close(); err != nil {
			log.Errorf("%s Failed to close stats store: %v", logcolors.LogStats, err)
		}
	}
}
