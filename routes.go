package main

import (
	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	// Lyrics: user uploads, then cache, then the source waterfall
	router.HandleFunc("/getLyrics", getLyrics).Methods("GET")

	// Provider-specific endpoints - raw answer of one source
	router.HandleFunc("/{provider}/getLyrics", getLyricsWithProvider).Methods("GET")

	// User-uploaded lyrics
	router.HandleFunc("/lyrics/user", saveUserLyrics).Methods("POST")
	router.HandleFunc("/lyrics/user", listUserLyrics).Methods("GET")
	router.HandleFunc("/lyrics/user/{trackId}", getUserLyrics).Methods("GET")
	router.HandleFunc("/lyrics/user/{trackId}", deleteUserLyrics).Methods("DELETE")

	// Playback sync sessions
	router.HandleFunc("/sessions", createSession).Methods("POST")
	router.HandleFunc("/sessions", listSessions).Methods("GET")
	router.HandleFunc("/sessions/{id}/time", pushSessionTime).Methods("POST")
	router.HandleFunc("/sessions/{id}", getSession).Methods("GET")
	router.HandleFunc("/sessions/{id}", endSession).Methods("DELETE")

	// Track metadata, karaoke video search and recordings
	router.HandleFunc("/tracks/{trackId}", getTrack).Methods("GET")
	router.HandleFunc("/karaoke/video", findKaraokeVideo).Methods("GET")
	router.HandleFunc("/recordings", appendRecording).Methods("POST")
	router.HandleFunc("/recordings", listRecordings).Methods("GET")

	// Cache management endpoints
	router.HandleFunc("/cache", getCacheDump)
	router.HandleFunc("/cache/clear", clearCache).Methods("POST")

	// Health and stats endpoints
	router.HandleFunc("/health", getHealthStatus)
	router.HandleFunc("/stats", getStats)

	// Circuit breaker endpoints
	router.HandleFunc("/circuit-breaker", getCircuitBreakerStatus)
	router.HandleFunc("/circuit-breaker/reset", resetCircuitBreaker).Methods("POST")

	// Help endpoint
	router.HandleFunc("/", helpHandler)
}
