package providers

import (
	"errors"
	"fmt"
	"math"
)

// Origin identifies which kind of source produced a set of lyrics
type Origin string

const (
	OriginLRCLIB     Origin = "lrclib"     // open community database
	OriginMusixmatch Origin = "musixmatch" // commercial catalog
	OriginGenius     Origin = "genius"     // commercial catalog, links only
	OriginSpotify    Origin = "spotify"    // streaming platform, via proxy
	OriginUser       Origin = "user"       // uploaded by a user
)

var (
	// ErrNotConfigured is returned when a provider is missing its credentials.
	// No network request is made in that case.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrNotFound is returned when the upstream has no lyrics for the track
	ErrNotFound = errors.New("lyrics not found")
)

// TrackIdentity describes the track being looked up
type TrackIdentity struct {
	Name            string  `json:"trackName"`
	Artist          string  `json:"artistName"`
	Album           string  `json:"albumName,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
}

// RoundedDuration returns the duration in whole seconds, 0 when unknown
func (t TrackIdentity) RoundedDuration() int {
	if t.DurationSeconds <= 0 {
		return 0
	}
	return int(math.Round(t.DurationSeconds))
}

func (t TrackIdentity) String() string {
	return t.Artist + " - " + t.Name
}

// FetchOptions carries per-request hints that only some providers use
type FetchOptions struct {
	// StreamingTrackID is the streaming platform's id for the track (streaming proxy only)
	StreamingTrackID string
}

// LyricsSource is the raw result of a single provider.
// SyncedText holds LRC text when the source has timing; PlainText holds untimed lyrics.
type LyricsSource struct {
	Origin     Origin  `json:"origin"`
	SyncedText *string `json:"syncedText,omitempty"`
	PlainText  *string `json:"plainText,omitempty"`
}

// HasSynced reports whether the source carries non-empty synced text
func (s *LyricsSource) HasSynced() bool {
	return s != nil && s.SyncedText != nil && *s.SyncedText != ""
}

// HasPlain reports whether the source carries non-empty plain text
func (s *LyricsSource) HasPlain() bool {
	return s != nil && s.PlainText != nil && *s.PlainText != ""
}

// StringPtr returns a pointer to s, or nil for the empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ProviderError represents an error from a provider with additional context
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Message:  message,
		Err:      err,
	}
}

// StatusError is returned when an upstream answers with an unexpected HTTP status
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d", e.StatusCode)
}

// IsTransportError reports whether err should count against a provider's health.
// Not-found and not-configured answers are normal outcomes, everything else is not.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNotConfigured)
}
