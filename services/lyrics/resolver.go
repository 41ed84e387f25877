// Package lyrics resolves timed lyrics for a track by walking the provider waterfall
// in priority order and stopping at the first usable answer.
package lyrics

import (
	"context"
	"errors"
	"karaoke-api-go/circuitbreaker"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/lrc"
	"karaoke-api-go/services/providers"
	"karaoke-api-go/services/providers/genius"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ErrNoLyrics is returned when every step was skipped or came back empty
var ErrNoLyrics = errors.New("no lyrics found from any source")

// Resolution is the outcome of a successful lookup
type Resolution struct {
	Lines      []lrc.Line       `json:"lyrics"`
	SourceName string           `json:"source"`
	Origin     providers.Origin `json:"origin"`
}

// Sources are the providers the resolver walks. A nil provider is left out of the waterfall.
type Sources struct {
	LRCLIB     providers.Provider
	Musixmatch providers.Provider
	Streaming  providers.Provider
	Genius     providers.Provider
}

// step is one entry of the waterfall
type step struct {
	name     string
	provider providers.Provider
	// enabled reports whether the step applies to this request
	enabled func(streamingTrackID string) bool
	// usable turns a raw source into lines, or reports that it cannot be used
	usable func(src *providers.LyricsSource) ([]lrc.Line, bool)
}

// Resolver walks the waterfall. It is safe for concurrent use.
type Resolver struct {
	steps          []step
	breakers       *circuitbreaker.Set
	secondsPerLine float64
}

// NewResolver builds the waterfall: LRCLIB, Musixmatch, streaming proxy (only with a
// streaming track id), Genius. secondsPerLine is the synthetic cadence for untimed lyrics.
func NewResolver(src Sources, breakers *circuitbreaker.Set, secondsPerLine float64) *Resolver {
	if secondsPerLine <= 0 {
		secondsPerLine = 3
	}
	r := &Resolver{
		breakers:       breakers,
		secondsPerLine: secondsPerLine,
	}

	always := func(string) bool { return true }

	candidates := []step{
		{name: "LRCLIB", provider: src.LRCLIB, enabled: always, usable: syncedLines},
		{name: "Musixmatch", provider: src.Musixmatch, enabled: always, usable: syncedLines},
		{
			name:     "Spotify",
			provider: src.Streaming,
			enabled:  func(id string) bool { return id != "" },
			usable:   syncedLines,
		},
		{name: "Genius", provider: src.Genius, enabled: always, usable: r.plainLines},
	}

	for _, s := range candidates {
		if s.provider != nil {
			r.steps = append(r.steps, s)
		}
	}
	return r
}

// Steps returns the display names of the configured steps in order
func (r *Resolver) Steps() []string {
	names := make([]string, len(r.steps))
	for i, s := range r.steps {
		names[i] = s.name
	}
	return names
}

// syncedLines accepts a source whose synced text parses to at least one line
func syncedLines(src *providers.LyricsSource) ([]lrc.Line, bool) {
	if !src.HasSynced() {
		return nil, false
	}
	lines := lrc.Parse(*src.SyncedText)
	return lines, len(lines) > 0
}

// plainLines accepts real plain-text lyrics and gives them synthetic timing.
// The link placeholder is not lyrics and is rejected.
func (r *Resolver) plainLines(src *providers.LyricsSource) ([]lrc.Line, bool) {
	if !src.HasPlain() || strings.HasPrefix(*src.PlainText, genius.LinkPrefix) {
		return nil, false
	}
	lines := lrc.FromPlainText(*src.PlainText, r.secondsPerLine)
	return lines, len(lines) > 0
}

// Resolve runs the waterfall for track. Steps run one at a time; the first usable
// result wins and later steps are never called. Provider failures are logged and
// skipped. Returns ErrNoLyrics when nothing was usable, or the context error if
// the caller gave up.
func (r *Resolver) Resolve(ctx context.Context, track providers.TrackIdentity, streamingTrackID string) (*Resolution, error) {
	log.Infof("%s Resolving lyrics for: %s", logcolors.LogRequest, track)

	opts := providers.FetchOptions{StreamingTrackID: streamingTrackID}

	for _, s := range r.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.enabled(streamingTrackID) {
			continue
		}

		src, err := r.fetch(ctx, s, track, opts)
		if err != nil {
			r.logSkip(s, err)
			continue
		}

		lines, ok := s.usable(src)
		if !ok {
			log.Infof("%s %s Result not usable, trying next source", logcolors.LogFallback, logcolors.Provider(s.name))
			continue
		}

		log.Infof("%s Lyrics found from %s (%d lines)", logcolors.LogSuccess, s.name, len(lines))
		return &Resolution{
			Lines:      lines,
			SourceName: s.name,
			Origin:     src.Origin,
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Warnf("%s No lyrics found from any source for: %s", logcolors.LogNoLyrics, track)
	return nil, ErrNoLyrics
}

func (r *Resolver) fetch(ctx context.Context, s step, track providers.TrackIdentity, opts providers.FetchOptions) (*providers.LyricsSource, error) {
	if r.breakers == nil {
		return s.provider.Fetch(ctx, track, opts)
	}

	var src *providers.LyricsSource
	// A caller that went away says nothing about the upstream's health
	err := r.breakers.Get(s.provider.Name()).ExecuteContext(ctx, func() error {
		var fetchErr error
		src, fetchErr = s.provider.Fetch(ctx, track, opts)
		return fetchErr
	}, providers.IsTransportError)
	return src, err
}

func (r *Resolver) logSkip(s step, err error) {
	prefix := logcolors.Provider(s.name)
	switch {
	case errors.Is(err, providers.ErrNotConfigured):
		log.Infof("%s Not configured, skipping", prefix)
	case errors.Is(err, providers.ErrNotFound):
		log.Infof("%s %s No lyrics, trying next source", logcolors.LogFallback, prefix)
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		log.Warnf("%s Circuit open, skipping", prefix)
	default:
		log.Warnf("%s %s Request failed, trying next source: %v", logcolors.LogWarning, prefix, err)
	}
}
