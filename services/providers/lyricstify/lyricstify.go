// Package lyricstify fetches streaming-platform lyrics through the public Lyricstify proxy.
package lyricstify

import (
	"context"
	"errors"
	"karaoke-api-go/config"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/lrc"
	"karaoke-api-go/services/providers"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the streaming proxy provider
	ProviderName = "lyricstify"

	// CachePrefix is the cache key prefix for streaming proxy lyrics
	CachePrefix = "lyricstify_lyrics"
)

// LyricstifyProvider implements the providers.Provider interface for the streaming proxy
type LyricstifyProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewProvider creates a provider for the proxy at baseURL
func NewProvider(baseURL string) *LyricstifyProvider {
	return &LyricstifyProvider{
		baseURL:    baseURL,
		httpClient: providers.NewHTTPClient(),
	}
}

// NewFromConfig creates a provider using the process configuration
func NewFromConfig() *LyricstifyProvider {
	return NewProvider(config.Get().Providers.LyricstifyBaseURL)
}

// Name returns the provider identifier
func (p *LyricstifyProvider) Name() string {
	return ProviderName
}

// Origin returns the source kind
func (p *LyricstifyProvider) Origin() providers.Origin {
	return providers.OriginSpotify
}

// CacheKeyPrefix returns the cache key prefix for this provider
func (p *LyricstifyProvider) CacheKeyPrefix() string {
	return CachePrefix
}

// Fetch loads lyrics by streaming track id. Without an id there is nothing to look up.
func (p *LyricstifyProvider) Fetch(ctx context.Context, track providers.TrackIdentity, opts providers.FetchOptions) (*providers.LyricsSource, error) {
	prefix := logcolors.Provider("Spotify")

	if opts.StreamingTrackID == "" {
		return nil, providers.ErrNotFound
	}

	requestURL := p.baseURL + "/api/lyrics/" + url.PathEscape(opts.StreamingTrackID)
	log.Infof("%s %s Fetching lyrics for track %s", prefix, logcolors.LogSearch, opts.StreamingTrackID)

	var resp Response
	if err := providers.GetJSON(ctx, p.httpClient, requestURL, nil, &resp); err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return nil, providers.ErrNotFound
		}
		return nil, providers.NewProviderError(ProviderName, "lyrics request failed", err)
	}

	if resp.Lyrics == nil {
		return nil, providers.ErrNotFound
	}

	synced := ""
	if resp.Lyrics.SyncType == SyncTypeLineSynced && len(resp.Lyrics.Lines) > 0 {
		synced = ToLRC(resp.Lyrics.Lines)
	}

	log.Debugf("%s %s %d lines, syncType=%s", prefix, logcolors.LogMatch, len(resp.Lyrics.Lines), resp.Lyrics.SyncType)

	return &providers.LyricsSource{
		Origin:     providers.OriginSpotify,
		SyncedText: providers.StringPtr(synced),
		PlainText:  providers.StringPtr(PlainText(resp.Lyrics.Lines)),
	}, nil
}

// ToLRC converts line-synced lines into LRC text, one "[mm:ss.cc]words" per line
func ToLRC(lines []Line) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = lrc.FormatTimestampMs(int64(line.StartTimeMs)) + line.Words
	}
	return strings.Join(out, "\n")
}

// PlainText joins the words of every line
func PlainText(lines []Line) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line.Words
	}
	return strings.Join(out, "\n")
}
