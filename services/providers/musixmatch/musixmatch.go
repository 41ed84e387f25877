package musixmatch

import (
	"context"
	"errors"
	"karaoke-api-go/config"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the Musixmatch provider
	ProviderName = "musixmatch"

	// CachePrefix is the cache key prefix for Musixmatch lyrics
	CachePrefix = "musixmatch_lyrics"
)

// MusixmatchProvider implements the providers.Provider interface for Musixmatch
type MusixmatchProvider struct {
	client *Client
}

// NewProvider creates a provider backed by the given client
func NewProvider(client *Client) *MusixmatchProvider {
	return &MusixmatchProvider{client: client}
}

// NewFromConfig creates a provider using the process configuration
func NewFromConfig() *MusixmatchProvider {
	conf := config.Get()
	return NewProvider(NewClient(conf.Providers.MusixmatchBaseURL, conf.Providers.MusixmatchAPIKey))
}

// Name returns the provider identifier
func (p *MusixmatchProvider) Name() string {
	return ProviderName
}

// Origin returns the source kind
func (p *MusixmatchProvider) Origin() providers.Origin {
	return providers.OriginMusixmatch
}

// CacheKeyPrefix returns the cache key prefix for this provider
func (p *MusixmatchProvider) CacheKeyPrefix() string {
	return CachePrefix
}

// Fetch searches for the track, then loads its plain lyrics and, best effort, its synced subtitle
func (p *MusixmatchProvider) Fetch(ctx context.Context, track providers.TrackIdentity, opts providers.FetchOptions) (*providers.LyricsSource, error) {
	prefix := logcolors.Provider("Musixmatch")

	if !p.client.Configured() {
		log.Infof("%s API key not configured, skipping", prefix)
		return nil, providers.ErrNotConfigured
	}

	log.Infof("%s %s Searching: %s", prefix, logcolors.LogSearch, track)

	found, err := p.client.SearchTrack(ctx, track.Name, track.Artist)
	if err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return nil, providers.ErrNotFound
		}
		return nil, providers.NewProviderError(ProviderName, "track search failed", err)
	}

	log.Debugf("%s %s track_id=%d: %s - %s", prefix, logcolors.LogMatch, found.TrackID, found.ArtistName, found.TrackName)

	plain, err := p.client.GetLyrics(ctx, found.TrackID)
	if err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return nil, providers.ErrNotFound
		}
		return nil, providers.NewProviderError(ProviderName, "lyrics request failed", err)
	}

	// Subtitles are a paid-tier feature; their absence is normal
	synced, err := p.client.GetSubtitle(ctx, found.TrackID)
	if err != nil {
		log.Debugf("%s Synced lyrics not available: %v", prefix, err)
		synced = ""
	}

	return &providers.LyricsSource{
		Origin:     providers.OriginMusixmatch,
		SyncedText: providers.StringPtr(synced),
		PlainText:  providers.StringPtr(plain),
	}, nil
}
