package lrclib

import (
	"context"
	"errors"
	"karaoke-api-go/config"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the LRCLIB provider
	ProviderName = "lrclib"

	// CachePrefix is the cache key prefix for LRCLIB lyrics
	CachePrefix = "lrclib_lyrics"
)

// LRCLIBProvider implements the providers.Provider interface for LRCLIB
type LRCLIBProvider struct {
	client *Client
}

// NewProvider creates a provider backed by the given client
func NewProvider(client *Client) *LRCLIBProvider {
	return &LRCLIBProvider{client: client}
}

// NewFromConfig creates a provider using the process configuration
func NewFromConfig() *LRCLIBProvider {
	conf := config.Get()
	return NewProvider(NewClient(conf.Providers.LRCLIBBaseURL, conf.Providers.LRCLIBUserAgent))
}

// Name returns the provider identifier
func (p *LRCLIBProvider) Name() string {
	return ProviderName
}

// Origin returns the source kind
func (p *LRCLIBProvider) Origin() providers.Origin {
	return providers.OriginLRCLIB
}

// CacheKeyPrefix returns the cache key prefix for this provider
func (p *LRCLIBProvider) CacheKeyPrefix() string {
	return CachePrefix
}

// Fetch tries an exact lookup, then the same lookup without the album,
// then a free-text search taking the first hit. Only a 404 moves to the next step.
func (p *LRCLIBProvider) Fetch(ctx context.Context, track providers.TrackIdentity, opts providers.FetchOptions) (*providers.LyricsSource, error) {
	prefix := logcolors.Provider("LRCLIB")
	duration := track.RoundedDuration()

	log.Infof("%s %s Looking up: %s", prefix, logcolors.LogSearch, track)

	if track.Album != "" {
		record, err := p.client.Get(ctx, track.Name, track.Artist, track.Album, duration)
		if err == nil {
			return p.toSource(record), nil
		}
		if !errors.Is(err, providers.ErrNotFound) {
			return nil, providers.NewProviderError(ProviderName, "get with album failed", err)
		}
		log.Debugf("%s Not found with album, retrying without album", prefix)
	}

	record, err := p.client.Get(ctx, track.Name, track.Artist, "", duration)
	if err == nil {
		return p.toSource(record), nil
	}
	if !errors.Is(err, providers.ErrNotFound) {
		return nil, providers.NewProviderError(ProviderName, "get failed", err)
	}

	log.Debugf("%s Not found by metadata, trying search", prefix)
	records, err := p.client.Search(ctx, track.Name+" "+track.Artist)
	if err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return nil, providers.ErrNotFound
		}
		return nil, providers.NewProviderError(ProviderName, "search failed", err)
	}
	if len(records) == 0 {
		return nil, providers.ErrNotFound
	}

	return p.toSource(&records[0]), nil
}

func (p *LRCLIBProvider) toSource(record *Record) *providers.LyricsSource {
	log.Debugf("%s %s Matched id=%d: %s - %s (synced=%v)", logcolors.Provider("LRCLIB"), logcolors.LogMatch,
		record.ID, record.ArtistName, record.TrackName, record.SyncedLyrics != nil)
	return &providers.LyricsSource{
		Origin:     providers.OriginLRCLIB,
		SyncedText: record.SyncedLyrics,
		PlainText:  record.PlainLyrics,
	}
}
