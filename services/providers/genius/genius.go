// Package genius looks tracks up in the Genius catalog.
// The public API has no lyric bodies, so the provider only ever returns a link to the song page.
package genius

import (
	"context"
	"errors"
	"karaoke-api-go/config"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/providers"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the Genius provider
	ProviderName = "genius"

	// CachePrefix is the cache key prefix for Genius lyrics
	CachePrefix = "genius_lyrics"

	// LinkPrefix starts the placeholder text returned instead of lyrics
	LinkPrefix = "Lyrics available at:"
)

type searchResponse struct {
	Meta struct {
		Status int `json:"status"`
	} `json:"meta"`
	Response struct {
		Hits []struct {
			Type   string `json:"type"`
			Result struct {
				ID            int64  `json:"id"`
				Title         string `json:"title"`
				FullTitle     string `json:"full_title"`
				URL           string `json:"url"`
				PrimaryArtist struct {
					Name string `json:"name"`
				} `json:"primary_artist"`
			} `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

// GeniusProvider implements the providers.Provider interface for Genius
type GeniusProvider struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewProvider creates a provider; an empty accessToken leaves it unconfigured
func NewProvider(baseURL, accessToken string) *GeniusProvider {
	return &GeniusProvider{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  providers.NewHTTPClient(),
	}
}

// NewFromConfig creates a provider using the process configuration
func NewFromConfig() *GeniusProvider {
	conf := config.Get()
	return NewProvider(conf.Providers.GeniusBaseURL, conf.Providers.GeniusAccessToken)
}

// Name returns the provider identifier
func (p *GeniusProvider) Name() string {
	return ProviderName
}

// Origin returns the source kind
func (p *GeniusProvider) Origin() providers.Origin {
	return providers.OriginGenius
}

// CacheKeyPrefix returns the cache key prefix for this provider
func (p *GeniusProvider) CacheKeyPrefix() string {
	return CachePrefix
}

// Fetch searches for the track and returns "Lyrics available at: <url>" as plain text.
// The page itself is never scraped.
func (p *GeniusProvider) Fetch(ctx context.Context, track providers.TrackIdentity, opts providers.FetchOptions) (*providers.LyricsSource, error) {
	prefix := logcolors.Provider("Genius")

	if p.accessToken == "" {
		log.Infof("%s Access token not configured, skipping", prefix)
		return nil, providers.ErrNotConfigured
	}

	params := url.Values{}
	params.Set("q", track.Name+" "+track.Artist)
	requestURL := p.baseURL + "/search?" + params.Encode()

	log.Infof("%s %s Searching: %s", prefix, logcolors.LogSearch, track)

	var resp searchResponse
	err := providers.GetJSON(ctx, p.httpClient, requestURL, map[string]string{
		"Authorization": "Bearer " + p.accessToken,
	}, &resp)
	if err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return nil, providers.ErrNotFound
		}
		return nil, providers.NewProviderError(ProviderName, "search failed", err)
	}

	if len(resp.Response.Hits) == 0 || resp.Response.Hits[0].Result.URL == "" {
		return nil, providers.ErrNotFound
	}

	hit := resp.Response.Hits[0].Result
	log.Infof("%s %s Lyrics available at: %s", prefix, logcolors.LogMatch, hit.URL)

	return &providers.LyricsSource{
		Origin:    providers.OriginGenius,
		PlainText: providers.StringPtr(LinkPrefix + " " + hit.URL),
	}, nil
}
