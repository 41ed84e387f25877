// Package spotify resolves streaming track ids to track metadata using the
// client-credentials flow of the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"karaoke-api-go/config"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/providers"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Track is the subset of track metadata the service exposes
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	AlbumArtURL string   `json:"albumArtUrl,omitempty"`
	DurationMs  int      `json:"durationMs"`
	PreviewURL  string   `json:"previewUrl,omitempty"`
}

// Identity converts the track to the lookup key used by the lyrics providers.
// Only the first credited artist is used.
func (t Track) Identity() providers.TrackIdentity {
	identity := providers.TrackIdentity{
		Name:            t.Name,
		Album:           t.Album,
		DurationSeconds: float64(t.DurationMs) / 1000,
	}
	if len(t.Artists) > 0 {
		identity.Artist = t.Artists[0]
	}
	return identity
}

type trackResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	DurationMs int     `json:"duration_ms"`
	PreviewURL *string `json:"preview_url"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
}

func (r trackResponse) toTrack() *Track {
	track := &Track{
		ID:         r.ID,
		Name:       r.Name,
		Album:      r.Album.Name,
		DurationMs: r.DurationMs,
		Artists:    make([]string, 0, len(r.Artists)),
	}
	for _, a := range r.Artists {
		track.Artists = append(track.Artists, a.Name)
	}
	if len(r.Album.Images) > 0 {
		track.AlbumArtURL = r.Album.Images[0].URL
	}
	if r.PreviewURL != nil {
		track.PreviewURL = *r.PreviewURL
	}
	return track
}

// Client talks to the Web API and caches its access token
type Client struct {
	clientID     string
	clientSecret string
	tokenURL     string
	apiBaseURL   string
	httpClient   *http.Client

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
	group       singleflight.Group
	now         func() time.Time
}

// NewClient creates a client. Empty credentials leave it unconfigured.
func NewClient(clientID, clientSecret, tokenURL, apiBaseURL string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		apiBaseURL:   strings.TrimRight(apiBaseURL, "/"),
		httpClient:   providers.NewHTTPClient(),
		now:          time.Now,
	}
}

// NewFromConfig creates a client using the process configuration
func NewFromConfig() *Client {
	conf := config.Get()
	return NewClient(
		conf.Providers.SpotifyClientID,
		conf.Providers.SpotifyClientSecret,
		conf.Providers.SpotifyTokenURL,
		conf.Providers.SpotifyAPIBaseURL,
	)
}

// Configured reports whether credentials are set
func (c *Client) Configured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// GetTrack fetches metadata for a track id. An unknown id returns providers.ErrNotFound.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*Track, error) {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return nil, providers.ErrNotFound
	}

	requestURL := fmt.Sprintf("%s/tracks/%s", c.apiBaseURL, url.PathEscape(trackID))

	var resp trackResponse
	err := c.authorizedGet(ctx, requestURL, &resp)
	if err != nil {
		return nil, err
	}

	track := resp.toTrack()
	log.Infof("%s Resolved %s to %s - %s", logcolors.LogSpotify, trackID, strings.Join(track.Artists, ", "), track.Name)
	return track, nil
}

// authorizedGet performs a bearer-authenticated GET. A 401 drops the cached
// token and retries once with a fresh one.
func (c *Client) authorizedGet(ctx context.Context, requestURL string, out interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.Token(ctx)
		if err != nil {
			return err
		}

		err = providers.GetJSON(ctx, c.httpClient, requestURL, map[string]string{
			"Authorization": "Bearer " + token,
		}, out)

		var statusErr *providers.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized && attempt == 0 {
			log.Warnf("%s Token rejected, refreshing", logcolors.LogSpotify)
			c.invalidateToken()
			continue
		}
		return err
	}
	return nil
}
