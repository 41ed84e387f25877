package musixmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/providers"
	"net/http"
	"net/url"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Client talks to the Musixmatch ws/1.1 API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client; apiKey may be empty, in which case calls are refused
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: providers.NewHTTPClient(),
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// call performs a request against method and decodes the envelope body into out.
// A non-200 status_code in the envelope header is reported as providers.ErrNotFound
// for 404 and as an error otherwise.
func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	if !c.Configured() {
		return providers.ErrNotConfigured
	}
	params.Set("apikey", c.apiKey)
	params.Set("format", "json")

	requestURL := c.baseURL + "/" + method + "?" + params.Encode()
	log.Debugf("%s %s GET %s", logcolors.Provider("Musixmatch"), logcolors.LogHTTP, method)

	var env Envelope
	if err := providers.GetJSON(ctx, c.httpClient, requestURL, nil, &env); err != nil {
		return err
	}

	switch code := env.Message.Header.StatusCode; code {
	case http.StatusOK:
	case http.StatusNotFound:
		return providers.ErrNotFound
	default:
		return fmt.Errorf("%s returned status_code %d", method, code)
	}

	if err := json.Unmarshal(env.Message.Body, out); err != nil {
		return fmt.Errorf("failed to parse %s body: %w", method, err)
	}
	return nil
}

// SearchTrack returns the best track with lyrics for the given name and artist
func (c *Client) SearchTrack(ctx context.Context, track, artist string) (*Track, error) {
	params := url.Values{}
	params.Set("q_track", track)
	params.Set("q_artist", artist)
	params.Set("f_has_lyrics", "1")
	params.Set("page_size", "1")

	var body SearchBody
	if err := c.call(ctx, "track.search", params, &body); err != nil {
		return nil, err
	}
	if len(body.TrackList) == 0 {
		return nil, providers.ErrNotFound
	}
	return &body.TrackList[0].Track, nil
}

// GetLyrics returns the plain lyrics body for a track id
func (c *Client) GetLyrics(ctx context.Context, trackID int64) (string, error) {
	params := url.Values{}
	params.Set("track_id", strconv.FormatInt(trackID, 10))

	var body LyricsBody
	if err := c.call(ctx, "track.lyrics.get", params, &body); err != nil {
		return "", err
	}
	if body.Lyrics == nil {
		return "", nil
	}
	return body.Lyrics.LyricsBody, nil
}

// GetSubtitle returns the LRC subtitle body for a track id, empty when not available
func (c *Client) GetSubtitle(ctx context.Context, trackID int64) (string, error) {
	params := url.Values{}
	params.Set("track_id", strconv.FormatInt(trackID, 10))
	params.Set("subtitle_format", "lrc")

	var body SubtitleBody
	if err := c.call(ctx, "track.subtitle.get", params, &body); err != nil {
		return "", err
	}
	if body.Subtitle == nil {
		return "", nil
	}
	return body.Subtitle.SubtitleBody, nil
}
