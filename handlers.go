package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/lrc"
	"karaoke-api-go/services/lyrics"
	"karaoke-api-go/services/providers"
	"karaoke-api-go/services/userlyrics"
	"karaoke-api-go/stats"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var (
	errIdentityRequired = errors.New("song name or artist name not provided")
	errCacheOnlyMiss    = errors.New("rate limit exceeded and no cached lyrics are available for this query")
)

// lyricsRequest is a lookup by track identity, optionally with a streaming track id
type lyricsRequest struct {
	Track   providers.TrackIdentity
	TrackID string
}

// lyricsResult carries the answer and where it came from. CacheStatus is set even
// when the lookup fails.
type lyricsResult struct {
	Track       providers.TrackIdentity
	Lines       []lrc.Line
	Source      string
	Origin      providers.Origin
	CacheStatus string
}

// queryParam returns the first non-empty value among the aliases
func queryParam(r *http.Request, aliases ...string) string {
	q := r.URL.Query()
	for _, name := range aliases {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func parseLyricsRequest(r *http.Request) lyricsRequest {
	req := lyricsRequest{
		Track: providers.TrackIdentity{
			Name:   queryParam(r, "s", "song", "songName"),
			Artist: queryParam(r, "a", "artist", "artistName"),
			Album:  queryParam(r, "al", "album", "albumName"),
		},
		TrackID: queryParam(r, "trackId", "id"),
	}
	if d := queryParam(r, "d", "duration"); d != "" {
		if seconds, err := strconv.ParseFloat(d, 64); err == nil && seconds > 0 {
			req.Track.DurationSeconds = seconds
		}
	}
	return req
}

func isCacheOnly(ctx context.Context) bool {
	cacheOnly, _ := ctx.Value(cacheOnlyModeKey).(bool)
	return cacheOnly
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// lookupLyrics answers from the user store, then the cache, then the resolver.
// In cache-only mode the resolver is never called.
func lookupLyrics(ctx context.Context, req lyricsRequest) (*lyricsResult, error) {
	result := &lyricsResult{Track: req.Track, CacheStatus: "MISS"}

	if req.TrackID != "" && userLyrics != nil {
		lines, found, err := userLyrics.Load(req.TrackID)
		if err != nil {
			log.Warnf("%s Lookup failed for %s: %v", logcolors.LogUserLyrics, req.TrackID, err)
		}
		if found && len(lines) > 0 {
			stats.Get().RecordUserLyricsHit()
			stats.Get().RecordSource(string(providers.OriginUser))
			log.Infof("%s Serving uploaded lyrics for %s", logcolors.LogUserLyrics, req.TrackID)
			result.Lines = lines
			result.Source = string(providers.OriginUser)
			result.Origin = providers.OriginUser
			result.CacheStatus = "USER"
			return result, nil
		}
	}

	track, err := completeIdentity(ctx, req)
	if err != nil {
		return result, err
	}
	req.Track = track
	result.Track = track

	cacheKey := buildNormalizedCacheKey(req.Track, req.TrackID)

	if cached, ok := getCachedLyrics(cacheKey); ok {
		stats.Get().RecordCacheHit()
		stats.Get().RecordSource(cached.SourceName)
		log.Infof("%s Found cached lyrics for: %s", logcolors.LogCacheLyrics, req.Track)
		result.Lines = cached.Lines
		result.Source = cached.SourceName
		result.Origin = cached.Origin
		result.CacheStatus = "HIT"
		return result, nil
	}

	if reason, found := getNegativeCache(cacheKey); found {
		stats.Get().RecordNegativeCacheHit()
		log.Infof("%s Returning cached 'no lyrics' response for: %s", logcolors.LogCacheNegative, req.Track)
		result.CacheStatus = "NEGATIVE_HIT"
		return result, fmt.Errorf("%w (%s)", lyrics.ErrNoLyrics, reason)
	}

	stats.Get().RecordCacheMiss()

	if isCacheOnly(ctx) {
		log.Warnf("%s Cache-only mode but no cache found for: %s", logcolors.LogCacheLyrics, req.Track)
		return result, errCacheOnlyMiss
	}

	res, err := resolveShared(ctx, cacheKey, req)
	if err != nil {
		if errors.Is(err, lyrics.ErrNoLyrics) {
			stats.Get().RecordNoLyrics()
		}
		return result, err
	}

	stats.Get().RecordSource(res.SourceName)
	result.Lines = res.Lines
	result.Source = res.SourceName
	result.Origin = res.Origin
	return result, nil
}

// completeIdentity fills in the track name and artist from the streaming platform
// when only a track id was given
func completeIdentity(ctx context.Context, req lyricsRequest) (providers.TrackIdentity, error) {
	if req.Track.Name != "" || req.Track.Artist != "" {
		return req.Track, nil
	}
	if req.TrackID == "" || spotifyClient == nil || !spotifyClient.Configured() {
		return req.Track, errIdentityRequired
	}

	track, _, err := getTrackMetadata(ctx, req.TrackID)
	if err != nil {
		if errors.Is(err, providers.ErrNotFound) {
			return req.Track, fmt.Errorf("%w: unknown track id %s", errIdentityRequired, req.TrackID)
		}
		return req.Track, err
	}
	return track.Identity(), nil
}

// resolveShared collapses identical concurrent lookups into one resolver run.
// The winner writes the positive or negative cache entry.
func resolveShared(ctx context.Context, cacheKey string, req lyricsRequest) (*lyrics.Resolution, error) {
	for attempt := 0; ; attempt++ {
		v, err, shared := lookupGroup.Do(cacheKey, func() (interface{}, error) {
			res, err := resolver.Resolve(ctx, req.Track, req.TrackID)
			if err != nil {
				if shouldNegativeCache(err) {
					setNegativeCache(cacheKey, err.Error())
				}
				return nil, err
			}
			setCachedLyrics(cacheKey, res)
			return res, nil
		})
		if err != nil {
			// A follower inherits the leader's cancellation; retry under its own context
			if shared && attempt == 0 && ctx.Err() == nil && isContextError(err) {
				log.Infof("%s Shared lookup was cancelled, retrying for: %s", logcolors.LogRequest, req.Track)
				continue
			}
			return nil, err
		}
		if shared {
			log.Debugf("%s Joined in-flight lookup for: %s", logcolors.LogRequest, req.Track)
		}
		return v.(*lyrics.Resolution), nil
	}
}

// writeLookupError maps a lookup failure to an HTTP answer
func writeLookupError(resp *APIResponse, w http.ResponseWriter, req lyricsRequest, err error) {
	switch {
	case errors.Is(err, errIdentityRequired):
		resp.Error(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errCacheOnlyMiss):
		stats.Get().RecordRateLimit("exceeded")
		w.Header().Set("Retry-After", "60")
		resp.Status(http.StatusTooManyRequests, map[string]interface{}{
			"error":   "Rate limit exceeded. This request requires cached data, but no cache is available for this query.",
			"message": "Please try again later or reduce your request rate.",
		})
	case errors.Is(err, lyrics.ErrNoLyrics):
		resp.Status(http.StatusNotFound, map[string]interface{}{
			"error":         "Lyrics not available for this track",
			"trackId":       req.TrackID,
			"uploadAllowed": true,
		})
	case errors.Is(err, providers.ErrNotConfigured):
		resp.Error(http.StatusServiceUnavailable, err.Error())
	case isContextError(err):
		log.Infof("%s Lookup abandoned for %s: %v", logcolors.LogRequest, req.Track, err)
		resp.Error(http.StatusServiceUnavailable, "lookup cancelled")
	default:
		log.Errorf("%s Lookup failed for %s: %v", logcolors.LogLyrics, req.Track, err)
		resp.Error(http.StatusBadGateway, "failed to fetch lyrics")
	}
}

func getLyrics(w http.ResponseWriter, r *http.Request) {
	req := parseLyricsRequest(r)

	result, err := lookupLyrics(r.Context(), req)
	resp := Respond(w, r).SetCacheStatus(result.CacheStatus)
	if err != nil {
		writeLookupError(resp, w, req, err)
		return
	}

	resp.SetSource(result.Source).JSON(LyricsResponse{
		TrackID:       req.TrackID,
		Track:         result.Track,
		Source:        result.Source,
		Origin:        result.Origin,
		Lyrics:        result.Lines,
		UploadAllowed: result.Origin != providers.OriginUser && req.TrackID != "",
	})
}

// ProviderLyricsResponse is the body of /{provider}/getLyrics
type ProviderLyricsResponse struct {
	Provider   string           `json:"provider"`
	Origin     providers.Origin `json:"origin"`
	SyncedText *string          `json:"syncedText,omitempty"`
	PlainText  *string          `json:"plainText,omitempty"`
	Lyrics     []lrc.Line       `json:"lyrics"`
}

// getLyricsWithProvider queries one named source directly, bypassing the waterfall
func getLyricsWithProvider(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(mux.Vars(r)["provider"])
	resp := Respond(w, r)

	p, err := providerRegistry.Get(name)
	if err != nil {
		resp.Status(http.StatusNotFound, map[string]interface{}{
			"error":     err.Error(),
			"providers": providerRegistry.List(),
		})
		return
	}

	req := parseLyricsRequest(r)
	if req.Track.Name == "" && req.Track.Artist == "" && req.TrackID == "" {
		resp.Error(http.StatusUnprocessableEntity, errIdentityRequired.Error())
		return
	}

	cacheKey := buildProviderCacheKey(p, req.Track, req.TrackID)
	var src providers.LyricsSource
	if getCachedJSON(cacheKey, &src) {
		stats.Get().RecordCacheHit()
		resp.SetCacheStatus("HIT")
	} else {
		stats.Get().RecordCacheMiss()
		if isCacheOnly(r.Context()) {
			writeLookupError(resp.SetCacheStatus("MISS"), w, req, errCacheOnlyMiss)
			return
		}

		fetched, err := p.Fetch(r.Context(), req.Track, providers.FetchOptions{StreamingTrackID: req.TrackID})
		resp.SetCacheStatus("MISS")
		if err != nil {
			switch {
			case errors.Is(err, providers.ErrNotFound):
				resp.Error(http.StatusNotFound, err.Error())
			case errors.Is(err, providers.ErrNotConfigured):
				resp.Error(http.StatusServiceUnavailable, fmt.Sprintf("%s is not configured", p.Name()))
			default:
				log.Errorf("%s Fetch failed: %v", logcolors.Provider(p.Name()), err)
				resp.Error(http.StatusBadGateway, err.Error())
			}
			return
		}
		src = *fetched
		setCachedJSON(cacheKey, src, conf.LyricsCacheTTL())
	}

	var lines []lrc.Line
	if src.HasSynced() {
		lines = lrc.Parse(*src.SyncedText)
	} else if src.HasPlain() {
		lines = lrc.FromPlainText(*src.PlainText, conf.Configuration.PlainTextSecondsPerLine)
	}

	stats.Get().RecordSource(p.Name())
	resp.SetSource(p.Name()).JSON(ProviderLyricsResponse{
		Provider:   p.Name(),
		Origin:     src.Origin,
		SyncedText: src.SyncedText,
		PlainText:  src.PlainText,
		Lyrics:     lines,
	})
}

// User lyrics

func saveUserLyrics(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	var body UserLyricsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		resp.Error(http.StatusBadRequest, "invalid JSON body")
		return
	}
	body.TrackID = strings.TrimSpace(body.TrackID)
	if body.TrackID == "" || strings.TrimSpace(body.LRCContent) == "" {
		resp.Error(http.StatusBadRequest, "trackId and lrcContent are required")
		return
	}

	lines := lrc.Parse(body.LRCContent)
	if len(lines) == 0 {
		resp.Error(http.StatusBadRequest, "lrcContent has no timed lines")
		return
	}

	track := providers.TrackIdentity{Name: body.TrackName, Artist: body.ArtistName}
	if err := userLyrics.Save(body.TrackID, track, body.LRCContent); err != nil {
		log.Errorf("%s Save failed for %s: %v", logcolors.LogUserLyrics, body.TrackID, err)
		resp.Error(http.StatusInternalServerError, "failed to save lyrics")
		return
	}
	if track.Name != "" || track.Artist != "" {
		deleteNegativeCache(buildNormalizedCacheKey(track, body.TrackID))
	}

	// Sessions already playing this track switch to the upload
	updated := 0
	if sessions != nil {
		updated = sessions.ReplaceLines(body.TrackID, lines, string(providers.OriginUser))
	}

	resp.Status(http.StatusCreated, map[string]interface{}{
		"trackId":         body.TrackID,
		"lines":           len(lines),
		"sessionsUpdated": updated,
	})
}

func getUserLyrics(w http.ResponseWriter, r *http.Request) {
	trackID := mux.Vars(r)["trackId"]
	resp := Respond(w, r)

	record, err := userLyrics.Get(trackID)
	if err != nil {
		if errors.Is(err, userlyrics.ErrNotFound) {
			resp.Error(http.StatusNotFound, err.Error())
			return
		}
		log.Errorf("%s Read failed for %s: %v", logcolors.LogUserLyrics, trackID, err)
		resp.Error(http.StatusInternalServerError, "failed to read lyrics")
		return
	}

	lines := lrc.Parse(record.LRCContent)

	// ?format=lrc downloads a normalized LRC file
	if r.URL.Query().Get("format") == "lrc" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.TrackID+".lrc"))
		w.Write([]byte(lrc.Format(lines)))
		return
	}

	resp.SetSource(string(providers.OriginUser)).JSON(map[string]interface{}{
		"trackId":    record.TrackID,
		"trackName":  record.TrackName,
		"artistName": record.ArtistName,
		"uploadedAt": record.UploadedAt,
		"lyrics":     lines,
	})
}

func deleteUserLyrics(w http.ResponseWriter, r *http.Request) {
	trackID := mux.Vars(r)["trackId"]
	if err := userLyrics.Delete(trackID); err != nil {
		log.Errorf("%s Delete failed for %s: %v", logcolors.LogUserLyrics, trackID, err)
		Respond(w, r).Error(http.StatusInternalServerError, "failed to delete lyrics")
		return
	}
	log.Infof("%s Deleted lyrics for %s", logcolors.LogUserLyrics, trackID)
	Respond(w, r).JSON(map[string]interface{}{"deleted": trackID})
}

func listUserLyrics(w http.ResponseWriter, r *http.Request) {
	records, err := userLyrics.List()
	if err != nil {
		Respond(w, r).Error(http.StatusInternalServerError, "failed to list lyrics")
		return
	}

	summaries := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, map[string]interface{}{
			"trackId":    rec.TrackID,
			"trackName":  rec.TrackName,
			"artistName": rec.ArtistName,
			"uploadedAt": rec.UploadedAt,
		})
	}
	Respond(w, r).JSON(map[string]interface{}{
		"count":  len(summaries),
		"tracks": summaries,
	})
}
