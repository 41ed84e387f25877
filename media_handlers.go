package main

import (
	"context"
	"encoding/json"
	"errors"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/providers"
	"karaoke-api-go/services/recordings"
	"karaoke-api-go/services/spotify"
	"karaoke-api-go/services/youtube"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const defaultRecordingsLimit = 50

// getTrackMetadata returns streaming-platform metadata, cached for the lyrics TTL.
// In cache-only mode a miss is not fetched.
func getTrackMetadata(ctx context.Context, trackID string) (*spotify.Track, string, error) {
	key := trackKeyPrefix + trackID

	var cached spotify.Track
	if getCachedJSON(key, &cached) && cached.ID != "" {
		return &cached, "HIT", nil
	}
	if isCacheOnly(ctx) {
		return nil, "MISS", errCacheOnlyMiss
	}

	track, err := spotifyClient.GetTrack(ctx, trackID)
	if err != nil {
		return nil, "MISS", err
	}
	setCachedJSON(key, track, conf.LyricsCacheTTL())
	return track, "MISS", nil
}

func getTrack(w http.ResponseWriter, r *http.Request) {
	trackID := mux.Vars(r)["trackId"]
	resp := Respond(w, r)

	track, cacheStatus, err := getTrackMetadata(r.Context(), trackID)
	resp.SetCacheStatus(cacheStatus)
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrNotFound):
			resp.Error(http.StatusNotFound, "track not found")
		case errors.Is(err, providers.ErrNotConfigured):
			resp.Error(http.StatusServiceUnavailable, "track metadata is not configured")
		case errors.Is(err, errCacheOnlyMiss):
			writeLookupError(resp, w, lyricsRequest{TrackID: trackID}, err)
		default:
			log.Errorf("%s Track lookup failed for %s: %v", logcolors.LogSpotify, trackID, err)
			resp.Error(http.StatusBadGateway, "failed to fetch track metadata")
		}
		return
	}

	resp.JSON(map[string]interface{}{
		"track":    track,
		"identity": track.Identity(),
	})
}

// findKaraokeVideo returns the best karaoke or instrumental video for ?s&a
func findKaraokeVideo(w http.ResponseWriter, r *http.Request) {
	trackName := queryParam(r, "s", "song", "songName")
	artistName := queryParam(r, "a", "artist", "artistName")
	resp := Respond(w, r)

	key := buildKaraokeCacheKey(trackName, artistName)
	var cached youtube.Video
	if trackName != "" && getCachedJSON(key, &cached) && cached.VideoID != "" {
		resp.SetCacheStatus("HIT").JSON(cached)
		return
	}
	resp.SetCacheStatus("MISS")
	if isCacheOnly(r.Context()) {
		writeLookupError(resp, w, lyricsRequest{}, errCacheOnlyMiss)
		return
	}

	video, err := youtubeClient.FindKaraoke(r.Context(), trackName, artistName)
	if err != nil {
		switch {
		case errors.Is(err, youtube.ErrTrackRequired):
			resp.Error(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, providers.ErrNotConfigured):
			resp.Error(http.StatusServiceUnavailable, "video search is not configured")
		case errors.Is(err, providers.ErrNotFound):
			resp.Error(http.StatusNotFound, "no karaoke video found")
		default:
			log.Errorf("%s Search failed for %s - %s: %v", logcolors.LogYouTube, artistName, trackName, err)
			resp.Error(http.StatusBadGateway, "video search failed")
		}
		return
	}

	setCachedJSON(key, video, conf.LyricsCacheTTL())
	resp.JSON(video)
}

func appendRecording(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	var rec recordings.Recording
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		resp.Error(http.StatusBadRequest, "invalid JSON body")
		return
	}

	saved, err := ledger.Append(rec)
	if err != nil {
		if errors.Is(err, recordings.ErrInvalidRecording) {
			resp.Error(http.StatusBadRequest, err.Error())
			return
		}
		log.Errorf("%s Append failed: %v", logcolors.LogRecordings, err)
		resp.Error(http.StatusInternalServerError, "failed to save recording")
		return
	}
	resp.Status(http.StatusCreated, saved)
}

func listRecordings(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecordingsLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	list, err := ledger.List(limit)
	if err != nil {
		log.Errorf("%s List failed: %v", logcolors.LogRecordings, err)
		Respond(w, r).Error(http.StatusInternalServerError, "failed to list recordings")
		return
	}
	Respond(w, r).JSON(map[string]interface{}{
		"count":      len(list),
		"total":      ledger.Count(),
		"recordings": list,
	})
}
