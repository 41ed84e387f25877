package main

import (
	"encoding/json"
	"errors"
	"io"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/playback"
	"karaoke-api-go/services/providers"
	"karaoke-api-go/stats"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// createSession resolves lyrics for a track and starts a sync session over them
func createSession(w http.ResponseWriter, r *http.Request) {
	resp := Respond(w, r)

	var body CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		resp.Error(http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := lyricsRequest{
		Track: providers.TrackIdentity{
			Name:            strings.TrimSpace(body.TrackName),
			Artist:          strings.TrimSpace(body.ArtistName),
			Album:           strings.TrimSpace(body.AlbumName),
			DurationSeconds: body.Duration,
		},
		TrackID: strings.TrimSpace(body.TrackID),
	}

	result, err := lookupLyrics(r.Context(), req)
	resp.SetCacheStatus(result.CacheStatus)
	if err != nil {
		writeLookupError(resp, w, req, err)
		return
	}

	trackID := req.TrackID
	if trackID == "" {
		trackID = buildQuery(result.Track, "")
	}

	snapshot := sessions.Create(result.Lines, playback.SessionInfo{
		TrackID: trackID,
		Track:   result.Track.String(),
		Source:  result.Source,
	})
	stats.Get().RecordSessionCreated()

	resp.SetSource(result.Source).Status(http.StatusCreated, snapshot)
}

// readSampleTime accepts {"time": 12.3} or ?t=12.3
func readSampleTime(r *http.Request) (float64, error) {
	if t := r.URL.Query().Get("t"); t != "" {
		return strconv.ParseFloat(t, 64)
	}

	var body TimeSampleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, errors.New("missing time")
		}
		return 0, err
	}
	if body.Time == nil {
		return 0, errors.New("missing time")
	}
	return *body.Time, nil
}

// pushSessionTime feeds one player time sample to the session's cursor
func pushSessionTime(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	resp := Respond(w, r)

	t, err := readSampleTime(r)
	if err != nil {
		resp.Error(http.StatusBadRequest, "time must be a number of seconds")
		return
	}

	sample, err := sessions.Push(id, t)
	if err != nil {
		if errors.Is(err, playback.ErrSessionNotFound) {
			resp.Error(http.StatusNotFound, err.Error())
			return
		}
		resp.Error(http.StatusInternalServerError, err.Error())
		return
	}

	stats.Get().RecordSyncSample(sample.Scroll)
	resp.JSON(sample)
}

func getSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		Respond(w, r).Error(http.StatusNotFound, err.Error())
		return
	}
	Respond(w, r).JSON(snapshot)
}

func endSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := sessions.End(id); err != nil {
		Respond(w, r).Error(http.StatusNotFound, err.Error())
		return
	}
	Respond(w, r).JSON(map[string]interface{}{"ended": id})
}

// listSessions is an ops view of every live session, without the lyrics
func listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != conf.Configuration.CacheAccessToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list := sessions.List()
	for i := range list {
		list[i].Lines = nil
	}
	log.Debugf("%s Listing %d sessions", logcolors.LogSession, len(list))
	Respond(w, r).JSON(map[string]interface{}{
		"count":    len(list),
		"sessions": list,
	})
}
