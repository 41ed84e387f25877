package musixmatch

import "encoding/json"

// Envelope is the wrapper every Musixmatch endpoint responds with.
// Body is decoded lazily: on errors the API sends an empty JSON array instead of an object.
type Envelope struct {
	Message struct {
		Header struct {
			StatusCode  int     `json:"status_code"`
			ExecuteTime float64 `json:"execute_time"`
		} `json:"header"`
		Body json.RawMessage `json:"body"`
	} `json:"message"`
}

// SearchBody is the body of track.search
type SearchBody struct {
	TrackList []struct {
		Track Track `json:"track"`
	} `json:"track_list"`
}

// Track is the subset of track fields the provider uses
type Track struct {
	TrackID     int64  `json:"track_id"`
	TrackName   string `json:"track_name"`
	ArtistName  string `json:"artist_name"`
	AlbumName   string `json:"album_name"`
	TrackLength int    `json:"track_length"`
	HasLyrics   int    `json:"has_lyrics"`
	HasSubtitle int    `json:"has_subtitles"`
}

// LyricsBody is the body of track.lyrics.get
type LyricsBody struct {
	Lyrics *struct {
		LyricsID   int64  `json:"lyrics_id"`
		LyricsBody string `json:"lyrics_body"`
		Language   string `json:"lyrics_language"`
	} `json:"lyrics"`
}

// SubtitleBody is the body of track.subtitle.get
type SubtitleBody struct {
	Subtitle *struct {
		SubtitleID   int64  `json:"subtitle_id"`
		SubtitleBody string `json:"subtitle_body"`
	} `json:"subtitle"`
}
