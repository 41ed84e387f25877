package lyricstify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// SyncTypeLineSynced marks lyrics with per-line start times
const SyncTypeLineSynced = "LINE_SYNCED"

// Response is the proxy's /api/lyrics/{trackId} payload
type Response struct {
	Lyrics *struct {
		SyncType string `json:"syncType"`
		Language string `json:"language"`
		Lines    []Line `json:"lines"`
	} `json:"lyrics"`
}

// Line is one lyric line from the streaming platform
type Line struct {
	StartTimeMs Millis `json:"startTimeMs"`
	Words       string `json:"words"`
}

// Millis is a millisecond offset that the upstream sends either as a JSON number or a string
type Millis int64

func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid startTimeMs %q: %w", string(data), err)
	}
	*m = Millis(v)
	return nil
}
