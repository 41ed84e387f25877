// Package userlyrics keeps LRC files uploaded by users, keyed by streaming track id.
// An uploaded file takes precedence over every automatic source.
package userlyrics

import (
	"encoding/json"
	"errors"
	"fmt"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/services/lrc"
	"karaoke-api-go/services/providers"
	"karaoke-api-go/storage"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketName = "user_lyrics"
	keyPrefix  = "user_lyrics_"
)

var (
	// ErrNotFound is returned when no lyrics were uploaded for the track
	ErrNotFound = errors.New("user lyrics not found")

	// ErrInvalidTrackID is returned for an empty track id
	ErrInvalidTrackID = errors.New("track id is required")
)

// Record is the stored upload
type Record struct {
	TrackID    string    `json:"trackId"`
	TrackName  string    `json:"trackName"`
	ArtistName string    `json:"artistName"`
	LRCContent string    `json:"lrcContent"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Store persists uploads in a bbolt bucket
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens (or creates) the store at dbPath
func Open(dbPath string) (*Store, error) {
	db, err := storage.Open(dbPath, bucketName)
	if err != nil {
		return nil, err
	}
	log.Infof("%s Store opened at %s", logcolors.LogUserLyrics, dbPath)
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(trackID string) []byte {
	return []byte(keyPrefix + trackID)
}

// Save stores rawLRC for trackID, replacing any previous upload. The content is
// kept verbatim; it is parsed on every read.
func (s *Store) Save(trackID string, track providers.TrackIdentity, rawLRC string) error {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return ErrInvalidTrackID
	}

	record := Record{
		TrackID:    trackID,
		TrackName:  track.Name,
		ArtistName: track.Artist,
		LRCContent: rawLRC,
		UploadedAt: s.now().UTC(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode user lyrics: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put(recordKey(trackID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save user lyrics: %w", err)
	}

	log.Infof("%s Saved lyrics for %s (%s - %s)", logcolors.LogUserLyrics, trackID, track.Artist, track.Name)
	return nil
}

// Get returns the stored record for trackID
func (s *Store) Get(trackID string) (*Record, error) {
	if trackID == "" {
		return nil, ErrNotFound
	}

	var record Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get(recordKey(trackID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read user lyrics for %s: %w", trackID, err)
	}
	return &record, nil
}

// Load returns the parsed lines for trackID. found is false when nothing was
// uploaded or the stored record cannot be decoded.
func (s *Store) Load(trackID string) (lines []lrc.Line, found bool, err error) {
	record, err := s.Get(trackID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		log.Warnf("%s Ignoring unreadable record for %s: %v", logcolors.LogUserLyrics, trackID, err)
		return nil, false, nil
	}
	return lrc.Parse(record.LRCContent), true, nil
}

// Delete removes the upload for trackID. Deleting a missing track is not an error.
func (s *Store) Delete(trackID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete(recordKey(trackID))
	})
}

// List returns every stored record, newest upload first
func (s *Store) List() ([]Record, error) {
	records := []Record{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				log.Warnf("%s Skipping unreadable record %s: %v", logcolors.LogUserLyrics, string(k), err)
				return nil
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UploadedAt.After(records[j].UploadedAt)
	})
	return records, nil
}
