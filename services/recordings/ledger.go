// Package recordings keeps a ledger of karaoke performances the client has
// archived. The upload happens elsewhere; the ledger only remembers where it went.
package recordings

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/storage"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "recordings"

// ErrInvalidRecording is returned when a recording is missing its id or url
var ErrInvalidRecording = errors.New("recording id and url are required")

// Recording is one archived performance
type Recording struct {
	ID         string  `json:"id"`
	TrackName  string  `json:"trackName"`
	ArtistName string  `json:"artistName"`
	Duration   float64 `json:"duration"`
	RecordedAt string  `json:"recordedAt"`
	URL        string  `json:"url"`
	Timestamp  int64   `json:"timestamp"`
}

// Ledger is an append-only list of recordings in a bbolt bucket.
// Keys are the bucket sequence, so iteration order is insertion order.
type Ledger struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens (or creates) the ledger at dbPath
func Open(dbPath string) (*Ledger, error) {
	db, err := storage.Open(dbPath, bucketName)
	if err != nil {
		return nil, err
	}
	log.Infof("%s Ledger opened at %s", logcolors.LogRecordings, dbPath)
	return &Ledger{db: db, now: time.Now}, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.db.Close()
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// Append adds a recording. RecordedAt and Timestamp are filled in when missing.
func (l *Ledger) Append(rec Recording) (Recording, error) {
	rec.ID = strings.TrimSpace(rec.ID)
	rec.URL = strings.TrimSpace(rec.URL)
	if rec.ID == "" || rec.URL == "" {
		return Recording{}, ErrInvalidRecording
	}

	now := l.now().UTC()
	if rec.Timestamp == 0 {
		rec.Timestamp = now.UnixMilli()
	}
	if rec.RecordedAt == "" {
		rec.RecordedAt = now.Format(time.RFC3339)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return Recording{}, fmt.Errorf("failed to encode recording: %w", err)
	}

	err = l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(sequenceKey(seq), data)
	})
	if err != nil {
		return Recording{}, fmt.Errorf("failed to append recording: %w", err)
	}

	log.Infof("%s Recorded %s - %s (%s)", logcolors.LogRecordings, rec.ArtistName, rec.TrackName, rec.ID)
	return rec, nil
}

// List returns recordings newest first. limit <= 0 returns all of them.
func (l *Ledger) List(limit int) ([]Recording, error) {
	recordings := []Recording{}
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketName)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(recordings) >= limit {
				break
			}
			var rec Recording
			if err := json.Unmarshal(v, &rec); err != nil {
				log.Warnf("%s Skipping unreadable entry %x: %v", logcolors.LogRecordings, k, err)
				continue
			}
			recordings = append(recordings, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recordings, nil
}

// Count returns the number of entries
func (l *Ledger) Count() int {
	count := 0
	l.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return count
}
