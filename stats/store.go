package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/storage"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const (
	statsBucketName = "stats"
	statsKey        = "server_stats"
)

// PersistedStats is the on-disk form of the cumulative counters
type PersistedStats struct {
	Counters        map[string]int64 `json:"counters"`
	MinResponseTime int64            `json:"min_response_time"`
	MaxResponseTime int64            `json:"max_response_time"`
	SourceUsage     map[string]int64 `json:"source_usage"`
	LastSaved       time.Time        `json:"last_saved"`
	FirstStarted    time.Time        `json:"first_started"`
}

// Store persists a Stats instance so counters survive restarts
type Store struct {
	db    *bolt.DB
	stats *Stats
	mu    sync.Mutex
	wg    sync.WaitGroup
}

// NewStore opens the stats database at dbPath for s
func NewStore(dbPath string, s *Stats) (*Store, error) {
	db, err := storage.Open(dbPath, statsBucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	log.Infof("%s Stats store initialized at %s", logcolors.LogStats, dbPath)
	return &Store{db: db, stats: s}, nil
}

// Load applies previously saved counters to the stats instance
func (st *Store) Load() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	var persisted PersistedStats
	found := false
	err := st.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(statsBucketName)).Get([]byte(statsKey))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &persisted)
	})
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	if !found {
		return nil
	}

	s := st.stats
	for name, counter := range s.counters() {
		counter.Store(persisted.Counters[name])
	}
	if persisted.MinResponseTime > 0 && persisted.MinResponseTime < maxInt64 {
		s.minResponseTime.Store(persisted.MinResponseTime)
	}
	if persisted.MaxResponseTime > 0 {
		s.maxResponseTime.Store(persisted.MaxResponseTime)
	}
	for name, count := range persisted.SourceUsage {
		counter := &atomic.Int64{}
		counter.Store(count)
		s.sourceUsage.Store(name, counter)
	}
	if !persisted.FirstStarted.IsZero() {
		s.StartTime = persisted.FirstStarted
	}

	log.Infof("%s Loaded persisted stats (total requests: %d, first started: %s)",
		logcolors.LogStats, s.TotalRequests.Load(), s.StartTime.Format(time.RFC3339))
	return nil
}

// Save writes the current counters to disk
func (st *Store) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.stats
	persisted := PersistedStats{
		Counters:        make(map[string]int64),
		MinResponseTime: s.minResponseTime.Load(),
		MaxResponseTime: s.maxResponseTime.Load(),
		SourceUsage:     s.SourceUsageSnapshot(),
		LastSaved:       time.Now(),
		FirstStarted:    s.StartTime,
	}
	for name, counter := range s.counters() {
		persisted.Counters[name] = counter.Load()
	}

	data, err := json.Marshal(persisted)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	err = st.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(statsBucketName)).Put([]byte(statsKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// StartAutoSave saves every interval until ctx is done
func (st *Store) StartAutoSave(ctx context.Context, interval time.Duration) {
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := st.Save(); err != nil {
					log.Warnf("%s Failed to auto-save stats: %v", logcolors.LogStats, err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	log.Infof("%s Started auto-save with interval %v", logcolors.LogStats, interval)
}

// Close waits for auto-save to stop, saves once more and closes the database.
// Cancel the auto-save context before calling Close.
func (st *Store) Close() error {
	st.wg.Wait()

	if err := st.Save(); err != nil {
		log.Warnf("%s Failed to save stats on close: %v", logcolors.LogStats, err)
	} else {
		log.Infof("%s Stats saved on shutdown", logcolors.LogStats)
	}
	return st.db.Close()
}
