package cache

import (
	"encoding/json"
	"fmt"
	"karaoke-api-go/logcolors"
	"karaoke-api-go/storage"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "cache"

// Store is a string cache with per-entry expiry
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string, ttl time.Duration) error
	Delete(key string) error
	Clear() error
	Stats() (numKeys int, sizeInKB int)
	Close() error
}

// PersistentCache wraps BoltDB with an in-memory mirror for fast access
type PersistentCache struct {
	db                 *bolt.DB
	memCache           sync.Map
	dbPath             string
	compressionEnabled bool
	now                func() time.Time
}

// CacheEntry is the stored form of a value (possibly compressed)
type CacheEntry struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expiresAt,omitempty"` // unix seconds, 0 = never
}

func (e CacheEntry) expired(now time.Time) bool {
	return e.ExpiresAt > 0 && now.Unix() >= e.ExpiresAt
}

// NewPersistentCache opens (or creates) the cache database at dbPath
func NewPersistentCache(dbPath string, compressionEnabled bool) (*PersistentCache, error) {
	db, err := storage.Open(dbPath, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	pc := &PersistentCache{
		db:                 db,
		dbPath:             dbPath,
		compressionEnabled: compressionEnabled,
		now:                time.Now,
	}

	if err := pc.loadToMemory(); err != nil {
		log.Warnf("%s Failed to preload cache to memory: %v", logcolors.LogCache, err)
	}

	log.Infof("%s Persistent cache initialized at %s (compression: %v)", logcolors.LogCacheInit, dbPath, compressionEnabled)
	return pc, nil
}

// loadToMemory loads all live entries from disk to memory
func (pc *PersistentCache) loadToMemory() error {
	count := 0
	now := pc.now()
	err := pc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var entry CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("%s Failed to unmarshal cache entry for key %s: %v", logcolors.LogCache, string(k), err)
				return nil
			}
			if entry.expired(now) {
				return nil
			}
			pc.memCache.Store(string(k), entry)
			count++
			return nil
		})
	})
	if err != nil {
		return err
	}

	log.Infof("%s Loaded %d entries from disk to memory", logcolors.LogCache, count)
	return nil
}

func (pc *PersistentCache) decode(key string, entry CacheEntry) (string, bool) {
	decompressed, err := decodeValue(entry.Value)
	if err != nil {
		log.Errorf("%s Error decompressing cache value for key %s: %v", logcolors.LogCache, key, err)
		return "", false
	}
	return decompressed, true
}

// Get retrieves a live value (memory first, then disk). Expired entries are misses.
func (pc *PersistentCache) Get(key string) (string, bool) {
	now := pc.now()

	if v, ok := pc.memCache.Load(key); ok {
		entry := v.(CacheEntry)
		if entry.expired(now) {
			pc.memCache.Delete(key)
			return "", false
		}
		return pc.decode(key, entry)
	}

	var entry CacheEntry
	found := false
	pc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return err
		}
		found = true
		return nil
	})

	if !found || entry.expired(now) {
		return "", false
	}

	pc.memCache.Store(key, entry)
	return pc.decode(key, entry)
}

// Set stores a value in memory and on disk. A ttl <= 0 never expires.
func (pc *PersistentCache) Set(key, value string, ttl time.Duration) error {
	finalValue := value
	// A plain value that happens to start with the marker must be compressed to read back correctly
	if pc.compressionEnabled || strings.HasPrefix(value, gzipMarker) {
		compressed, err := compressValue(value)
		if err != nil {
			log.Errorf("%s Error compressing cache value for key %s: %v", logcolors.LogCache, key, err)
			return err
		}
		finalValue = compressed
	}

	entry := CacheEntry{Value: finalValue}
	if ttl > 0 {
		entry.ExpiresAt = pc.now().Add(ttl).Unix()
	}

	pc.memCache.Store(key, entry)

	return pc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

// Delete removes a key from cache
func (pc *PersistentCache) Delete(key string) error {
	pc.memCache.Delete(key)

	return pc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(key))
	})
}

// Clear removes all entries from cache
func (pc *PersistentCache) Clear() error {
	pc.memCache.Range(func(key, value interface{}) bool {
		pc.memCache.Delete(key)
		return true
	})

	return pc.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// SweepExpired deletes every expired entry from memory and disk and returns how many went
func (pc *PersistentCache) SweepExpired() (int, error) {
	now := pc.now()
	var expired [][]byte

	err := pc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		err := b.ForEach(func(k, v []byte) error {
			var entry CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil || entry.expired(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, k := range expired {
		pc.memCache.Delete(string(k))
	}
	if len(expired) > 0 {
		log.Infof("%s Removed %d expired entries", logcolors.LogCacheSweep, len(expired))
	}
	return len(expired), nil
}

// Range iterates over all cache entries held in memory
func (pc *PersistentCache) Range(fn func(key string, entry CacheEntry) bool) {
	pc.memCache.Range(func(k, v interface{}) bool {
		return fn(k.(string), v.(CacheEntry))
	})
}

// Stats returns cache statistics
func (pc *PersistentCache) Stats() (numKeys int, sizeInKB int) {
	pc.memCache.Range(func(k, v interface{}) bool {
		entry := v.(CacheEntry)
		numKeys++
		sizeInKB += len(k.(string)) + len(entry.Value)
		return true
	})
	sizeInKB = sizeInKB / 1024
	return
}

// Close closes the database connection
func (pc *PersistentCache) Close() error {
	if pc.db != nil {
		return pc.db.Close()
	}
	return nil
}
