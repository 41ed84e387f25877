package storage

import (
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"
)

func TestOpen_CreatesDirectoryAndBuckets(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := Open(dbPath, "one", "two")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	err = db.View(func(tx *bolt.Tx) error {
		for _, name := range []string{"one", "two"} {
			if tx.Bucket([]byte(name)) == nil {
				t.Errorf("Expected bucket %q to exist", name)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath, "data")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte("data")).Put([]byte("k"), []byte("v"))
	})
	db.Close()

	db, err = Open(dbPath, "data")
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer db.Close()

	db.View(func(tx *bolt.Tx) error {
		if got := string(tx.Bucket([]byte("data")).Get([]byte("k"))); got != "v" {
			t.Errorf("Expected 'v', got %q", got)
		}
		return nil
	})
}
