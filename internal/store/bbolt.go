package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/yuxishi/aws-quota-compare/internal/model"
)

const (
	snapshotBucket = "snapshots"

	// entryVersion guards the on-disk schema. A version mismatch is a miss,
	// never a crash.
	entryVersion = 1
)

// persistedEntry is the on-disk shape of a cache entry.
type persistedEntry struct {
	Version      int                 `json:"version"`
	AccountID    string              `json:"account_id"`
	AccountLabel string              `json:"account_label"`
	Region       string              `json:"region"`
	FetchedAt    time.Time           `json:"fetched_at"`
	Records      []model.QuotaRecord `json:"records"`
}

// BoltStore implements Store on a single bbolt file. Bolt serializes writes
// and gives readers a consistent snapshot, which covers the atomic-put and
// no-torn-read requirements.
type BoltStore struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, bolt.DefaultOptions)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Get(ctx context.Context, key model.CacheKey) (*model.CacheEntry, error) {
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(snapshotBucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key.String())); v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}

	var pe persistedEntry
	if err := json.Unmarshal(raw, &pe); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	if pe.Version != entryVersion || pe.AccountID != key.AccountID || pe.Region != key.Region {
		return nil, fmt.Errorf("%w: %s: version %d", ErrCorrupt, key, pe.Version)
	}

	return &model.CacheEntry{
		Catalog: model.Catalog{
			AccountID:    pe.AccountID,
			AccountLabel: pe.AccountLabel,
			Region:       pe.Region,
			Records:      pe.Records,
		},
		FetchedAt: pe.FetchedAt,
	}, nil
}

func (s *BoltStore) Put(ctx context.Context, key model.CacheKey, entry model.CacheEntry) error {
	pe := persistedEntry{
		Version:      entryVersion,
		AccountID:    key.AccountID,
		AccountLabel: entry.Catalog.AccountLabel,
		Region:       key.Region,
		FetchedAt:    entry.FetchedAt,
		Records:      entry.Catalog.Records,
	}
	raw, err := json.Marshal(pe)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(snapshotBucket))
		if b == nil {
			return fmt.Errorf("bucket %s missing", snapshotBucket)
		}
		return b.Put([]byte(key.String()), raw)
	})
}

func (s *BoltStore) Delete(ctx context.Context, key model.CacheKey) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(snapshotBucket))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key.String()))
	})
}

func (s *BoltStore) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(snapshotBucket)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(snapshotBucket))
		return err
	})
}

func (s *BoltStore) Keys(ctx context.Context) ([]model.CacheKey, error) {
	var keys []model.CacheKey
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(snapshotBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			key, err := model.ParseCacheKey(string(k))
			if err != nil {
				// unparseable keys are ignored, not fatal
				return nil
			}
			keys = append(keys, key)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
