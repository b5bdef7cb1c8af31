package spinebox

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// cacheBucket holds one JSON CacheRecord per bundle id.
const cacheBucket = "spineCache"

// ErrNotCached is returned by Cache.Get for an unknown id.
var ErrNotCached = errors.New("spinebox: bundle not cached")

// Cache persists ingested bundles across restarts. Every failure is a
// *CacheError.
type Cache interface {
	Init(ctx context.Context) error
	Set(ctx context.Context, rec CacheRecord) error
	Get(ctx context.Context, id string) (CacheRecord, error)
	// List returns all records, oldest first.
	List(ctx context.Context) ([]CacheRecord, error)
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Close() error
}

// BoltCache is a Cache in a single bbolt file.
type BoltCache struct {
	Path string
	// Timeout bounds waiting for the file lock on Init.
	Timeout time.Duration

	db *bolt.DB
}

// NewBoltCache returns a cache stored at path. Init opens it.
func NewBoltCache(path string) *BoltCache {
	return &BoltCache{Path: path, Timeout: time.Second}
}

// Init opens the database and creates the bucket.
func (c *BoltCache) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &CacheError{Op: "init", Err: err}
	}
	if c.db != nil {
		return nil
	}
	if dir := filepath.Dir(c.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &CacheError{Op: "init", Err: err}
		}
	}
	db, err := bolt.Open(c.Path, 0o600, &bolt.Options{Timeout: c.Timeout})
	if err != nil {
		return &CacheError{Op: "init", Err: err}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		return err
	})
	if err != nil {
		db.Close()
		return &CacheError{Op: "init", Err: err}
	}
	c.db = db
	return nil
}

func (c *BoltCache) ready(ctx context.Context, op, id string) error {
	if c.db == nil {
		return &CacheError{Op: op, ID: id, Err: errors.New("cache not initialized")}
	}
	if err := ctx.Err(); err != nil {
		return &CacheError{Op: op, ID: id, Err: err}
	}
	return nil
}

// Set stores rec under rec.ID, replacing any previous record.
func (c *BoltCache) Set(ctx context.Context, rec CacheRecord) error {
	if err := c.ready(ctx, "set", rec.ID); err != nil {
		return err
	}
	if rec.ID == "" {
		return &CacheError{Op: "set", Err: errors.New("record has no id")}
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return &CacheError{Op: "set", ID: rec.ID, Err: err}
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).Put([]byte(rec.ID), buf)
	})
	if err != nil {
		return &CacheError{Op: "set", ID: rec.ID, Err: err}
	}
	return nil
}

// Get returns the record stored under id, or ErrNotCached.
func (c *BoltCache) Get(ctx context.Context, id string) (CacheRecord, error) {
	if err := c.ready(ctx, "get", id); err != nil {
		return CacheRecord{}, err
	}
	var rec CacheRecord
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(cacheBucket)).Get([]byte(id))
		if v == nil {
			return ErrNotCached
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return CacheRecord{}, &CacheError{Op: "get", ID: id, Err: err}
	}
	return rec, nil
}

// List returns every record sorted by creation time, then id.
func (c *BoltCache) List(ctx context.Context) ([]CacheRecord, error) {
	if err := c.ready(ctx, "list", ""); err != nil {
		return nil, err
	}
	var out []CacheRecord
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).ForEach(func(k, v []byte) error {
			var rec CacheRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return &CacheError{Op: "list", ID: string(k), Err: err}
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		var ce *CacheError
		if errors.As(err, &ce) {
			return nil, ce
		}
		return nil, &CacheError{Op: "list", Err: err}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Remove deletes the record stored under id. Unknown ids are not an error.
func (c *BoltCache) Remove(ctx context.Context, id string) error {
	if err := c.ready(ctx, "remove", id); err != nil {
		return err
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).Delete([]byte(id))
	})
	if err != nil {
		return &CacheError{Op: "remove", ID: id, Err: err}
	}
	return nil
}

// Clear deletes every record.
func (c *BoltCache) Clear(ctx context.Context) error {
	if err := c.ready(ctx, "clear", ""); err != nil {
		return err
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(cacheBucket)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket([]byte(cacheBucket))
		return err
	})
	if err != nil {
		return &CacheError{Op: "clear", Err: err}
	}
	return nil
}

// Close releases the database file.
func (c *BoltCache) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		return &CacheError{Op: "close", Err: err}
	}
	return nil
}
