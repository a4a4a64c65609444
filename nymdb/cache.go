package nymdb

import (
	"encoding/json"

	"github.com/nymbook/nymbook/directory"
	bolt "go.etcd.io/bbolt"
)

// NymCache is a persistent implementation of the directory.Cache interface
// on top of the nymbook database, letting cached summaries survive
// restarts.
type NymCache struct {
	db *DB
}

// A compile time check to ensure NymCache implements directory.Cache.
var _ directory.Cache = (*NymCache)(nil)

// NymCache returns the database's persistent nym cache.
func (d *DB) NymCache() *NymCache {
	return &NymCache{db: d}
}

// Get returns the summary stored for the given payment code, if any. Any
// read or decode failure degrades to a cache miss; the cache must never be
// load-bearing for correctness.
//
// NOTE: Part of the directory.Cache interface.
func (c *NymCache) Get(code string) (*directory.NymSummary, bool) {
	var summary *directory.NymSummary
	err := c.db.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(nymCacheBucket).Get([]byte(code))
		if value == nil {
			return nil
		}

		summary = &directory.NymSummary{}
		return json.Unmarshal(value, summary)
	})
	if err != nil {
		log.Debugf("Nym cache read for %s failed: %v", code, err)
		return nil, false
	}

	return summary, summary != nil
}

// Put stores a summary under the given payment code, overwriting any
// previous entry.
//
// NOTE: Part of the directory.Cache interface.
func (c *NymCache) Put(code string, summary *directory.NymSummary) error {
	value, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	return c.db.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(nymCacheBucket).Put([]byte(code), value)
	})
}

// Clear removes every cached summary. Only the cache bucket is touched;
// contact entries and any other stored data are left intact.
//
// NOTE: Part of the directory.Cache interface.
func (c *NymCache) Clear() error {
	return c.db.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(nymCacheBucket); err != nil {
			return err
		}

		_, err := tx.CreateBucket(nymCacheBucket)
		return err
	})
}
