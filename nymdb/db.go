// Package nymdb persists the wallet's payment code contacts and the nym
// directory cache in a bbolt database.
package nymdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// dbName is the database file name.
	dbName = "nymbook.db"

	// dbFilePermission is the file mode of the database file.
	dbFilePermission = 0600

	// dbOpenTimeout bounds how long we wait for the file lock of an
	// already open database.
	dbOpenTimeout = 5 * time.Second
)

var (
	// contactsBucket stores one JSON encoded contact record per payment
	// code, keyed by the code itself.
	contactsBucket = []byte("contacts")

	// nymCacheBucket stores one JSON encoded nym summary per payment
	// code. Clearing the cache only ever touches this bucket.
	nymCacheBucket = []byte("nym-cache")
)

// DB is the handle to the nymbook database.
type DB struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the nymbook database inside the given
// directory.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("unable to create db dir: %w", err)
	}

	path := filepath.Join(dir, dbName)
	db, err := bolt.Open(path, dbFilePermission, &bolt.Options{
		Timeout: dbOpenTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{contactsBucket, nymCacheBucket}
		for _, bucket := range buckets {
			_, err := tx.CreateBucketIfNotExists(bucket)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create buckets: %w", err)
	}

	log.Debugf("Opened nym database at %s", path)

	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}
