package nymdb

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nymbook/nymbook/contacts"
	bolt "go.etcd.io/bbolt"
)

// contactRecord is the stored form of a contact entry. The sequence number
// fixes the insertion order so the registry's lists survive restarts.
type contactRecord struct {
	contacts.Entry

	Seq uint64 `json:"seq"`
}

// PutContact inserts or updates a contact entry, preserving the sequence
// number of an existing record.
//
// NOTE: Part of the contacts.Store interface.
func (d *DB) PutContact(entry *contacts.Entry) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(contactsBucket)
		key := []byte(entry.Code)

		record := contactRecord{Entry: *entry}
		if existing := bucket.Get(key); existing != nil {
			var prev contactRecord
			if err := json.Unmarshal(existing, &prev); err != nil {
				return fmt.Errorf("corrupt contact record "+
					"for %s: %w", entry.Code, err)
			}
			record.Seq = prev.Seq
		} else {
			seq, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			record.Seq = seq
		}

		value, err := json.Marshal(&record)
		if err != nil {
			return err
		}

		return bucket.Put(key, value)
	})
}

// FetchContacts returns all stored contact entries in insertion order.
//
// NOTE: Part of the contacts.Store interface.
func (d *DB) FetchContacts() ([]*contacts.Entry, error) {
	var records []contactRecord
	err := d.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(contactsBucket)

		return bucket.ForEach(func(key, value []byte) error {
			var record contactRecord
			if err := json.Unmarshal(value, &record); err != nil {
				return fmt.Errorf("corrupt contact record "+
					"for %s: %w", key, err)
			}

			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Seq < records[j].Seq
	})

	entries := make([]*contacts.Entry, 0, len(records))
	for _, record := range records {
		entry := record.Entry
		entries = append(entries, &entry)
	}

	return entries, nil
}

// A compile time check to ensure DB implements the contacts.Store interface.
var _ contacts.Store = (*DB)(nil)
