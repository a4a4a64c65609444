package nymdb

import (
	"fmt"
	"testing"
	"time"

	"github.com/nymbook/nymbook/contacts"
	"github.com/nymbook/nymbook/directory"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a fresh database in a per-test directory.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return db
}

// TestContactRoundTrip asserts contact entries survive a write and read
// back unchanged, in insertion order.
func TestContactRoundTrip(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	entries := []*contacts.Entry{
		{Code: "PM8Tc", Label: "carol", Sender: true},
		{Code: "PM8Ta", Label: "alice", Receiver: true},
		{Code: "PM8Tb", Hidden: true, Sender: true, Receiver: true},
	}
	for _, entry := range entries {
		require.NoError(t, db.PutContact(entry))
	}

	fetched, err := db.FetchContacts()
	require.NoError(t, err)
	require.Equal(t, entries, fetched)
}

// TestContactUpdateKeepsOrder asserts that updating an existing contact
// does not move it to the end of the list.
func TestContactUpdateKeepsOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)

	require.NoError(t, db.PutContact(&contacts.Entry{Code: "PM8Ta"}))
	require.NoError(t, db.PutContact(&contacts.Entry{Code: "PM8Tb"}))

	// Update the first entry after the second was inserted.
	updated := &contacts.Entry{Code: "PM8Ta", Label: "alice", Sender: true}
	require.NoError(t, db.PutContact(updated))

	fetched, err := db.FetchContacts()
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	require.Equal(t, updated, fetched[0])
	require.Equal(t, "PM8Tb", fetched[1].Code)
}

// TestContactsPersistAcrossReopen asserts stored contacts are still there
// after the database is closed and reopened.
func TestContactsPersistAcrossReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	db, err := Open(dir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.PutContact(&contacts.Entry{
			Code: fmt.Sprintf("PM8T%d", i),
		}))
	}
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()

	fetched, err := db.FetchContacts()
	require.NoError(t, err)
	require.Len(t, fetched, 5)
	for i, entry := range fetched {
		require.Equal(t, fmt.Sprintf("PM8T%d", i), entry.Code)
	}
}

// TestNymCache exercises the persistent nym cache, including that clearing
// it leaves contact entries untouched.
func TestNymCache(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	nymCache := db.NymCache()

	_, ok := nymCache.Get("PM8Ta")
	require.False(t, ok)

	summary := &directory.NymSummary{
		NymID:      "nym1",
		NymName:    "snowycat",
		Codes:      []directory.NymCode{{Code: "PM8Ta", Claimed: true}},
		Following:  []string{"nym2"},
		CapturedAt: time.Unix(1_700_000_000, 0).UTC(),
	}
	require.NoError(t, nymCache.Put("PM8Ta", summary))
	require.NoError(t, db.PutContact(&contacts.Entry{Code: "PM8Ta"}))

	got, ok := nymCache.Get("PM8Ta")
	require.True(t, ok)
	require.Equal(t, summary, got)

	require.NoError(t, nymCache.Clear())

	_, ok = nymCache.Get("PM8Ta")
	require.False(t, ok)

	// Contacts live in their own bucket and must survive a cache wipe.
	fetched, err := db.FetchContacts()
	require.NoError(t, err)
	require.Len(t, fetched, 1)
}
