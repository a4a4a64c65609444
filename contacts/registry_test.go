package contacts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestRegistry creates a registry backed by the given store, which may
// be nil for a memory-only registry.
func newTestRegistry(t *testing.T, store Store) *Registry {
	t.Helper()

	registry, err := New(&Config{
		Wallet: &mockWallet{featureEnabled: true},
		Store:  store,
	})
	require.NoError(t, err)

	return registry
}

// TestListMembership asserts the basic set semantics of the sender and
// receiver lists, including a code being a member of both.
func TestListMembership(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, nil)

	require.NoError(t, registry.AddToSenderList("PM8Ta"))
	require.NoError(t, registry.AddToReceiverList("PM8Tb"))
	require.NoError(t, registry.AddToReceiverList("PM8Ta"))

	senders := registry.SenderList()
	require.Len(t, senders, 1)
	require.Equal(t, "PM8Ta", senders[0].Code)
	require.True(t, senders[0].Receiver)

	receivers := registry.ReceiverList()
	require.Len(t, receivers, 2)
	require.Equal(t, "PM8Ta", receivers[0].Code)
	require.Equal(t, "PM8Tb", receivers[1].Code)
}

// TestAddIdempotent asserts that re-adding a code to a list it is already a
// member of changes nothing and writes nothing.
func TestAddIdempotent(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	registry := newTestRegistry(t, store)

	require.NoError(t, registry.AddToSenderList("PM8Ta"))
	require.Equal(t, 1, store.puts)

	require.NoError(t, registry.AddToSenderList("PM8Ta"))
	require.Equal(t, 1, store.puts)
	require.Len(t, registry.SenderList(), 1)

	// Gaining receiver membership is a real change and is persisted.
	require.NoError(t, registry.AddToReceiverList("PM8Ta"))
	require.Equal(t, 2, store.puts)
}

// TestMetadataUpdates asserts label and hidden updates, and that they
// reject unknown codes.
func TestMetadataUpdates(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	registry := newTestRegistry(t, store)

	require.NoError(t, registry.AddToSenderList("PM8Ta"))

	require.NoError(t, registry.SetLabel("PM8Ta", "alice"))
	require.NoError(t, registry.SetHidden("PM8Ta", true))

	entry, ok := registry.Lookup("PM8Ta")
	require.True(t, ok)
	require.Equal(t, "alice", entry.Label)
	require.True(t, entry.Hidden)

	// Hiding removes nothing: the entry stays a list member.
	require.Len(t, registry.SenderList(), 1)

	require.ErrorIs(
		t, registry.SetLabel("PM8Tz", "bob"), ErrUnknownContact,
	)
	require.ErrorIs(
		t, registry.SetHidden("PM8Tz", true), ErrUnknownContact,
	)
}

// TestLookupReturnsCopy asserts callers cannot mutate registry state
// through a returned entry.
func TestLookupReturnsCopy(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, nil)
	require.NoError(t, registry.AddToSenderList("PM8Ta"))

	entry, ok := registry.Lookup("PM8Ta")
	require.True(t, ok)
	entry.Label = "scribbled"

	fresh, ok := registry.Lookup("PM8Ta")
	require.True(t, ok)
	require.Empty(t, fresh.Label)
}

// TestLoadFromStore asserts persisted entries are loaded on construction
// in their stored order.
func TestLoadFromStore(t *testing.T) {
	t.Parallel()

	store := &mockStore{entries: []*Entry{
		{Code: "PM8Tb", Sender: true},
		{Code: "PM8Ta", Label: "alice", Receiver: true},
	}}

	registry := newTestRegistry(t, store)

	senders := registry.SenderList()
	require.Len(t, senders, 1)
	require.Equal(t, "PM8Tb", senders[0].Code)

	receivers := registry.ReceiverList()
	require.Len(t, receivers, 1)
	require.Equal(t, "alice", receivers[0].Label)
}

// TestPersistFailure asserts store errors surface to the caller.
func TestPersistFailure(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("disk full")
	registry := newTestRegistry(t, &mockStore{failPut: storeErr})

	require.ErrorIs(t, registry.AddToSenderList("PM8Ta"), storeErr)
}
