package contacts

import (
	"context"
	"fmt"

	"github.com/nymbook/nymbook/directory"
)

// mockStore is an in-memory Store recording every write.
type mockStore struct {
	entries []*Entry
	puts    int
	failPut error
}

func (m *mockStore) PutContact(entry *Entry) error {
	if m.failPut != nil {
		return m.failPut
	}

	m.puts++
	for i, existing := range m.entries {
		if existing.Code == entry.Code {
			m.entries[i] = entry
			return nil
		}
	}

	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockStore) FetchContacts() ([]*Entry, error) {
	return m.entries, nil
}

var _ Store = (*mockStore)(nil)

// mockWallet is a scriptable Wallet implementation.
type mockWallet struct {
	featureEnabled bool
	paymentCode    string

	// notifTxs maps contact codes to their existing notification
	// transaction, if any.
	notifTxs map[string]*NotificationTx

	registered []string
	broadcast  []string

	registerErr error
	createErr   error
}

func (m *mockWallet) IsFeatureEnabled() bool {
	return m.featureEnabled
}

func (m *mockWallet) PaymentCode() string {
	return m.paymentCode
}

func (m *mockWallet) NotificationTransaction(_ context.Context,
	code string) (*NotificationTx, error) {

	return m.notifTxs[code], nil
}

func (m *mockWallet) RegisterReceiver(_ context.Context,
	code string) error {

	if m.registerErr != nil {
		return m.registerErr
	}

	m.registered = append(m.registered, code)
	return nil
}

func (m *mockWallet) CreateNotificationTransaction(_ context.Context,
	code string) (string, error) {

	if m.createErr != nil {
		return "", m.createErr
	}

	m.broadcast = append(m.broadcast, code)
	return fmt.Sprintf("txid-%s", code), nil
}

var _ Wallet = (*mockWallet)(nil)

// mockResolver is a scriptable NymResolver backed by static account
// records.
type mockResolver struct {
	// summary is returned by CachedNym for any code.
	summary    *directory.NymSummary
	summaryErr error

	// nyms maps nym identifiers to lookup results.
	nyms map[string]*directory.NymResult
}

func (m *mockResolver) CachedNym(_ context.Context, _ string,
	_ bool) (*directory.NymSummary, error) {

	return m.summary, m.summaryErr
}

func (m *mockResolver) Nym(_ context.Context, nym string,
	_ bool) *directory.NymResult {

	if res, ok := m.nyms[nym]; ok {
		return res
	}

	res := &directory.NymResult{}
	res.Code = directory.StatusTransportFailure
	res.Message = "unknown nym"
	return res
}

var _ NymResolver = (*mockResolver)(nil)
