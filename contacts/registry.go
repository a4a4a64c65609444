// Package contacts maintains the wallet's payment code contact lists and
// reconciles them against the directory's follow graph.
package contacts

import (
	"context"
	"errors"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/nymbook/nymbook/directory"
)

var (
	// ErrMalformedInput is returned when a contact input is neither a
	// valid address nor a recognizable payment code. Malformed input is
	// rejected locally and never sent over the wire.
	ErrMalformedInput = errors.New("input is not a valid address or " +
		"payment code")

	// ErrUnknownContact is returned when mutating metadata of a contact
	// that does not exist.
	ErrUnknownContact = errors.New("unknown contact")

	// ErrNotificationPending is returned when a contact cannot be
	// registered yet because its notification transaction is still
	// unconfirmed. Creating a second notification transaction would be
	// wasteful, so the add is refused instead.
	ErrNotificationPending = errors.New("notification transaction is " +
		"unconfirmed")
)

// Entry is a payment code (or plain address) plus its wallet-local
// metadata. A single entry may be a member of both the sender and receiver
// lists; that is the normal shape of a bidirectional payment relationship.
// Entries are never hard-deleted, only hidden.
type Entry struct {
	// Code is the payment code or address this entry tracks.
	Code string `json:"code"`

	// Label is a user supplied display name, if any.
	Label string `json:"label,omitempty"`

	// Hidden marks an entry the user removed from view.
	Hidden bool `json:"hidden,omitempty"`

	// Sender marks membership in the sender list.
	Sender bool `json:"sender"`

	// Receiver marks membership in the receiver list.
	Receiver bool `json:"receiver"`
}

// Store is the persistence surface for contact entries. Implementations
// must preserve insertion order across restarts.
type Store interface {
	// PutContact inserts or updates a contact entry.
	PutContact(entry *Entry) error

	// FetchContacts returns all stored entries in insertion order.
	FetchContacts() ([]*Entry, error)
}

// NymResolver resolves directory accounts. It is implemented by
// *directory.Client.
type NymResolver interface {
	// CachedNym returns the account summary for a payment code, served
	// through the nym cache.
	CachedNym(ctx context.Context, code string,
		forceRefresh bool) (*directory.NymSummary, error)

	// Nym looks up a directory account by payment code or nym ID.
	Nym(ctx context.Context, nym string, compact bool) *directory.NymResult
}

// NotificationTx describes an on-chain notification transaction linking our
// payment code to a contact's.
type NotificationTx struct {
	// TxID is the transaction id.
	TxID string

	// Confirmed is true once the transaction has confirmed.
	Confirmed bool
}

// Wallet is the wallet surface the registry depends on.
type Wallet interface {
	// IsFeatureEnabled reports whether the payment code feature is
	// enabled for this wallet.
	IsFeatureEnabled() bool

	// PaymentCode returns the wallet's own payment code.
	PaymentCode() string

	// NotificationTransaction returns the notification transaction
	// already linking us to the given code, or nil if none exists.
	NotificationTransaction(ctx context.Context,
		code string) (*NotificationTx, error)

	// RegisterReceiver registers the code with the wallet proper and
	// resyncs the addresses it may have paid us on.
	RegisterReceiver(ctx context.Context, code string) error

	// CreateNotificationTransaction constructs, funds and broadcasts a
	// notification transaction for the given code, returning its txid.
	CreateNotificationTransaction(ctx context.Context,
		code string) (string, error)
}

// Config holds the collaborators a Registry needs.
type Config struct {
	// Wallet is the owning wallet's surface.
	Wallet Wallet

	// Resolver resolves directory accounts, typically a
	// *directory.Client.
	Resolver NymResolver

	// Store persists contact entries. Optional; without it the registry
	// is memory only.
	Store Store

	// Params identifies the bitcoin network, used to classify plain
	// addresses.
	Params *chaincfg.Params
}

// Registry maintains the wallet's sender and receiver payment code lists.
// Both lists are ordered-insertion sets: adding a code already present in a
// list is a no-op, while the same code may be a member of both lists.
type Registry struct {
	mtx sync.RWMutex

	cfg *Config

	// entries indexes contacts by code; order preserves first-insertion
	// order across both lists.
	entries map[string]*Entry
	order   []string
}

// New creates a contact registry, loading any persisted entries.
func New(cfg *Config) (*Registry, error) {
	r := &Registry{
		cfg:     cfg,
		entries: make(map[string]*Entry),
	}

	if cfg.Store != nil {
		stored, err := cfg.Store.FetchContacts()
		if err != nil {
			return nil, err
		}

		for _, entry := range stored {
			e := *entry
			r.entries[e.Code] = &e
			r.order = append(r.order, e.Code)
		}

		log.Debugf("Loaded %d contact entries", len(stored))
	}

	return r, nil
}

// AddToSenderList adds the code to the sender list. Adding a code already
// present is a no-op; a code already in the receiver list simply gains
// sender membership as well.
func (r *Registry) AddToSenderList(code string) error {
	return r.add(code, "", true, false)
}

// AddToReceiverList adds the code to the receiver list, with the same
// idempotence semantics as AddToSenderList.
func (r *Registry) AddToReceiverList(code string) error {
	return r.add(code, "", false, true)
}

// add inserts or extends an entry's list membership and persists the
// change. Unchanged membership writes nothing.
func (r *Registry) add(code, label string, sender, receiver bool) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	entry, ok := r.entries[code]
	if !ok {
		entry = &Entry{Code: code, Label: label}
		r.entries[code] = entry
		r.order = append(r.order, code)
	}

	changed := !ok
	if sender && !entry.Sender {
		entry.Sender = true
		changed = true
	}
	if receiver && !entry.Receiver {
		entry.Receiver = true
		changed = true
	}
	if label != "" && entry.Label == "" {
		entry.Label = label
		changed = true
	}

	if !changed {
		return nil
	}

	return r.persist(entry)
}

// SetLabel updates a contact's display label.
func (r *Registry) SetLabel(code, label string) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	entry, ok := r.entries[code]
	if !ok {
		return ErrUnknownContact
	}

	entry.Label = label
	return r.persist(entry)
}

// SetHidden hides or unhides a contact. Hiding is the only removal the
// registry supports; entries are never deleted.
func (r *Registry) SetHidden(code string, hidden bool) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	entry, ok := r.entries[code]
	if !ok {
		return ErrUnknownContact
	}

	entry.Hidden = hidden
	return r.persist(entry)
}

// Lookup returns a copy of the entry for the given code.
func (r *Registry) Lookup(code string) (*Entry, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	entry, ok := r.entries[code]
	if !ok {
		return nil, false
	}

	e := *entry
	return &e, true
}

// SenderList returns copies of the sender list entries in insertion order.
func (r *Registry) SenderList() []*Entry {
	return r.list(func(e *Entry) bool { return e.Sender })
}

// ReceiverList returns copies of the receiver list entries in insertion
// order.
func (r *Registry) ReceiverList() []*Entry {
	return r.list(func(e *Entry) bool { return e.Receiver })
}

func (r *Registry) list(member func(*Entry) bool) []*Entry {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	var result []*Entry
	for _, code := range r.order {
		entry := r.entries[code]
		if !member(entry) {
			continue
		}

		e := *entry
		result = append(result, &e)
	}

	return result
}

// persist writes an entry through to the store, if one is configured. Must
// be called with the registry mutex held.
func (r *Registry) persist(entry *Entry) error {
	if r.cfg.Store == nil {
		return nil
	}

	e := *entry
	return r.cfg.Store.PutContact(&e)
}
