package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/nymbook/nymbook/contacts"
	"github.com/nymbook/nymbook/paymentcode"
	"github.com/nymbook/nymbook/paynym"
)

// seedFilename is the hex encoded wallet seed inside the data directory.
const seedFilename = "seed.hex"

// errNoChainBackend is returned for wallet operations that need an actual
// chain backend, which the standalone CLI wallet does not carry.
var errNoChainBackend = errors.New("operation requires a wallet with a " +
	"chain backend")

// seedWallet is a minimal wallet surface backed by a seed file. It derives
// the payment code identity on demand and is enough to drive every
// directory operation; on-chain notification handling is left to a full
// wallet.
type seedWallet struct {
	identity *paymentcode.Identity
	params   *chaincfg.Params
}

// Compile time checks for the two wallet surfaces the CLI drives.
var (
	_ paynym.Wallet   = (*seedWallet)(nil)
	_ contacts.Wallet = (*seedWallet)(nil)
)

// newSeedWallet loads the seed file and derives the payment code identity.
func newSeedWallet(path string,
	params *chaincfg.Params) (*seedWallet, error) {

	seedHex, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read seed file %s: %w",
			path, err)
	}

	seed, err := hex.DecodeString(strings.TrimSpace(string(seedHex)))
	if err != nil {
		return nil, fmt.Errorf("seed file %s is not valid hex: %w",
			path, err)
	}

	identity, err := paymentcode.NewFromSeed(seed, params)
	if err != nil {
		return nil, err
	}

	return &seedWallet{identity: identity, params: params}, nil
}

// IsFeatureEnabled reports whether the payment code feature is enabled.
// Having a seed file is what enables the feature for the CLI wallet.
func (w *seedWallet) IsFeatureEnabled() bool {
	return true
}

// PaymentCode returns the wallet's payment code.
func (w *seedWallet) PaymentCode() string {
	return w.identity.PaymentCode().String()
}

// NotificationKeyPair re-derives the notification key pair.
func (w *seedWallet) NotificationKeyPair() (*btcec.PrivateKey,
	*btcec.PublicKey, error) {

	priv, pub := w.identity.NotificationKeyPair()
	return priv, pub, nil
}

// NotificationTransaction reports no existing notification transaction: the
// CLI wallet has no chain view.
func (w *seedWallet) NotificationTransaction(_ context.Context,
	_ string) (*contacts.NotificationTx, error) {

	return nil, nil
}

// RegisterReceiver is a no-op for the CLI wallet; there are no wallet
// addresses to resync.
func (w *seedWallet) RegisterReceiver(_ context.Context, _ string) error {
	return nil
}

// CreateNotificationTransaction fails: constructing and funding an on-chain
// transaction requires a chain backend.
func (w *seedWallet) CreateNotificationTransaction(_ context.Context,
	_ string) (string, error) {

	return "", errNoChainBackend
}
