package paymentcode

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

const (
	// BIP47Purpose is the BIP43 purpose field used for payment code
	// derivation: m/47'/coin'/account'.
	BIP47Purpose = 47

	// defaultAccount is the account index the payment code identity is
	// derived from.
	defaultAccount = 0

	// notificationIndex is the non-hardened child index of the identity
	// key that yields the notification key pair.
	notificationIndex = 0
)

// ErrBadDerivation is returned when key derivation produces an unusable key.
// This is a fatal integrity error: the same seed will fail the same way every
// time, so callers must not treat it as retryable.
var ErrBadDerivation = errors.New("payment code derivation produced an " +
	"invalid key")

// Identity is a wallet's payment code identity: the code itself plus the
// notification key pair that authenticates directory claims. The key pair is
// re-derived from the seed on demand and never persisted on its own.
type Identity struct {
	code     *PaymentCode
	notifKey *btcec.PrivateKey
}

// NewFromSeed deterministically derives the wallet's payment code identity
// from its seed. The identity key sits at m/47'/coin'/0' and the payment
// code is its (public key, chain code) pair; the notification key is the
// first non-hardened child of the identity key.
func NewFromSeed(seed []byte, params *chaincfg.Params) (*Identity, error) {
	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDerivation, err)
	}

	path := []uint32{
		hdkeychain.HardenedKeyStart + BIP47Purpose,
		hdkeychain.HardenedKeyStart + params.HDCoinType,
		hdkeychain.HardenedKeyStart + defaultAccount,
	}

	identityKey := master
	for _, childIndex := range path {
		identityKey, err = identityKey.Derive(childIndex)
		if err != nil {
			return nil, fmt.Errorf("%w: deriving child %d: %v",
				ErrBadDerivation, childIndex, err)
		}
	}

	identityPub, err := identityKey.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDerivation, err)
	}

	notifChild, err := identityKey.Derive(notificationIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: deriving notification key: %v",
			ErrBadDerivation, err)
	}
	notifKey, err := notifChild.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDerivation, err)
	}

	pc := &PaymentCode{
		version: versionV1,
		pubKey:  identityPub,
	}
	copy(pc.chainCode[:], identityKey.ChainCode())

	log.Debugf("Derived payment code %s", pc)

	return &Identity{
		code:     pc,
		notifKey: notifKey,
	}, nil
}

// PaymentCode returns the identity's payment code.
func (i *Identity) PaymentCode() *PaymentCode {
	return i.code
}

// NotificationKeyPair returns the notification key pair. The private key is
// distinct from any spending key and is the only key that may sign directory
// claim tokens.
func (i *Identity) NotificationKeyPair() (*btcec.PrivateKey,
	*btcec.PublicKey) {

	return i.notifKey, i.notifKey.PubKey()
}

// NotificationAddress returns the P2PKH address of the notification public
// key. The directory verifies claim signatures against this address.
func (i *Identity) NotificationAddress(
	params *chaincfg.Params) (btcutil.Address, error) {

	pubKeyHash := btcutil.Hash160(i.notifKey.PubKey().SerializeCompressed())
	return btcutil.NewAddressPubKeyHash(pubKeyHash, params)
}
