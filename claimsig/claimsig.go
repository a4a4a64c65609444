// Package claimsig produces the recoverable message signatures that prove
// ownership of a payment code's notification key to a directory service.
package claimsig

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const (
	// messageSignaturePrefix is the domain separation prefix of the
	// standard bitcoin signed message transform.
	messageSignaturePrefix = "Bitcoin Signed Message:\n"

	// SignatureLen is the length of a raw compact signature: one recovery
	// flag byte followed by the 32 byte r and s values.
	SignatureLen = 65

	// EncodedSignatureLen is the length of the base64 transport encoding
	// of a compact signature.
	EncodedSignatureLen = 88
)

var (
	// ErrEmptyToken is returned when asked to sign an empty token.
	ErrEmptyToken = errors.New("claim token must not be empty")

	// ErrBadSignatureLen is returned when parsing a signature of the
	// wrong length.
	ErrBadSignatureLen = fmt.Errorf("claim signature must be %d raw "+
		"bytes", SignatureLen)
)

// Signature is a recoverable ECDSA signature over a directory token,
// produced with a payment code's notification private key.
type Signature struct {
	raw [SignatureLen]byte
}

// Sign applies the standard message signing transform to the literal token
// text: the domain separation prefix and the token are each written as
// length-prefixed strings, the result is double-SHA256 hashed, and a compact
// recoverable signature is produced over the digest.
//
// The result is a pure function of (token, key): identical inputs always
// yield the identical signature. Feature gating is the caller's job; the
// paynym orchestrator checks the wallet's feature flag before any signing
// path reaches this function.
//
// NOTE: The key must be the notification key. The directory verifies the
// signature against the notification address, so signing with any other key
// produces a signature the server will reject.
func Sign(token string, key *btcec.PrivateKey) (*Signature, error) {
	digest, err := tokenDigest(token)
	if err != nil {
		return nil, err
	}

	var sig Signature
	copy(sig.raw[:], ecdsa.SignCompact(key, digest, true))

	return &sig, nil
}

// Parse decodes a base64 encoded compact signature.
func Parse(encoded string) (*Signature, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid claim signature encoding: %w",
			err)
	}
	if len(raw) != SignatureLen {
		return nil, ErrBadSignatureLen
	}

	var sig Signature
	copy(sig.raw[:], raw)

	return &sig, nil
}

// Bytes returns the raw 65 byte compact signature.
func (s *Signature) Bytes() []byte {
	raw := make([]byte, SignatureLen)
	copy(raw, s.raw[:])

	return raw
}

// String returns the fixed-width base64 transport encoding of the signature.
func (s *Signature) String() string {
	return base64.StdEncoding.EncodeToString(s.raw[:])
}

// RecoverAddress recovers the P2PKH address of the key that signed the given
// token. Callers can compare it against the notification address to verify a
// signature without a directory round trip.
func RecoverAddress(token string, sig *Signature,
	params *chaincfg.Params) (btcutil.Address, error) {

	digest, err := tokenDigest(token)
	if err != nil {
		return nil, err
	}

	pubKey, compressed, err := ecdsa.RecoverCompact(sig.raw[:], digest)
	if err != nil {
		return nil, fmt.Errorf("unable to recover public key: %w", err)
	}

	var serialized []byte
	if compressed {
		serialized = pubKey.SerializeCompressed()
	} else {
		serialized = pubKey.SerializeUncompressed()
	}

	return btcutil.NewAddressPubKeyHash(btcutil.Hash160(serialized), params)
}

// tokenDigest creates the double-SHA256 digest of the token prepended with
// the message signing prefix, both written as length-prefixed strings.
func tokenDigest(token string) ([]byte, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}

	var buf bytes.Buffer
	err := wire.WriteVarString(&buf, 0, messageSignaturePrefix)
	if err != nil {
		return nil, err
	}

	err = wire.WriteVarString(&buf, 0, token)
	if err != nil {
		return nil, err
	}

	return chainhash.DoubleHashB(buf.Bytes()), nil
}
