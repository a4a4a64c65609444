package paymentcode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
)

const (
	// codeVersionByte is the base58check version byte (0x47) that every
	// serialized payment code is prefixed with. Together with the payload
	// length it pins the leading characters of the rendered string to
	// WellFormedPrefix.
	codeVersionByte = 0x47

	// payloadLen is the length of the binary payment code payload: one
	// version byte, one feature byte, a 33 byte compressed public key, a
	// 32 byte chain code and 13 reserved zero bytes.
	payloadLen = 80

	// WellFormedPrefix is the fixed four character prefix that every
	// well-formed payment code string starts with.
	WellFormedPrefix = "PM8T"

	// MinCodeLength is the minimum length of a well-formed payment code
	// string. Actual v1 codes serialize to 116 characters, but the
	// structural check only requires this lower bound.
	MinCodeLength = 50

	// versionV1 is the only payment code version with a fully specified
	// notification protocol.
	versionV1 = 0x01

	// versionSegwit marks the segwit-capable payment code variant. The
	// variant is recognized so it is never mistaken for a v1 code, but
	// its notification protocol is not implemented.
	versionSegwit = 0x02
)

// base58Alphabet is the set of characters valid in a base58 encoded string.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZ" +
	"abcdefghijkmnopqrstuvwxyz"

var (
	// ErrMalformedCode is returned when a string cannot be decoded into a
	// payment code.
	ErrMalformedCode = errors.New("malformed payment code")

	// ErrSegwitUnsupported is returned when a payment code declares the
	// segwit variant, which is recognized but not supported.
	ErrSegwitUnsupported = errors.New("segwit payment codes are not " +
		"supported")
)

// PaymentCode is a parsed BIP47 reusable payment code: the static identifier
// another party needs in order to derive addresses to pay us without an
// interactive handshake.
type PaymentCode struct {
	version   byte
	features  byte
	pubKey    *btcec.PublicKey
	chainCode [32]byte
}

// NewFromString parses and validates a base58check encoded payment code.
// Unlike IsWellFormed this enforces the checksum and the full binary layout
// of the payload.
func NewFromString(code string) (*PaymentCode, error) {
	if !IsWellFormed(code) {
		return nil, fmt.Errorf("%w: %q fails structural checks",
			ErrMalformedCode, code)
	}

	payload, version, err := base58.CheckDecode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCode, err)
	}
	if version != codeVersionByte {
		return nil, fmt.Errorf("%w: unexpected version byte %#x",
			ErrMalformedCode, version)
	}
	if len(payload) != payloadLen {
		return nil, fmt.Errorf("%w: payload is %d bytes, want %d",
			ErrMalformedCode, len(payload), payloadLen)
	}

	codeVersion := payload[0]
	if codeVersion != versionV1 && codeVersion != versionSegwit {
		return nil, fmt.Errorf("%w: unknown payment code version %d",
			ErrMalformedCode, codeVersion)
	}

	pubKey, err := btcec.ParsePubKey(payload[2:35])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid public key: %v",
			ErrMalformedCode, err)
	}

	pc := &PaymentCode{
		version:  codeVersion,
		features: payload[1],
		pubKey:   pubKey,
	}
	copy(pc.chainCode[:], payload[35:67])

	return pc, nil
}

// String returns the base58check encoded form of the payment code.
func (p *PaymentCode) String() string {
	payload := make([]byte, payloadLen)
	payload[0] = p.version
	payload[1] = p.features
	copy(payload[2:35], p.pubKey.SerializeCompressed())
	copy(payload[35:67], p.chainCode[:])

	return base58.CheckEncode(payload, codeVersionByte)
}

// Version returns the payment code version byte.
func (p *PaymentCode) Version() byte {
	return p.version
}

// Segwit reports whether the code declares the segwit-capable variant, whose
// notification protocol is recognized but unimplemented.
func (p *PaymentCode) Segwit() bool {
	return p.version == versionSegwit
}

// PubKey returns the payment code's public key.
func (p *PaymentCode) PubKey() *btcec.PublicKey {
	return p.pubKey
}

// ChainCode returns the payment code's chain code.
func (p *PaymentCode) ChainCode() [32]byte {
	return p.chainCode
}

// IsWellFormed performs the structural validation of a payment code string:
// the fixed prefix, the base58 alphabet and the minimum length. It does not
// verify the checksum or contact the network, so a true result only means
// the string is shaped like a payment code.
func IsWellFormed(code string) bool {
	if len(code) < MinCodeLength {
		return false
	}
	if !strings.HasPrefix(code, WellFormedPrefix) {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}

	return true
}
