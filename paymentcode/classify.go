package paymentcode

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"
)

// silentPaymentHRPs is the set of bech32m human readable prefixes used by
// silent payment codes, which can be paid directly without a notification
// transaction.
var silentPaymentHRPs = map[string]struct{}{
	"sp":  {},
	"tsp": {},
}

// IsBitcoinAddress returns true if the given string decodes as a bitcoin
// address valid for the given network. Contact-add logic uses this to branch
// between plain addresses and payment codes.
func IsBitcoinAddress(value string, params *chaincfg.Params) bool {
	addr, err := btcutil.DecodeAddress(value, params)
	if err != nil {
		return false
	}

	return addr.IsForNet(params)
}

// IsAlternateFormat returns true if the given string is a recognized
// non-BIP47 payment code that does not require a notification transaction
// before use. Currently this matches bech32m silent payment codes.
func IsAlternateFormat(value string) bool {
	// Bech32 strings must be entirely lower or entirely upper case.
	if value != strings.ToLower(value) && value != strings.ToUpper(value) {
		return false
	}

	hrp, _, version, err := bech32.DecodeGeneric(strings.ToLower(value))
	if err != nil {
		return false
	}
	if version != bech32.VersionM {
		return false
	}

	_, ok := silentPaymentHRPs[hrp]
	return ok
}
