package contacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/nymbook/nymbook/paymentcode"
)

// AddOutcome describes how a contact-add request was resolved.
type AddOutcome int

const (
	// OutcomeAddedAddress means the input was a plain bitcoin address
	// and was registered directly, no notification transaction needed.
	OutcomeAddedAddress AddOutcome = iota

	// OutcomeAddedDirect means the input was a payment code variant that
	// does not require a notification step and was registered directly.
	OutcomeAddedDirect

	// OutcomeRegistered means the input was a BIP47 payment code with a
	// confirmed notification transaction already on chain; the code was
	// registered and its possible addresses resynced.
	OutcomeRegistered

	// OutcomeNotificationSent means no notification transaction existed,
	// so one was constructed, funded and broadcast. Registration happens
	// once it confirms.
	OutcomeNotificationSent
)

// String returns a human readable description of the outcome.
func (o AddOutcome) String() string {
	switch o {
	case OutcomeAddedAddress:
		return "address added"
	case OutcomeAddedDirect:
		return "payment code added"
	case OutcomeRegistered:
		return "payment code registered"
	case OutcomeNotificationSent:
		return "notification transaction broadcast"
	default:
		return fmt.Sprintf("unknown outcome %d", int(o))
	}
}

// AddContact classifies a user supplied payment code or address and runs
// the appropriate registration flow. Plain addresses and
// notification-free payment code variants are added to the receiver list
// immediately. BIP47 payment codes require a confirmed on-chain
// notification transaction first: one already confirmed registers the code
// right away, an unconfirmed one refuses the add with
// ErrNotificationPending rather than creating a duplicate, and a missing
// one is constructed and broadcast.
func (r *Registry) AddContact(ctx context.Context, input,
	label string) (AddOutcome, error) {

	input = strings.TrimSpace(input)

	switch {
	case paymentcode.IsBitcoinAddress(input, r.cfg.Params):
		if err := r.add(input, label, false, true); err != nil {
			return 0, err
		}

		log.Debugf("Added plain address contact %s", input)
		return OutcomeAddedAddress, nil

	case paymentcode.IsAlternateFormat(input):
		if err := r.add(input, label, false, true); err != nil {
			return 0, err
		}

		log.Debugf("Added notification-free payment code %s", input)
		return OutcomeAddedDirect, nil

	case paymentcode.IsWellFormed(input):
		return r.addPaymentCode(ctx, input, label)

	default:
		return 0, fmt.Errorf("%w: %q", ErrMalformedInput, input)
	}
}

// addPaymentCode runs the BIP47 leg of the contact-add decision tree.
func (r *Registry) addPaymentCode(ctx context.Context, input,
	label string) (AddOutcome, error) {

	pc, err := paymentcode.NewFromString(input)
	if err != nil {
		return 0, err
	}
	if pc.Segwit() {
		return 0, paymentcode.ErrSegwitUnsupported
	}

	wallet := r.cfg.Wallet
	notifTx, err := wallet.NotificationTransaction(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("unable to look up notification "+
			"transaction: %w", err)
	}

	switch {
	// A confirmed notification transaction already links us: register
	// the code and resync the addresses it may have used.
	case notifTx != nil && notifTx.Confirmed:
		if err := wallet.RegisterReceiver(ctx, input); err != nil {
			return 0, err
		}
		if err := r.add(input, label, false, true); err != nil {
			return 0, err
		}

		log.Debugf("Registered payment code %s via confirmed "+
			"notification tx %s", input, notifTx.TxID)

		return OutcomeRegistered, nil

	// A notification transaction exists but has not confirmed yet.
	case notifTx != nil:
		log.Debugf("Notification tx %s for %s still unconfirmed",
			notifTx.TxID, input)

		return 0, fmt.Errorf("%w: %s", ErrNotificationPending,
			notifTx.TxID)

	// No notification transaction exists, so one must be constructed,
	// funded and broadcast before the code can be registered.
	default:
		txid, err := wallet.CreateNotificationTransaction(ctx, input)
		if err != nil {
			return 0, err
		}

		log.Infof("Broadcast notification tx %s for payment code %s",
			txid, input)

		return OutcomeNotificationSent, nil
	}
}
