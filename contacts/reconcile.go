package contacts

import (
	"context"
	"net/http"

	"github.com/nymbook/nymbook/directory"
)

// ReconcileFromDirectory rebuilds the sender list from the directory's
// follow graph, which is how a restored or imported wallet recovers the
// contacts it had established through notification transactions on another
// install. For every nym our claimed account follows, exactly one of its
// linked payment codes is selected and added to the sender list.
//
// Reconciliation is best-effort enrichment: a disabled payment code
// feature, an unknown account, an absent following set or a transport
// failure all leave the registry untouched without error.
func (r *Registry) ReconcileFromDirectory(ctx context.Context) error {
	if !r.cfg.Wallet.IsFeatureEnabled() {
		log.Debugf("Payment code feature disabled, skipping " +
			"directory reconciliation")
		return nil
	}

	ownCode := r.cfg.Wallet.PaymentCode()
	account, err := r.cfg.Resolver.CachedNym(ctx, ownCode, true)
	if err != nil {
		log.Debugf("Directory reconciliation skipped: %v", err)
		return nil
	}

	if len(account.Following) == 0 {
		log.Debugf("Account %s follows no nyms, nothing to reconcile",
			account.NymID)
		return nil
	}

	var added int
	for _, nymID := range account.Following {
		res := r.cfg.Resolver.Nym(ctx, nymID, false)
		if res.Code != http.StatusOK {
			log.Debugf("Unable to resolve followed nym %s: %v",
				nymID, res.Err())
			continue
		}

		code, ok := selectContactCode(res.Codes)
		if !ok {
			log.Debugf("Followed nym %s has no payment codes",
				nymID)
			continue
		}

		if code.Segwit {
			log.Warnf("Followed nym %s resolves to a segwit "+
				"payment code, which is not supported", nymID)
			continue
		}

		// Skip codes that already made it into the sender list, e.g.
		// through an on-chain notification observed earlier.
		if entry, ok := r.Lookup(code.Code); ok && entry.Sender {
			continue
		}

		if err := r.AddToSenderList(code.Code); err != nil {
			return err
		}
		added++
	}

	log.Infof("Directory reconciliation added %d of %d followed nyms",
		added, len(account.Following))

	return nil
}

// selectContactCode picks the payment code to contact a nym on: the first
// code flagged claimed, or failing that the first code in list order.
func selectContactCode(codes []directory.NymCode) (directory.NymCode, bool) {
	if len(codes) == 0 {
		return directory.NymCode{}, false
	}

	for _, code := range codes {
		if code.Claimed {
			return code, true
		}
	}

	return codes[0], true
}
