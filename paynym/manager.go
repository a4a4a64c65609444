// Package paynym orchestrates the directory claim and follow sequences,
// composing the payment code identity, the claim signature engine and the
// directory client.
package paynym

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/nymbook/nymbook/claimsig"
	"github.com/nymbook/nymbook/directory"
)

var (
	// ErrFeatureDisabled is returned when the wallet's payment code
	// feature is not enabled.
	ErrFeatureDisabled = errors.New("payment code feature is disabled " +
		"for this wallet")

	// ErrClaimInFlight is returned when a claim attempt is started while
	// another one is still running. Claim and token calls rotate server
	// side state, so concurrent attempts for the same code must be
	// refused here rather than by the directory.
	ErrClaimInFlight = errors.New("a claim attempt is already in flight")
)

// Wallet is the wallet surface the manager depends on.
type Wallet interface {
	// IsFeatureEnabled reports whether the payment code feature is
	// enabled for this wallet.
	IsFeatureEnabled() bool

	// PaymentCode returns the wallet's own payment code.
	PaymentCode() string

	// NotificationKeyPair re-derives the notification key pair from the
	// wallet seed. The private key is the only key that may sign
	// directory tokens.
	NotificationKeyPair() (*btcec.PrivateKey, *btcec.PublicKey, error)
}

// Directory is the subset of the directory client the manager uses.
type Directory interface {
	// Create registers a payment code with the directory.
	Create(ctx context.Context, code string) *directory.CreateResult

	// Token requests a fresh authentication token for a payment code.
	Token(ctx context.Context, code string) *directory.TokenResult

	// Claim proves ownership of the code the token is scoped to.
	Claim(ctx context.Context, token,
		signature string) *directory.ClaimResult

	// Follow adds a nym to the account's following set.
	Follow(ctx context.Context, token, signature,
		target string) *directory.FollowResult

	// Unfollow removes a nym from the account's following set.
	Unfollow(ctx context.Context, token, signature,
		target string) *directory.UnfollowResult
}

// Config holds the collaborators a Manager composes.
type Config struct {
	// Wallet is the owning wallet's surface.
	Wallet Wallet

	// Directory is the directory client.
	Directory Directory
}

// Manager drives the create, token, sign and claim sequence as well as the
// follow flows. Each orchestrated operation surfaces the first failing
// step's structured error unchanged; no retries happen across steps.
type Manager struct {
	cfg *Config

	// claimInFlight guards against concurrent claim attempts, which
	// would race on the server side token rotation.
	claimInFlight atomic.Bool
}

// NewManager creates a new claim orchestrator.
func NewManager(cfg *Config) *Manager {
	return &Manager{cfg: cfg}
}

// Claim registers the wallet's payment code with the directory (a no-op if
// it already exists) and proves ownership of it by signing the directory's
// token with the notification key. On success the directory account is
// claimed and the rotated token is returned in the result.
func (m *Manager) Claim(ctx context.Context) (*directory.ClaimResult, error) {
	if !m.cfg.Wallet.IsFeatureEnabled() {
		return nil, ErrFeatureDisabled
	}

	if !m.claimInFlight.CompareAndSwap(false, true) {
		return nil, ErrClaimInFlight
	}
	defer m.claimInFlight.Store(false)

	code := m.cfg.Wallet.PaymentCode()
	log.Infof("Claiming payment code %s", code)

	createRes := m.cfg.Directory.Create(ctx, code)
	if err := createRes.Err(); err != nil {
		return nil, err
	}

	// A freshly registered code comes back with a token; an existing
	// registration requires fetching one.
	token := createRes.Token
	if token == "" {
		tokenRes := m.cfg.Directory.Token(ctx, code)
		if err := tokenRes.Err(); err != nil {
			return nil, err
		}
		token = tokenRes.Token
	}

	sig, err := m.signToken(token)
	if err != nil {
		return nil, err
	}

	claimRes := m.cfg.Directory.Claim(ctx, token, sig.String())
	if err := claimRes.Err(); err != nil {
		return nil, err
	}

	log.Infof("Payment code %s claimed", code)

	return claimRes, nil
}

// Follow adds the target nym to our account's following set. A fresh token
// is fetched for the operation since the server rotates tokens on every
// authenticated call.
func (m *Manager) Follow(ctx context.Context,
	target string) (*directory.FollowResult, error) {

	token, sig, err := m.freshTokenSignature(ctx)
	if err != nil {
		return nil, err
	}

	followRes := m.cfg.Directory.Follow(ctx, token, sig.String(), target)
	if err := followRes.Err(); err != nil {
		return nil, err
	}

	log.Debugf("Now following %s", target)

	return followRes, nil
}

// Unfollow removes the target nym from our account's following set.
func (m *Manager) Unfollow(ctx context.Context,
	target string) (*directory.UnfollowResult, error) {

	token, sig, err := m.freshTokenSignature(ctx)
	if err != nil {
		return nil, err
	}

	unfollowRes := m.cfg.Directory.Unfollow(
		ctx, token, sig.String(), target,
	)
	if err := unfollowRes.Err(); err != nil {
		return nil, err
	}

	log.Debugf("No longer following %s", target)

	return unfollowRes, nil
}

// AutoFollow follows each of the given nyms, continuing past individual
// failures. It returns the number of successful follows; the only error
// returned is the feature gate.
func (m *Manager) AutoFollow(ctx context.Context,
	targets []string) (int, error) {

	if !m.cfg.Wallet.IsFeatureEnabled() {
		return 0, ErrFeatureDisabled
	}

	var followed int
	for _, target := range targets {
		if _, err := m.Follow(ctx, target); err != nil {
			log.Warnf("Auto-follow of %s failed: %v", target, err)
			continue
		}
		followed++
	}

	log.Infof("Auto-followed %d of %d nyms", followed, len(targets))

	return followed, nil
}

// freshTokenSignature fetches a fresh token for our payment code and signs
// it with the notification key.
func (m *Manager) freshTokenSignature(ctx context.Context) (string,
	*claimsig.Signature, error) {

	if !m.cfg.Wallet.IsFeatureEnabled() {
		return "", nil, ErrFeatureDisabled
	}

	tokenRes := m.cfg.Directory.Token(ctx, m.cfg.Wallet.PaymentCode())
	if err := tokenRes.Err(); err != nil {
		return "", nil, err
	}

	sig, err := m.signToken(tokenRes.Token)
	if err != nil {
		return "", nil, err
	}

	return tokenRes.Token, sig, nil
}

// signToken signs the token with the wallet's notification private key.
func (m *Manager) signToken(token string) (*claimsig.Signature, error) {
	notifKey, _, err := m.cfg.Wallet.NotificationKeyPair()
	if err != nil {
		return nil, err
	}

	return claimsig.Sign(token, notifKey)
}
