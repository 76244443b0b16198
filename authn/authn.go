// Package authn wraps the authenticator ceremony.
//
// Registration and assertion only prove that a human with the authenticator
// is present. They are side-effect free with respect to wallet secrets, which
// keeps authentication proof decoupled from key material.
package authn

import (
	"context"
	"time"

	"github.com/keys-pub/keys"
	"github.com/pkg/errors"
)

// Ceremony errors.
var (
	// ErrCancelled if the user cancelled the ceremony.
	ErrCancelled = errors.New("ceremony cancelled")
	// ErrTimeout if the ceremony timed out.
	ErrTimeout = errors.New("ceremony timed out")
	// ErrUnsupported if no authenticator is available.
	ErrUnsupported = errors.New("authenticator not supported")
	// ErrNoCredential if no credential matched.
	ErrNoCredential = errors.New("no matching credential")
)

// DefaultTimeout is the ceremony timeout ceiling.
const DefaultTimeout = 60 * time.Second

// challengeSize in bytes. Must be at least 16, we use 32.
const challengeSize = 32

// RelyingParty identifies the wallet origin the ceremony is performed for.
type RelyingParty struct {
	ID   string
	Name string
}

// User for registration.
type User struct {
	ID   []byte
	Name string
}

// RegisterRequest for a registration ceremony.
type RegisterRequest struct {
	// Challenge is random and single-use.
	Challenge []byte
	RP        *RelyingParty
	User      *User
	// UserVerification requires the authenticator verify the user
	// (biometric or PIN).
	UserVerification bool
	// ResidentKey asks for a discoverable credential so assertion can be
	// initiated without a stored credential list.
	ResidentKey bool
}

// AssertRequest for an assertion ceremony.
type AssertRequest struct {
	// Challenge is random and single-use.
	Challenge []byte
	RPID      string
	// CredentialID restricts which credential may respond. If empty, any
	// resident credential for the relying party is acceptable.
	CredentialID []byte
}

// Authenticator performs registration and assertion ceremonies.
//
// Implementations wrap a platform or hardware authenticator. Calls block
// until the user interacts, cancels or the context expires.
type Authenticator interface {
	Register(ctx context.Context, req *RegisterRequest) (*Registration, error)
	Assert(ctx context.Context, req *AssertRequest) (*Assertion, error)
}

// Gateway runs ceremonies against an Authenticator with fresh challenges, a
// timeout ceiling and eager validation of the loosely-typed responses.
type Gateway struct {
	authn   Authenticator
	rp      *RelyingParty
	timeout time.Duration
}

// NewGateway creates a Gateway for a relying party.
func NewGateway(rp *RelyingParty, authn Authenticator, opt ...Option) *Gateway {
	opts := newOptions(opt...)
	return &Gateway{
		authn:   authn,
		rp:      rp,
		timeout: opts.Timeout,
	}
}

// Register runs a registration ceremony, creating a new authenticator-side
// credential. It does not touch wallet state.
func (g *Gateway) Register(ctx context.Context, userName string) (*Registration, error) {
	if g.authn == nil {
		return nil, ErrUnsupported
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	logger.Debugf("Register ceremony (rp=%s)...", g.rp.ID)
	reg, err := g.authn.Register(ctx, &RegisterRequest{
		Challenge:        newChallenge(),
		RP:               g.rp,
		User:             &User{ID: keys.Rand16()[:], Name: userName},
		UserVerification: true,
		ResidentKey:      true,
	})
	if err != nil {
		return nil, ceremonyError(ctx, err)
	}
	if err := reg.Valid(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Assert runs an assertion ceremony.
// If credentialID is empty any resident credential for the relying party may
// respond.
func (g *Gateway) Assert(ctx context.Context, credentialID []byte) (*Assertion, error) {
	if g.authn == nil {
		return nil, ErrUnsupported
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	logger.Debugf("Assert ceremony (rp=%s)...", g.rp.ID)
	asr, err := g.authn.Assert(ctx, &AssertRequest{
		Challenge:    newChallenge(),
		RPID:         g.rp.ID,
		CredentialID: credentialID,
	})
	if err != nil {
		return nil, ceremonyError(ctx, err)
	}
	if err := asr.Valid(); err != nil {
		return nil, err
	}
	return asr, nil
}

func newChallenge() []byte {
	return keys.RandBytes(challengeSize)
}

// ceremonyError maps a ceremony failure to a typed error.
// Cancellation is distinct from timeout and from generic failure.
func ceremonyError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, ErrTimeout),
		errors.Is(err, ErrUnsupported), errors.Is(err, ErrNoCredential):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return ErrCancelled
	default:
		return errors.Wrapf(err, "ceremony failed")
	}
}
