package testutil

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/keyfob/wallet/authn"
	"github.com/keys-pub/keys"
)

// Authenticator is a scriptable in-memory authenticator.
//
// Ceremonies succeed by default. Set RegisterErr/AssertErr to script
// cancellation or timeout, and AssertWith to make a different credential
// respond (the wrong-device case). Registers/Asserts count ceremonies so
// tests can check when one was (or wasn't) required.
type Authenticator struct {
	mtx         sync.Mutex
	credentials map[string][]byte

	// RegisterErr fails the next Register ceremonies.
	RegisterErr error
	// AssertErr fails the next Assert ceremonies.
	AssertErr error
	// AssertWith makes this credential respond regardless of the request.
	AssertWith []byte

	// Block, if set, makes ceremonies wait until the channel is closed or
	// the context ends (to simulate a user staring at a prompt).
	Block chan struct{}

	// Registers counts registration ceremonies.
	Registers int
	// Asserts counts assertion ceremonies.
	Asserts int
}

// NewAuthenticator creates a scriptable authenticator.
func NewAuthenticator() *Authenticator {
	return &Authenticator{credentials: map[string][]byte{}}
}

func (a *Authenticator) wait(ctx context.Context) error {
	if a.Block == nil {
		return nil
	}
	select {
	case <-a.Block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register implements authn.Authenticator.
func (a *Authenticator) Register(ctx context.Context, req *authn.RegisterRequest) (*authn.Registration, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.Registers++
	if a.RegisterErr != nil {
		return nil, a.RegisterErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rawID := keys.RandBytes(40)
	a.credentials[string(rawID)] = keys.RandBytes(32)

	att, err := cbor.Marshal(map[string]interface{}{
		"fmt":      "none",
		"authData": make([]byte, 37),
		"attStmt":  map[string]interface{}{},
	})
	if err != nil {
		return nil, err
	}
	return &authn.Registration{RawID: rawID, AttestationObject: att}, nil
}

// Assert implements authn.Authenticator.
// The signature is deterministic per credential and relying party, like an
// authenticator PRF.
func (a *Authenticator) Assert(ctx context.Context, req *authn.AssertRequest) (*authn.Assertion, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.Asserts++
	if a.AssertErr != nil {
		return nil, a.AssertErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rawID := req.CredentialID
	if a.AssertWith != nil {
		rawID = a.AssertWith
	}
	if len(rawID) == 0 {
		// Resident credential flow: any credential for the relying party.
		for id := range a.credentials {
			rawID = []byte(id)
			break
		}
	}
	secret, ok := a.credentials[string(rawID)]
	if !ok {
		if a.AssertWith == nil {
			return nil, authn.ErrNoCredential
		}
		// Scripted foreign credential (a different device).
		h := sha256.Sum256(rawID)
		secret = h[:]
	}

	h := sha256.New()
	h.Write(secret)
	h.Write([]byte(req.RPID))
	return &authn.Assertion{RawID: rawID, Signature: h.Sum(nil)}, nil
}
