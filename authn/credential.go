package authn

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/keys-pub/keys/encoding"
	"github.com/pkg/errors"
)

// Registration is the strictly typed result of a registration ceremony.
type Registration struct {
	// ID is the base62 encoded raw credential id.
	ID string
	// RawID is the credential id issued by the authenticator. Not secret,
	// safe to store in cleartext.
	RawID []byte
	// AttestationObject is the raw CBOR attestation, if the authenticator
	// produced one. It is validated for shape but never used for trust
	// decisions.
	AttestationObject []byte
}

// Assertion is the strictly typed result of an assertion ceremony.
type Assertion struct {
	// ID is the base62 encoded raw credential id.
	ID string
	// RawID is the credential id that responded.
	RawID []byte
	// Signature is the authenticator's response output. For authenticators
	// with a credential-bound PRF (hmac-secret) this is stable per
	// credential and relying party.
	Signature []byte
}

// attestationObject is the CBOR shape of a webauthn attestation.
type attestationObject struct {
	Format   string          `cbor:"fmt"`
	AuthData []byte          `cbor:"authData"`
	AttStmt  cbor.RawMessage `cbor:"attStmt"`
}

// authDataMinSize: rpIdHash (32) + flags (1) + counter (4).
const authDataMinSize = 37

// Valid eagerly checks the registration so internal components only ever see
// a strict, checked type.
func (r *Registration) Valid() error {
	if r == nil || len(r.RawID) == 0 {
		return errors.Errorf("invalid registration: empty credential id")
	}
	if r.ID == "" {
		r.ID = encoding.MustEncode(r.RawID, encoding.Base62)
	}
	if len(r.AttestationObject) > 0 {
		var att attestationObject
		if err := cbor.Unmarshal(r.AttestationObject, &att); err != nil {
			return errors.Wrapf(err, "invalid registration: bad attestation object")
		}
		if len(att.AuthData) < authDataMinSize {
			return errors.Errorf("invalid registration: short auth data")
		}
	}
	return nil
}

// Valid eagerly checks the assertion.
func (a *Assertion) Valid() error {
	if a == nil || len(a.RawID) == 0 {
		return errors.Errorf("invalid assertion: empty credential id")
	}
	if len(a.Signature) == 0 {
		return errors.Errorf("invalid assertion: empty signature")
	}
	if a.ID == "" {
		a.ID = encoding.MustEncode(a.RawID, encoding.Base62)
	}
	return nil
}
