package store

import (
	"time"

	"github.com/keys-pub/keys/encoding"
)

// Record is the only durable wallet artifact.
//
// Everything sensitive is ciphertext: the wallet key wrapped under the
// credential-derived wrapping key, and the secret material encrypted under
// the wallet key. The credential id, public key and salt are public
// identifiers and safe to store in cleartext.
type Record struct {
	// ID is an identifier for the record.
	ID string `db:"id"`

	// CredentialID is the authenticator credential this wallet is bound to.
	CredentialID []byte `db:"credentialId"`

	// PublicKey is the wallet's public key id.
	PublicKey string `db:"publicKey"`

	// WrappedKey is the wallet key wrapped under the credential-derived
	// wrapping key (base64 of iv || ciphertext+tag).
	WrappedKey string `db:"wrappedKey"`

	// EncryptedSecret is the signing key encrypted under the wallet key
	// (base64 of iv || ciphertext+tag).
	EncryptedSecret string `db:"encryptedSecret"`

	// EncryptedPhrase is the recovery phrase encrypted under the wallet key,
	// empty if the wallet has no recorded phrase.
	EncryptedPhrase string `db:"encryptedPhrase"`

	// Salt for the wrapping key derivation (public).
	Salt []byte `db:"salt"`

	CreatedAt time.Time `db:"createdAt"`
}

// Valid checks the record is usable.
// An invalid record is treated as no wallet, not an error.
func (r *Record) Valid() bool {
	if r.ID == "" || len(r.CredentialID) == 0 {
		return false
	}
	if len(r.Salt) != 32 {
		return false
	}
	if r.PublicKey == "" {
		return false
	}
	if !validCiphertext(r.WrappedKey) || !validCiphertext(r.EncryptedSecret) {
		return false
	}
	if r.EncryptedPhrase != "" && !validCiphertext(r.EncryptedPhrase) {
		return false
	}
	return true
}

func validCiphertext(s string) bool {
	if s == "" {
		return false
	}
	b, err := encoding.DecodeBase64(s)
	if err != nil {
		return false
	}
	// iv (12) plus tag (16) is the minimum sealed size.
	return len(b) >= 28
}
