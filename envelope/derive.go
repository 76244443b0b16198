package envelope

import (
	"crypto/sha256"

	"github.com/keys-pub/keys"
	"github.com/pkg/errors"
)

// SaltSize is the required salt length for Derive.
const SaltSize = 32

// NewSalt returns a new random salt.
// The salt is public, it only makes the wrapping key unique per wallet.
func NewSalt() []byte {
	return keys.RandBytes(SaltSize)
}

// Derive computes the wrapping key for a credential as
// SHA-256(credentialID || salt).
//
// Deterministic: the same (credentialID, salt) always yields the same key, so
// it can be re-derived after a restart with no retained state. No stretching
// is applied, the authenticator ceremony is the gate, the hash only binds the
// key to the credential.
func Derive(credentialID []byte, salt []byte) (*[32]byte, error) {
	if len(credentialID) == 0 {
		return nil, errors.Errorf("empty credential id")
	}
	if len(salt) != SaltSize {
		return nil, errors.Errorf("invalid salt length: %d", len(salt))
	}
	if isZero(salt) {
		return nil, errors.Errorf("invalid salt")
	}
	h := sha256.New()
	h.Write(credentialID)
	h.Write(salt)
	return keys.Bytes32(h.Sum(nil)), nil
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
