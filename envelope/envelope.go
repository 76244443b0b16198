// Package envelope protects the wallet key and wallet secret.
//
// A random wallet key encrypts the secret material. The wallet key itself is
// only ever persisted wrapped under a wrapping key derived from an
// authenticator credential (see Derive).
package envelope

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/keys-pub/keys"
	"github.com/pkg/errors"
)

// ErrIntegrityCheckFailed if a ciphertext fails authentication on unwrap or
// decrypt. Treated as wrong credential or tampered data, never retried with
// the same inputs.
var ErrIntegrityCheckFailed = errors.New("integrity check failed")

// ivSize is the AES-GCM nonce size in bytes.
const ivSize = 12

// tagSize is the AES-GCM authentication tag size in bytes.
const tagSize = 16

// GenerateKey returns a new random wallet key.
func GenerateKey() *[32]byte {
	return keys.Rand32()
}

// Wrap encrypts a wallet key under a wrapping key.
// Output is iv || ciphertext+tag.
func Wrap(walletKey *[32]byte, wrapKey *[32]byte) ([]byte, error) {
	if walletKey == nil {
		return nil, errors.Errorf("nil wallet key")
	}
	return seal(walletKey[:], wrapKey)
}

// Unwrap decrypts a wrapped wallet key.
// Returns ErrIntegrityCheckFailed if the ciphertext fails authentication.
func Unwrap(wrapped []byte, wrapKey *[32]byte) (*[32]byte, error) {
	b, err := open(wrapped, wrapKey)
	if err != nil {
		return nil, err
	}
	if len(b) != 32 {
		return nil, ErrIntegrityCheckFailed
	}
	return keys.Bytes32(b), nil
}

// Encrypt seals secret bytes under a wallet key.
// Output is iv || ciphertext+tag.
func Encrypt(b []byte, walletKey *[32]byte) ([]byte, error) {
	return seal(b, walletKey)
}

// Decrypt opens secret bytes sealed with Encrypt.
// Returns ErrIntegrityCheckFailed if the ciphertext fails authentication.
func Decrypt(b []byte, walletKey *[32]byte) ([]byte, error) {
	return open(b, walletKey)
}

func seal(b []byte, key *[32]byte) ([]byte, error) {
	if key == nil {
		return nil, errors.Errorf("nil key")
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	// Fresh random IV on every call. The IV is never derived from content,
	// reuse under the same key would break confidentiality.
	iv := keys.RandBytes(ivSize)
	return aead.Seal(iv, iv, b, nil), nil
}

func open(b []byte, key *[32]byte) ([]byte, error) {
	if key == nil {
		return nil, errors.Errorf("nil key")
	}
	if len(b) < ivSize+tagSize {
		return nil, ErrIntegrityCheckFailed
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	out, err := aead.Open(nil, b[:ivSize], b[ivSize:], nil)
	if err != nil {
		return nil, ErrIntegrityCheckFailed
	}
	return out, nil
}

func newAEAD(key *[32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create aead")
	}
	return aead, nil
}
