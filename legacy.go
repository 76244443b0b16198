package wallet

import (
	"crypto/sha256"

	"github.com/keys-pub/keys"
)

// LegacyKey derives the wallet key of the historical signature-derived
// format: SHA-256 of an assertion signature.
//
// This design has no independent random secret, the key is reproducible from
// any successful assertion and can't be rotated. It exists only to read
// records written by older releases; they are migrated to the canonical
// wrapped-key format on first unlock and never written back.
func LegacyKey(signature []byte) *[32]byte {
	h := sha256.Sum256(signature)
	return keys.Bytes32(h[:])
}
