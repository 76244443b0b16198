package wallet

import (
	"github.com/keys-pub/keys"
	"github.com/keys-pub/keys/encoding"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v4"
)

// Secret is the wallet's long-term secret: the signing key and, if the
// wallet was generated (not imported), its recovery phrase.
//
// A Secret exists in memory only between unlock and use. It is shared
// read-only with whatever needs to sign; nothing mutates it in place.
type Secret struct {
	key    *keys.EdX25519Key
	phrase string
}

// GenerateSecret creates a new signing key with a recovery phrase.
func GenerateSecret() (*Secret, error) {
	seed := keys.Rand32()
	phrase, err := encoding.BytesToPhrase(seed[:])
	if err != nil {
		return nil, err
	}
	return &Secret{
		key:    keys.NewEdX25519KeyFromSeed(seed),
		phrase: phrase,
	}, nil
}

// ImportSecret creates a Secret from an existing signing key.
// Imported wallets have no recorded recovery phrase.
func ImportSecret(key *keys.EdX25519Key) (*Secret, error) {
	if key == nil {
		return nil, errors.Errorf("nil key")
	}
	return &Secret{key: key}, nil
}

// SecretFromPhrase recovers a Secret from a recovery phrase.
func SecretFromPhrase(phrase string) (*Secret, error) {
	seed, err := encoding.PhraseToBytes(phrase, true)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode recovery phrase")
	}
	return &Secret{
		key:    keys.NewEdX25519KeyFromSeed(seed),
		phrase: phrase,
	}, nil
}

// Key is the signing key. The chain client uses this to construct a signer,
// it never sees the wallet key or wrapping key.
func (s *Secret) Key() *keys.EdX25519Key {
	return s.key
}

// ID is the public key id.
func (s *Secret) ID() keys.ID {
	return s.key.ID()
}

// Phrase is the recovery phrase, empty if the wallet has none.
func (s *Secret) Phrase() string {
	return s.phrase
}

// seedBytes is the canonical serialization of the signing key (the 32 byte
// ed25519 seed), so round-tripping through the codec is exact.
func (s *Secret) seedBytes() []byte {
	seed := s.key.Seed()
	return seed[:]
}

func secretFromSeedBytes(b []byte, phrase string) (*Secret, error) {
	if len(b) != 32 {
		return nil, errors.Errorf("invalid secret key length")
	}
	return &Secret{
		key:    keys.NewEdX25519KeyFromSeed(keys.Bytes32(b)),
		phrase: phrase,
	}, nil
}

// sessionSecret is the msgpack shape of a secret sealed in the session
// reveal cache.
type sessionSecret struct {
	Seed   []byte `msgpack:"seed"`
	Phrase string `msgpack:"phrase,omitempty"`
}

func (s *Secret) marshal() ([]byte, error) {
	return msgpack.Marshal(&sessionSecret{Seed: s.seedBytes(), Phrase: s.phrase})
}

func unmarshalSecret(b []byte) (*Secret, error) {
	var ss sessionSecret
	if err := msgpack.Unmarshal(b, &ss); err != nil {
		return nil, errors.Wrapf(err, "invalid secret")
	}
	return secretFromSeedBytes(ss.Seed, ss.Phrase)
}
