// Package session is the low-assurance reveal cache.
//
// After the wallet has been unlocked once via the authenticator ceremony, the
// already-unwrapped secret is resealed under an ephemeral session key so the
// ceremony isn't repeated on every screen. The session key lives only in
// volatile session storage and is destroyed when the session ends, forcing a
// fresh ceremony next session.
//
// This layer provides no protection against code running in the same session
// and is never a substitute for the credential-gated layer.
package session

import (
	"sync"
	"time"

	"github.com/keyfob/wallet/envelope"
	"github.com/keys-pub/keys"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v4"
)

// ErrNoSession if there is no session key (session ended or never started).
var ErrNoSession = errors.New("no session")

// entryName is the single named session-store entry for the session key.
const entryName = "sessionKey"

// Store holds session-scoped entries.
// Implementations must be volatile: contents are expected to disappear when
// the session ends and are never written to durable storage.
type Store interface {
	// Get returns a named entry, or nil if not set.
	Get(name string) ([]byte, error)
	// Set saves a named entry.
	Set(name string, b []byte) error
	// Delete removes a named entry.
	Delete(name string) error
}

type entry struct {
	Key       []byte    `msgpack:"k"`
	CreatedAt time.Time `msgpack:"cts"`
}

// Cache seals and opens secrets under a per-session key.
type Cache struct {
	mtx   sync.Mutex
	store Store
}

// NewCache creates a Cache on a session store.
func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Seal encrypts b under the session key, creating the key if this is the
// first use in this session.
func (c *Cache) Seal(b []byte) ([]byte, error) {
	key, err := c.key(true)
	if err != nil {
		return nil, err
	}
	return envelope.Encrypt(b, key)
}

// Open decrypts b with the session key.
// Returns ErrNoSession if no session key exists.
func (c *Cache) Open(b []byte) ([]byte, error) {
	key, err := c.key(false)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrNoSession
	}
	return envelope.Decrypt(b, key)
}

// Put seals b under the session key and stores it as a named entry.
func (c *Cache) Put(name string, b []byte) error {
	sealed, err := c.Seal(b)
	if err != nil {
		return err
	}
	return c.store.Set(name, sealed)
}

// Get opens a named entry sealed with Put.
// Returns nil if the entry doesn't exist, ErrNoSession if the session key is
// gone.
func (c *Cache) Get(name string) ([]byte, error) {
	sealed, err := c.store.Get(name)
	if err != nil {
		return nil, err
	}
	if sealed == nil {
		return nil, nil
	}
	return c.Open(sealed)
}

// Delete removes a named entry.
func (c *Cache) Delete(name string) error {
	return c.store.Delete(name)
}

// Clear destroys the session key.
// Anything sealed under it becomes unrecoverable.
func (c *Cache) Clear() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.store.Delete(entryName)
}

func (c *Cache) key(create bool) (*[32]byte, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	b, err := c.store.Get(entryName)
	if err != nil {
		return nil, err
	}
	if b != nil {
		var e entry
		if err := msgpack.Unmarshal(b, &e); err != nil {
			return nil, errors.Wrapf(err, "invalid session entry")
		}
		if len(e.Key) != 32 {
			return nil, errors.Errorf("invalid session key")
		}
		return keys.Bytes32(e.Key), nil
	}
	if !create {
		return nil, nil
	}

	key := keys.Rand32()
	out, err := msgpack.Marshal(&entry{Key: key[:], CreatedAt: time.Now()})
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(entryName, out); err != nil {
		return nil, err
	}
	return key, nil
}
