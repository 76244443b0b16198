// Package wallet manages a wallet secret protected by an authenticator
// credential.
//
// The secret material is encrypted under a random wallet key, and the wallet
// key is wrapped under a key derived from the authenticator credential. The
// only durable artifact is ciphertext plus public identifiers, so unlocking
// always requires an authenticator ceremony (or a still-live session reveal
// cache).
package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keyfob/wallet/authn"
	"github.com/keyfob/wallet/envelope"
	"github.com/keyfob/wallet/session"
	"github.com/keyfob/wallet/store"
	"github.com/keys-pub/keys"
	"github.com/keys-pub/keys/encoding"
	"github.com/keys-pub/keys/tsutil"
	"github.com/pkg/errors"
)

// Status of a wallet.
type Status string

// Wallet statuses.
const (
	// NoWallet if no wallet record exists.
	NoWallet Status = "no-wallet"
	// Locked if a record exists but the secret isn't in memory.
	Locked Status = "locked"
	// Unlocked if the secret is available.
	Unlocked Status = "unlocked"
)

// sessionSecretName is the session cache entry for the resealed secret.
const sessionSecretName = "secret"

// Wallet protects a Secret under an authenticator credential.
type Wallet struct {
	store   *store.Store
	gateway *authn.Gateway
	cache   *session.Cache
	clock   tsutil.Clock
	user    string

	mtx       sync.Mutex
	unlocking bool
	secret    *Secret
}

// New creates a Wallet on a record store and authenticator gateway.
func New(st *store.Store, gateway *authn.Gateway, opt ...Option) *Wallet {
	opts := newOptions(opt...)
	return &Wallet{
		store:   st,
		gateway: gateway,
		cache:   session.NewCache(opts.SessionStore),
		clock:   opts.Clock,
		user:    opts.User,
	}
}

// Status returns the wallet status.
func (w *Wallet) Status() (Status, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if w.secret != nil {
		return Unlocked, nil
	}
	record, err := w.store.Load()
	if err != nil {
		return "", err
	}
	if record != nil {
		return Locked, nil
	}
	legacy, err := w.store.LoadLegacy()
	if err != nil {
		return "", err
	}
	if legacy != nil {
		return Locked, nil
	}
	return NoWallet, nil
}

// Exists returns true if a wallet record exists.
func (w *Wallet) Exists() (bool, error) {
	ok, err := w.store.Exists()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	legacy, err := w.store.LoadLegacy()
	if err != nil {
		return false, err
	}
	return legacy != nil, nil
}

// Create registers a new credential and creates the wallet.
//
// If the ceremony fails or is cancelled no record is written and the wallet
// remains in NoWallet. By default a new secret (with recovery phrase) is
// generated, see WithSecret to import one.
func (w *Wallet) Create(ctx context.Context, opt ...CreateOption) (*Secret, error) {
	opts := newCreateOptions(opt...)

	if err := w.begin(); err != nil {
		return nil, err
	}
	defer w.end()

	exists, err := w.Exists()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Errorf("wallet already exists")
	}

	// Ceremony first: a registration failure must leave no wallet state.
	reg, err := w.gateway.Register(ctx, w.user)
	if err != nil {
		return nil, err
	}

	secret := opts.Secret
	if secret == nil {
		s, err := GenerateSecret()
		if err != nil {
			return nil, err
		}
		secret = s
	}

	record, err := newRecord(reg.RawID, secret, w.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := w.store.Save(record); err != nil {
		return nil, err
	}
	logger.Infof("Created wallet %s (%s)", record.ID, secret.ID())

	w.cacheSecret(secret)
	w.setSecret(secret)
	return secret, nil
}

// Unlock makes the Secret available.
//
// If the secret is already sealed in the session reveal cache it is opened
// without a ceremony. Otherwise an assertion ceremony runs against the
// wallet's credential; any failure leaves the wallet Locked with a typed
// error. At most one unlock is in flight at a time, a second concurrent
// attempt fails with ErrUnlockInProgress rather than issuing a competing
// authenticator prompt.
func (w *Wallet) Unlock(ctx context.Context) (*Secret, error) {
	w.mtx.Lock()
	if w.secret != nil {
		secret := w.secret
		w.mtx.Unlock()
		return secret, nil
	}
	w.mtx.Unlock()

	if err := w.begin(); err != nil {
		return nil, err
	}
	defer w.end()

	secret, err := w.unlock(ctx)
	if err != nil {
		return nil, err
	}
	w.setSecret(secret)
	return secret, nil
}

func (w *Wallet) unlock(ctx context.Context) (*Secret, error) {
	record, err := w.store.Load()
	if err != nil {
		return nil, err
	}
	if record == nil {
		legacy, err := w.store.LoadLegacy()
		if err != nil {
			return nil, err
		}
		if legacy == nil {
			return nil, ErrNoWallet
		}
		return w.unlockLegacy(ctx, legacy)
	}

	// Session fast path: reuse the resealed secret from this session.
	if secret := w.sessionSecret(); secret != nil {
		logger.Debugf("Unlocked from session cache")
		return secret, nil
	}

	asr, err := w.gateway.Assert(ctx, record.CredentialID)
	if err != nil {
		return nil, err
	}
	wrapKey, err := envelope.Derive(asr.RawID, record.Salt)
	if err != nil {
		return nil, err
	}
	wrapped, err := encoding.DecodeBase64(record.WrappedKey)
	if err != nil {
		return nil, err
	}
	walletKey, err := envelope.Unwrap(wrapped, wrapKey)
	if err != nil {
		return nil, err
	}
	secret, err := decryptSecret(record, walletKey)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Unlocked %s", record.ID)

	w.cacheSecret(secret)
	return secret, nil
}

// unlockLegacy opens a wallet in the historical signature-derived format and
// migrates it to the canonical format. The canonical record is written before
// the legacy one is cleared, so a failure in between leaves a usable wallet.
func (w *Wallet) unlockLegacy(ctx context.Context, legacy *store.LegacyRecord) (*Secret, error) {
	logger.Infof("Unlocking legacy record...")
	asr, err := w.gateway.Assert(ctx, legacy.CredentialID)
	if err != nil {
		return nil, err
	}
	key := LegacyKey(asr.Signature)
	seed, err := envelope.Decrypt(legacy.EncryptedSecret, key)
	if err != nil {
		return nil, err
	}
	phrase := ""
	if len(legacy.EncryptedPhrase) > 0 {
		b, err := envelope.Decrypt(legacy.EncryptedPhrase, key)
		if err != nil {
			return nil, err
		}
		phrase = string(b)
	}
	secret, err := secretFromSeedBytes(seed, phrase)
	if err != nil {
		return nil, err
	}

	record, err := newRecord(asr.RawID, secret, w.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := w.store.Save(record); err != nil {
		return nil, err
	}
	if err := w.store.ClearLegacy(); err != nil {
		return nil, err
	}
	logger.Infof("Migrated legacy record to %s", record.ID)

	w.cacheSecret(secret)
	return secret, nil
}

// Lock discards the in-memory secret and the session reveal key.
// The next Unlock requires a ceremony.
func (w *Wallet) Lock() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.secret = nil
	if err := w.cache.Delete(sessionSecretName); err != nil {
		return err
	}
	return w.cache.Clear()
}

// Delete removes the wallet record.
// Irreversible: the secret is unrecoverable unless the user separately holds
// the recovery phrase.
func (w *Wallet) Delete() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if err := w.store.Delete(); err != nil {
		return err
	}
	w.secret = nil
	if err := w.cache.Delete(sessionSecretName); err != nil {
		return err
	}
	return w.cache.Clear()
}

// Rotate generates a fresh wallet key and salt and re-encrypts the secret.
// Requires unlock (a ceremony if the session cache is cold). The new record
// is written as a whole-record overwrite.
func (w *Wallet) Rotate(ctx context.Context) error {
	secret, err := w.Unlock(ctx)
	if err != nil {
		return err
	}
	record, err := w.store.Load()
	if err != nil {
		return err
	}
	if record == nil {
		return ErrNoWallet
	}
	next, err := newRecord(record.CredentialID, secret, w.clock.Now())
	if err != nil {
		return err
	}
	if err := w.store.Save(next); err != nil {
		return err
	}
	logger.Infof("Rotated wallet key %s -> %s", record.ID, next.ID)
	return nil
}

// Secret returns the unlocked secret, or ErrLocked.
func (w *Wallet) Secret() (*Secret, error) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if w.secret == nil {
		return nil, ErrLocked
	}
	return w.secret, nil
}

// PublicKey returns the wallet's public key id without a ceremony.
func (w *Wallet) PublicKey() (keys.ID, error) {
	record, err := w.store.Load()
	if err != nil {
		return "", err
	}
	if record != nil {
		return keys.ParseID(record.PublicKey)
	}
	legacy, err := w.store.LoadLegacy()
	if err != nil {
		return "", err
	}
	if legacy != nil {
		return keys.ParseID(legacy.PublicKey)
	}
	return "", ErrNoWallet
}

// begin marks a ceremony-bearing operation in flight.
func (w *Wallet) begin() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	if w.unlocking {
		return ErrUnlockInProgress
	}
	w.unlocking = true
	return nil
}

func (w *Wallet) end() {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.unlocking = false
}

func (w *Wallet) setSecret(secret *Secret) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.secret = secret
}

// cacheSecret reseals the secret into the session reveal cache.
// Best effort: a cache failure never fails an unlock.
func (w *Wallet) cacheSecret(secret *Secret) {
	b, err := secret.marshal()
	if err != nil {
		logger.Warningf("Failed to marshal secret for session: %s", err)
		return
	}
	if err := w.cache.Put(sessionSecretName, b); err != nil {
		logger.Warningf("Failed to cache secret: %s", err)
	}
}

// sessionSecret opens the resealed secret from this session, or nil.
func (w *Wallet) sessionSecret() *Secret {
	b, err := w.cache.Get(sessionSecretName)
	if err != nil || b == nil {
		return nil
	}
	secret, err := unmarshalSecret(b)
	if err != nil {
		logger.Infof("Invalid session secret: %s", err)
		return nil
	}
	return secret
}

func newRecord(credentialID []byte, secret *Secret, now time.Time) (*store.Record, error) {
	salt := envelope.NewSalt()
	wrapKey, err := envelope.Derive(credentialID, salt)
	if err != nil {
		return nil, err
	}
	walletKey := envelope.GenerateKey()
	wrapped, err := envelope.Wrap(walletKey, wrapKey)
	if err != nil {
		return nil, err
	}
	encryptedSecret, err := envelope.Encrypt(secret.seedBytes(), walletKey)
	if err != nil {
		return nil, err
	}
	record := &store.Record{
		ID:              uuid.NewString(),
		CredentialID:    credentialID,
		PublicKey:       secret.ID().String(),
		WrappedKey:      encoding.MustEncode(wrapped, encoding.Base64),
		EncryptedSecret: encoding.MustEncode(encryptedSecret, encoding.Base64),
		Salt:            salt,
		CreatedAt:       now,
	}
	// The phrase is an independent ciphertext: a wallet without a phrase has
	// no phrase ciphertext at all.
	if secret.Phrase() != "" {
		encryptedPhrase, err := envelope.Encrypt([]byte(secret.Phrase()), walletKey)
		if err != nil {
			return nil, err
		}
		record.EncryptedPhrase = encoding.MustEncode(encryptedPhrase, encoding.Base64)
	}
	return record, nil
}

func decryptSecret(record *store.Record, walletKey *[32]byte) (*Secret, error) {
	encryptedSecret, err := encoding.DecodeBase64(record.EncryptedSecret)
	if err != nil {
		return nil, err
	}
	seed, err := envelope.Decrypt(encryptedSecret, walletKey)
	if err != nil {
		return nil, err
	}
	phrase := ""
	if record.EncryptedPhrase != "" {
		encryptedPhrase, err := encoding.DecodeBase64(record.EncryptedPhrase)
		if err != nil {
			return nil, err
		}
		b, err := envelope.Decrypt(encryptedPhrase, walletKey)
		if err != nil {
			return nil, err
		}
		phrase = string(b)
	}
	return secretFromSeedBytes(seed, phrase)
}
