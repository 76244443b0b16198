package wallet_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/keyfob/wallet"
	"github.com/keyfob/wallet/authn"
	"github.com/keyfob/wallet/envelope"
	"github.com/keyfob/wallet/session"
	"github.com/keyfob/wallet/store"
	"github.com/keyfob/wallet/testutil"
	"github.com/keys-pub/keys"
	"github.com/stretchr/testify/require"
)

func testWalletAt(t *testing.T, path string, auth *testutil.Authenticator, sess session.Store) (*wallet.Wallet, *store.Store) {
	st, err := store.New(path)
	require.NoError(t, err)
	gateway := authn.NewGateway(testutil.RP, auth)
	w := wallet.New(st, gateway, wallet.WithSessionStore(sess))
	return w, st
}

func TestCreateUnlock(t *testing.T) {
	// Scenario A: create on one "page", unlock later with the same
	// credential.
	path := testutil.Path()
	defer func() { _ = os.Remove(path) }()
	auth := testutil.NewAuthenticator()

	w1, st1 := testWalletAt(t, path, auth, session.NewMem())

	status, err := w1.Status()
	require.NoError(t, err)
	require.Equal(t, wallet.NoWallet, status)

	secret, err := w1.Create(context.TODO())
	require.NoError(t, err)
	require.NotNil(t, secret)
	require.NotEmpty(t, secret.Phrase())
	require.Equal(t, 1, auth.Registers)

	status, err = w1.Status()
	require.NoError(t, err)
	require.Equal(t, wallet.Unlocked, status)

	pub, err := w1.PublicKey()
	require.NoError(t, err)
	require.Equal(t, secret.ID(), pub)

	err = st1.Close()
	require.NoError(t, err)

	// New session (fresh session store): unlocking requires a ceremony.
	w2, st2 := testWalletAt(t, path, auth, session.NewMem())
	defer func() { _ = st2.Close() }()

	status, err = w2.Status()
	require.NoError(t, err)
	require.Equal(t, wallet.Locked, status)

	out, err := w2.Unlock(context.TODO())
	require.NoError(t, err)
	require.Equal(t, secret.ID(), out.ID())
	require.Equal(t, secret.Key().Seed(), out.Key().Seed())
	require.Equal(t, secret.Phrase(), out.Phrase())
	require.Equal(t, 1, auth.Asserts)
}

func TestWrongCredential(t *testing.T) {
	// Scenario B: an assertion from a different credential must fail the
	// integrity check, never decrypt.
	path := testutil.Path()
	defer func() { _ = os.Remove(path) }()
	auth := testutil.NewAuthenticator()

	w, st := testWalletAt(t, path, auth, session.NewMem())
	defer func() { _ = st.Close() }()

	_, err := w.Create(context.TODO())
	require.NoError(t, err)
	err = w.Lock()
	require.NoError(t, err)

	auth.AssertWith = keys.RandBytes(40)
	_, err = w.Unlock(context.TODO())
	require.Equal(t, wallet.ErrIntegrityCheckFailed, err)

	status, err := w.Status()
	require.NoError(t, err)
	require.Equal(t, wallet.Locked, status)

	// The right credential still unlocks.
	auth.AssertWith = nil
	_, err = w.Unlock(context.TODO())
	require.NoError(t, err)
}

func TestCreateCancelled(t *testing.T) {
	// Scenario C: cancelling the ceremony during creation writes nothing.
	w, auth, closeFn := testutil.NewTestWallet(t)
	defer closeFn()

	auth.RegisterErr = authn.ErrCancelled
	_, err := w.Create(context.TODO())
	require.Equal(t, wallet.ErrCancelled, err)

	exists, err := w.Exists()
	require.NoError(t, err)
	require.False(t, exists)

	status, err := w.Status()
	require.NoError(t, err)
	require.Equal(t, wallet.NoWallet, status)
}

func TestSessionReveal(t *testing.T) {
	// Scenario D: within one session the resealed secret avoids ceremonies,
	// a new session requires a fresh assertion.
	path := testutil.Path()
	defer func() { _ = os.Remove(path) }()
	auth := testutil.NewAuthenticator()
	sess := session.NewMem()

	w1, st1 := testWalletAt(t, path, auth, sess)
	secret, err := w1.Create(context.TODO())
	require.NoError(t, err)
	err = st1.Close()
	require.NoError(t, err)

	// Same session store, e.g. a page navigation: no ceremony.
	w2, st2 := testWalletAt(t, path, auth, sess)
	out, err := w2.Unlock(context.TODO())
	require.NoError(t, err)
	require.Equal(t, secret.ID(), out.ID())
	require.Equal(t, 0, auth.Asserts)
	err = st2.Close()
	require.NoError(t, err)

	// Session end: the reveal key is gone, a ceremony is required.
	w3, st3 := testWalletAt(t, path, auth, session.NewMem())
	defer func() { _ = st3.Close() }()
	out, err = w3.Unlock(context.TODO())
	require.NoError(t, err)
	require.Equal(t, secret.ID(), out.ID())
	require.Equal(t, 1, auth.Asserts)
}

func TestLockForcesCeremony(t *testing.T) {
	w, auth, closeFn := testutil.NewTestWallet(t)
	defer closeFn()

	_, err := w.Create(context.TODO())
	require.NoError(t, err)

	err = w.Lock()
	require.NoError(t, err)
	status, err := w.Status()
	require.NoError(t, err)
	require.Equal(t, wallet.Locked, status)

	_, err = w.Unlock(context.TODO())
	require.NoError(t, err)
	require.Equal(t, 1, auth.Asserts)
}

func TestUnlockNoWallet(t *testing.T) {
	w, _, closeFn := testutil.NewTestWallet(t)
	defer closeFn()

	_, err := w.Unlock(context.TODO())
	require.Equal(t, wallet.ErrNoWallet, err)
}

func TestDelete(t *testing.T) {
	w, _, closeFn := testutil.NewTestWallet(t)
	defer closeFn()

	_, err := w.Create(context.TODO())
	require.NoError(t, err)

	err = w.Delete()
	require.NoError(t, err)

	status, err := w.Status()
	require.NoError(t, err)
	require.Equal(t, wallet.NoWallet, status)

	_, err = w.Unlock(context.TODO())
	require.Equal(t, wallet.ErrNoWallet, err)
}

func TestNoCleartext(t *testing.T) {
	path := testutil.Path()
	defer func() { _ = os.Remove(path) }()
	auth := testutil.NewAuthenticator()

	w, st := testWalletAt(t, path, auth, session.NewMem())
	defer func() { _ = st.Close() }()

	secret, err := w.Create(context.TODO())
	require.NoError(t, err)

	record, err := st.Load()
	require.NoError(t, err)
	require.NotNil(t, record)

	seed := secret.Key().Seed()
	fields := []string{
		record.ID,
		string(record.CredentialID),
		record.PublicKey,
		record.WrappedKey,
		record.EncryptedSecret,
		record.EncryptedPhrase,
		string(record.Salt),
	}
	for _, field := range fields {
		require.NotContains(t, field, string(seed[:]))
		require.NotContains(t, field, secret.Phrase())
	}
}

func TestImportSecret(t *testing.T) {
	w, _, closeFn := testutil.NewTestWallet(t)
	defer closeFn()

	key := keys.GenerateEdX25519Key()
	imported, err := wallet.ImportSecret(key)
	require.NoError(t, err)

	secret, err := w.Create(context.TODO(), wallet.WithSecret(imported))
	require.NoError(t, err)
	require.Equal(t, key.ID(), secret.ID())
	// Imported wallets have no recorded phrase, and no phrase ciphertext.
	require.Empty(t, secret.Phrase())

	err = w.Lock()
	require.NoError(t, err)
	out, err := w.Unlock(context.TODO())
	require.NoError(t, err)
	require.Equal(t, key.ID(), out.ID())
	require.Empty(t, out.Phrase())
}

func TestRotate(t *testing.T) {
	path := testutil.Path()
	defer func() { _ = os.Remove(path) }()
	auth := testutil.NewAuthenticator()

	w, st := testWalletAt(t, path, auth, session.NewMem())
	defer func() { _ = st.Close() }()

	secret, err := w.Create(context.TODO())
	require.NoError(t, err)
	before, err := st.Load()
	require.NoError(t, err)

	err = w.Rotate(context.TODO())
	require.NoError(t, err)

	after, err := st.Load()
	require.NoError(t, err)
	require.NotEqual(t, before.ID, after.ID)
	require.NotEqual(t, before.Salt, after.Salt)
	require.NotEqual(t, before.WrappedKey, after.WrappedKey)
	require.NotEqual(t, before.EncryptedSecret, after.EncryptedSecret)
	require.Equal(t, before.CredentialID, after.CredentialID)
	require.Equal(t, before.PublicKey, after.PublicKey)

	// The rotated record still unlocks to the same secret.
	err = w.Lock()
	require.NoError(t, err)
	out, err := w.Unlock(context.TODO())
	require.NoError(t, err)
	require.Equal(t, secret.ID(), out.ID())
}

func TestUnlockInProgress(t *testing.T) {
	w, auth, closeFn := testutil.NewTestWallet(t)
	defer closeFn()

	_, err := w.Create(context.TODO())
	require.NoError(t, err)
	err = w.Lock()
	require.NoError(t, err)

	// First unlock hangs at the authenticator prompt.
	auth.Block = make(chan struct{})
	unlocked := make(chan error, 1)
	go func() {
		_, err := w.Unlock(context.TODO())
		unlocked <- err
	}()

	// A second attempt is rejected rather than prompting again.
	require.Eventually(t, func() bool {
		_, err := w.Unlock(context.TODO())
		return err == wallet.ErrUnlockInProgress
	}, time.Second, 10*time.Millisecond)

	close(auth.Block)
	require.NoError(t, <-unlocked)
}

func TestLegacyMigration(t *testing.T) {
	path := testutil.Path()
	defer func() { _ = os.Remove(path) }()
	auth := testutil.NewAuthenticator()

	w, st := testWalletAt(t, path, auth, session.NewMem())
	defer func() { _ = st.Close() }()

	// Build a record in the historical signature-derived format.
	reg, err := auth.Register(context.TODO(), &authn.RegisterRequest{})
	require.NoError(t, err)
	asr, err := auth.Assert(context.TODO(), &authn.AssertRequest{
		RPID:         testutil.RP.ID,
		CredentialID: reg.RawID,
	})
	require.NoError(t, err)

	key := keys.GenerateEdX25519Key()
	seed := key.Seed()
	legacyKey := wallet.LegacyKey(asr.Signature)
	encryptedSecret, err := envelope.Encrypt(seed[:], legacyKey)
	require.NoError(t, err)
	err = st.SaveLegacy(&store.LegacyRecord{
		CredentialID:    reg.RawID,
		PublicKey:       key.ID().String(),
		EncryptedSecret: encryptedSecret,
		CreatedAt:       time.Now().UTC(),
	})
	require.NoError(t, err)

	status, err := w.Status()
	require.NoError(t, err)
	require.Equal(t, wallet.Locked, status)

	// Unlock reads the legacy record and migrates it.
	secret, err := w.Unlock(context.TODO())
	require.NoError(t, err)
	require.Equal(t, key.ID(), secret.ID())

	record, err := st.Load()
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, reg.RawID, record.CredentialID)
	legacy, err := st.LoadLegacy()
	require.NoError(t, err)
	require.Nil(t, legacy)

	// Subsequent unlocks use the canonical format.
	err = w.Lock()
	require.NoError(t, err)
	out, err := w.Unlock(context.TODO())
	require.NoError(t, err)
	require.Equal(t, key.ID(), out.ID())
}

func TestCreateTwice(t *testing.T) {
	w, _, closeFn := testutil.NewTestWallet(t)
	defer closeFn()

	_, err := w.Create(context.TODO())
	require.NoError(t, err)
	_, err = w.Create(context.TODO())
	require.EqualError(t, err, "wallet already exists")
}
