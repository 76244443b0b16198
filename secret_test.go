package wallet_test

import (
	"testing"

	"github.com/keyfob/wallet"
	"github.com/keys-pub/keys"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	secret, err := wallet.GenerateSecret()
	require.NoError(t, err)
	require.NotEmpty(t, secret.Phrase())
	require.NotNil(t, secret.Key())

	// The phrase recovers the same key.
	recovered, err := wallet.SecretFromPhrase(secret.Phrase())
	require.NoError(t, err)
	require.Equal(t, secret.ID(), recovered.ID())
	require.Equal(t, secret.Key().Seed(), recovered.Key().Seed())
}

func TestSecretFromPhraseInvalid(t *testing.T) {
	_, err := wallet.SecretFromPhrase("not a valid recovery phrase")
	require.Error(t, err)
}

func TestImportSecretNil(t *testing.T) {
	_, err := wallet.ImportSecret(nil)
	require.EqualError(t, err, "nil key")
}

func TestImportSecretKey(t *testing.T) {
	key := keys.GenerateEdX25519Key()
	secret, err := wallet.ImportSecret(key)
	require.NoError(t, err)
	require.Equal(t, key.ID(), secret.ID())
	require.Empty(t, secret.Phrase())
}
