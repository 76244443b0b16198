package envelope_test

import (
	"bytes"
	"testing"

	"github.com/keyfob/wallet/envelope"
	"github.com/keys-pub/keys"
	"github.com/stretchr/testify/require"
)

func TestDeriveDeterministic(t *testing.T) {
	credentialID := keys.RandBytes(40)
	salt := envelope.NewSalt()

	k1, err := envelope.Derive(credentialID, salt)
	require.NoError(t, err)
	k2, err := envelope.Derive(credentialID, salt)
	require.NoError(t, err)
	require.Equal(t, k1, k2)
}

func TestDeriveUnique(t *testing.T) {
	salt := envelope.NewSalt()
	k1, err := envelope.Derive(keys.RandBytes(40), salt)
	require.NoError(t, err)
	k2, err := envelope.Derive(keys.RandBytes(40), salt)
	require.NoError(t, err)
	require.NotEqual(t, k1, k2)

	// Same credential, different salt.
	credentialID := keys.RandBytes(40)
	k3, err := envelope.Derive(credentialID, envelope.NewSalt())
	require.NoError(t, err)
	k4, err := envelope.Derive(credentialID, envelope.NewSalt())
	require.NoError(t, err)
	require.NotEqual(t, k3, k4)
}

func TestDeriveFailClosed(t *testing.T) {
	salt := envelope.NewSalt()

	_, err := envelope.Derive(nil, salt)
	require.EqualError(t, err, "empty credential id")

	_, err = envelope.Derive([]byte{}, salt)
	require.EqualError(t, err, "empty credential id")

	_, err = envelope.Derive(keys.RandBytes(40), keys.RandBytes(16))
	require.EqualError(t, err, "invalid salt length: 16")

	_, err = envelope.Derive(keys.RandBytes(40), nil)
	require.EqualError(t, err, "invalid salt length: 0")

	_, err = envelope.Derive(keys.RandBytes(40), bytes.Repeat([]byte{0x00}, 32))
	require.EqualError(t, err, "invalid salt")
}
