package testutil

import (
	"os"
	"testing"

	"github.com/keyfob/wallet"
	"github.com/keyfob/wallet/authn"
	"github.com/keyfob/wallet/store"
	"github.com/stretchr/testify/require"
)

// RP is the relying party used in tests.
var RP = &authn.RelyingParty{ID: "keyfob.app", Name: "KeyFob"}

// NewTestWallet creates a wallet on a temporary store with a scriptable
// authenticator.
func NewTestWallet(t *testing.T, opt ...wallet.Option) (*wallet.Wallet, *Authenticator, func()) {
	path := Path()
	st, err := store.New(path)
	require.NoError(t, err)

	auth := NewAuthenticator()
	gateway := authn.NewGateway(RP, auth)
	w := wallet.New(st, gateway, opt...)

	closeFn := func() {
		err := st.Close()
		require.NoError(t, err)
		err = os.Remove(path)
		require.NoError(t, err)
	}
	return w, auth, closeFn
}
