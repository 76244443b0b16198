package wallet

import (
	"github.com/keyfob/wallet/authn"
	"github.com/keyfob/wallet/envelope"
	"github.com/pkg/errors"
)

// ErrNoWallet if no wallet record exists.
var ErrNoWallet = errors.New("no wallet found")

// ErrLocked if the wallet is locked.
var ErrLocked = errors.New("wallet is locked")

// ErrUnlockInProgress if an unlock ceremony is already in flight.
// A second attempt is rejected rather than issuing a competing prompt.
var ErrUnlockInProgress = errors.New("unlock already in progress")

// ErrIntegrityCheckFailed if a ciphertext failed authentication.
// Treated as wrong credential or tampered data; the wallet stays locked.
var ErrIntegrityCheckFailed = envelope.ErrIntegrityCheckFailed

// Ceremony errors (see authn).
var (
	ErrCancelled    = authn.ErrCancelled
	ErrTimeout      = authn.ErrTimeout
	ErrUnsupported  = authn.ErrUnsupported
	ErrNoCredential = authn.ErrNoCredential
)
