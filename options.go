package wallet

import (
	"github.com/keyfob/wallet/session"
	"github.com/keys-pub/keys/tsutil"
)

// Options for a Wallet.
type Options struct {
	Clock        tsutil.Clock
	SessionStore session.Store
	User         string
}

// Option for a Wallet.
type Option func(*Options)

func newOptions(opts ...Option) *Options {
	options := &Options{
		Clock:        tsutil.NewClock(),
		SessionStore: session.NewMem(),
		User:         "wallet",
	}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithClock ...
func WithClock(clock tsutil.Clock) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// WithSessionStore sets the session store (volatile, session-scoped).
func WithSessionStore(store session.Store) Option {
	return func(o *Options) {
		o.SessionStore = store
	}
}

// WithUser sets the user name shown during registration.
func WithUser(user string) Option {
	return func(o *Options) {
		o.User = user
	}
}

// CreateOptions for Create.
type CreateOptions struct {
	Secret *Secret
}

// CreateOption for Create.
type CreateOption func(*CreateOptions)

func newCreateOptions(opts ...CreateOption) *CreateOptions {
	options := &CreateOptions{}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithSecret imports an existing secret instead of generating one.
func WithSecret(secret *Secret) CreateOption {
	return func(o *CreateOptions) {
		o.Secret = secret
	}
}
