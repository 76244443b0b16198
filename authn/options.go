package authn

import "time"

// Options for a Gateway.
type Options struct {
	Timeout time.Duration
}

// Option for a Gateway.
type Option func(*Options)

func newOptions(opts ...Option) *Options {
	options := &Options{
		Timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithTimeout sets the ceremony timeout ceiling.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.Timeout = timeout
	}
}
