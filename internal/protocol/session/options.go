package session

import (
	"fmt"
	"log/slog"
)

// MaxFutureMessages is the default number of messages a receiver will skip
// ahead within one chain.
const MaxFutureMessages = 2000

type config struct {
	maxFuture uint32
	logger    *slog.Logger
	locker    Locker
}

// Option configures a Builder or Cipher.
type Option func(*config) error

// WithMaxFutureMessages changes how far ahead of the chain a counter may be.
func WithMaxFutureMessages(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return fmt.Errorf("max future messages must not be negative, got %d", n)
		}
		c.maxFuture = uint32(n)
		return nil
	}
}

// WithLogger sets the debug logger. Key material is never logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		if l == nil {
			return fmt.Errorf("nil logger")
		}
		c.logger = l
		return nil
	}
}

// WithLocker installs a custom Locker.
func WithLocker(l Locker) Option {
	return func(c *config) error {
		if l == nil {
			return fmt.Errorf("nil locker")
		}
		c.locker = l
		return nil
	}
}

// WithPerAddressLocking replaces the global mutex with the shared
// per-address table.
func WithPerAddressLocking() Option {
	return WithLocker(perAddress)
}

func newConfig(opts []Option) (config, error) {
	c := config{
		maxFuture: MaxFutureMessages,
		logger:    slog.New(slog.DiscardHandler),
		locker:    GlobalLocker,
	}
	for _, opt := range opts {
		if err := opt(&c); err != nil {
			return config{}, err
		}
	}
	return c, nil
}
