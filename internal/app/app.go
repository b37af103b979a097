package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whisper/internal/domain"
)

var (
	// ErrNoRelay is returned by operations that need a relay when none is configured.
	ErrNoRelay = errors.New("no relay configured; use --relay")
	// ErrNoUsername is returned when no username was given and none was registered.
	ErrNoUsername = errors.New("no username; pass --username or run register first")
)

// App is the use-case layer the CLI commands call.
type App struct {
	*Wire
	relayURL string
	now      func() time.Time
}

// New wires an App from cfg.
func New(cfg Config) (*App, error) {
	w, err := NewWire(cfg)
	if err != nil {
		return nil, err
	}
	return &App{Wire: w, relayURL: cfg.RelayURL, now: time.Now}, nil
}

// Unlock opens the local identity for the session of this process.
func (a *App) Unlock(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return a.Store.Unlock(passphrase)
}

// Register generates fresh pre-keys, publishes them and remembers the
// username for this relay.
func (a *App) Register(ctx context.Context, username domain.Username, oneTime int) (domain.PublishedKeys, error) {
	if a.Relay == nil {
		return domain.PublishedKeys{}, ErrNoRelay
	}
	keys, err := a.PreKeys.GeneratePreKeys(username, oneTime)
	if err != nil {
		return domain.PublishedKeys{}, err
	}
	if err := a.Relay.RegisterPreKeys(ctx, keys); err != nil {
		return domain.PublishedKeys{}, err
	}
	profile := domain.AccountProfile{
		RelayURL:       a.relayURL,
		Username:       username,
		DeviceID:       keys.DeviceID,
		RegistrationID: keys.RegistrationID,
		RegisteredAt:   a.now().Unix(),
	}
	if err := a.Accounts.SaveAccountProfile(profile); err != nil {
		return domain.PublishedKeys{}, fmt.Errorf("save account profile: %w", err)
	}
	return keys, nil
}

// Username returns explicit if set, otherwise the name registered on the
// configured relay.
func (a *App) Username(explicit string) (domain.Username, error) {
	if explicit != "" {
		return domain.Username(explicit), nil
	}
	p, ok, err := a.Accounts.LoadAccountProfile(a.relayURL)
	if err != nil {
		return "", err
	}
	if !ok || p.Username == "" {
		return "", ErrNoUsername
	}
	return p.Username, nil
}

// RequireRelay fails with ErrNoRelay when no relay is configured.
func (a *App) RequireRelay() error {
	if a.Relay == nil {
		return ErrNoRelay
	}
	return nil
}
