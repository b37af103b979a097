package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"whisper/internal/domain"
)

const (
	identityFile      = "identity.enc"
	preKeysFile       = "prekeys.json"
	signedPreKeysFile = "signed_prekeys.json"
	trustFile         = "identities.json"
	sessionsFile      = "sessions.json"
	accountsFile      = "accounts.json"
)

// FileStore keeps everything under one directory. The local identity is
// sealed with a passphrase; the rest is plain JSON written atomically.
type FileStore struct {
	dir    string
	params scryptParams

	mu    sync.Mutex
	local *localIdentity
}

// FileStoreOption tunes a FileStore.
type FileStoreOption func(*FileStore)

// WithScryptCost overrides the scrypt cost used for new identity envelopes.
func WithScryptCost(n, r, p int) FileStoreOption {
	return func(s *FileStore) { s.params = scryptParams{N: n, R: r, P: p} }
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{dir: dir, params: defaultScryptParams()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileStore) path(name string) string { return filepath.Join(s.dir, name) }

// SaveLocalIdentity seals id under passphrase and leaves the store unlocked.
func (s *FileStore) SaveLocalIdentity(passphrase string, id domain.Identity, registrationID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	li := localIdentity{Identity: id, RegistrationID: registrationID}
	blob, err := sealLocalIdentity(passphrase, li, s.params)
	if err != nil {
		return err
	}
	if err := writeFile(s.path(identityFile), blob); err != nil {
		return err
	}
	s.local = &li
	return nil
}

// Unlock opens the identity envelope with passphrase.
func (s *FileStore) Unlock(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(s.path(identityFile))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoIdentity
	}
	if err != nil {
		return err
	}
	li, err := openLocalIdentity(passphrase, blob)
	if err != nil {
		return err
	}
	s.local = &li
	return nil
}

// IdentityKeyPair returns the unlocked local identity.
func (s *FileStore) IdentityKeyPair() (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local == nil {
		return domain.Identity{}, ErrLocked
	}
	return s.local.Identity, nil
}

// LocalRegistrationID returns the registration id saved with the identity.
func (s *FileStore) LocalRegistrationID() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.local == nil {
		return 0, ErrLocked
	}
	return s.local.RegistrationID, nil
}
