package store

import (
	"whisper/internal/domain"
)

// Remote identities, keyed by the address string.

// SaveIdentity records key as the identity of addr.
func (s *FileStore) SaveIdentity(addr domain.Address, key domain.IdentityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateJSON(s.path(trustFile), func(m map[string]domain.IdentityKey) error {
		m[addr.String()] = key
		return nil
	})
}

// IsTrustedIdentity applies trust on first use.
func (s *FileStore) IsTrustedIdentity(addr domain.Address, key domain.IdentityKey, _ domain.Direction) (bool, error) {
	stored, ok, err := s.Identity(addr)
	if err != nil {
		return false, err
	}
	return trustOnFirstUse(stored, ok, key), nil
}

// Identity returns the saved identity of addr.
func (s *FileStore) Identity(addr domain.Address) (domain.IdentityKey, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lookupJSON[string, domain.IdentityKey](s.path(trustFile), addr.String())
}
