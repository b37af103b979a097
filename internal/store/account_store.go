package store

import (
	"whisper/internal/domain"
)

// SaveAccountProfile stores or replaces the profile for its relay.
func (s *FileStore) SaveAccountProfile(profile domain.AccountProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateJSON(s.path(accountsFile), func(m map[string]domain.AccountProfile) error {
		m[profile.RelayURL] = profile
		return nil
	})
}

// LoadAccountProfile returns the profile registered on relayURL.
func (s *FileStore) LoadAccountProfile(relayURL string) (domain.AccountProfile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lookupJSON[string, domain.AccountProfile](s.path(accountsFile), relayURL)
}
