package store

import (
	"whisper/internal/domain"
)

// Session records are opaque bytes; encoding/json stores them as base64.

// StoreSession writes the record for addr.
func (s *FileStore) StoreSession(addr domain.Address, record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateJSON(s.path(sessionsFile), func(m map[string][]byte) error {
		m[addr.String()] = record
		return nil
	})
}

// LoadSession returns the record for addr.
func (s *FileStore) LoadSession(addr domain.Address) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lookupJSON[string, []byte](s.path(sessionsFile), addr.String())
}

// ContainsSession reports whether addr has a record.
func (s *FileStore) ContainsSession(addr domain.Address) (bool, error) {
	_, ok, err := s.LoadSession(addr)
	return ok, err
}

// DeleteSession drops the record for addr.
func (s *FileStore) DeleteSession(addr domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateJSON(s.path(sessionsFile), func(m map[string][]byte) error {
		delete(m, addr.String())
		return nil
	})
}
