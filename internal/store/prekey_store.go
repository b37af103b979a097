package store

import (
	"whisper/internal/domain"
)

// ---------- One-time pre-keys ----------

// StorePreKey saves a one-time pre-key by id.
func (s *FileStore) StorePreKey(rec domain.PreKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateJSON(s.path(preKeysFile), func(m map[uint32]domain.PreKeyRecord) error {
		m[rec.ID] = rec
		return nil
	})
}

// LoadPreKey returns the pre-key with id.
func (s *FileStore) LoadPreKey(id uint32) (domain.PreKeyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lookupJSON[uint32, domain.PreKeyRecord](s.path(preKeysFile), id)
}

// ContainsPreKey reports whether id is stored.
func (s *FileStore) ContainsPreKey(id uint32) (bool, error) {
	_, ok, err := s.LoadPreKey(id)
	return ok, err
}

// RemovePreKey deletes id; removing a missing id is not an error.
func (s *FileStore) RemovePreKey(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateJSON(s.path(preKeysFile), func(m map[uint32]domain.PreKeyRecord) error {
		delete(m, id)
		return nil
	})
}

// ---------- Signed pre-keys ----------

// StoreSignedPreKey saves a signed pre-key by id.
func (s *FileStore) StoreSignedPreKey(rec domain.SignedPreKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateJSON(s.path(signedPreKeysFile), func(m map[uint32]domain.SignedPreKeyRecord) error {
		m[rec.ID] = rec
		return nil
	})
}

// LoadSignedPreKey returns the signed pre-key with id.
func (s *FileStore) LoadSignedPreKey(id uint32) (domain.SignedPreKeyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return lookupJSON[uint32, domain.SignedPreKeyRecord](s.path(signedPreKeysFile), id)
}

// ContainsSignedPreKey reports whether id is stored.
func (s *FileStore) ContainsSignedPreKey(id uint32) (bool, error) {
	_, ok, err := s.LoadSignedPreKey(id)
	return ok, err
}

// RemoveSignedPreKey deletes id.
func (s *FileStore) RemoveSignedPreKey(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateJSON(s.path(signedPreKeysFile), func(m map[uint32]domain.SignedPreKeyRecord) error {
		delete(m, id)
		return nil
	})
}
