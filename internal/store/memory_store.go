package store

import (
	"bytes"
	"sync"

	"whisper/internal/domain"
)

// MemoryStore is a ProtocolStore that lives only as long as the process.
// Tests and embedders that persist elsewhere use it.
type MemoryStore struct {
	mu         sync.RWMutex
	local      *localIdentity
	preKeys    map[uint32]domain.PreKeyRecord
	signed     map[uint32]domain.SignedPreKeyRecord
	identities map[domain.Address]domain.IdentityKey
	sessions   map[domain.Address][]byte
}

// NewMemoryStore returns a store already holding the local identity.
func NewMemoryStore(id domain.Identity, registrationID uint32) *MemoryStore {
	return &MemoryStore{
		local:      &localIdentity{Identity: id, RegistrationID: registrationID},
		preKeys:    make(map[uint32]domain.PreKeyRecord),
		signed:     make(map[uint32]domain.SignedPreKeyRecord),
		identities: make(map[domain.Address]domain.IdentityKey),
		sessions:   make(map[domain.Address][]byte),
	}
}

func (s *MemoryStore) SaveLocalIdentity(_ string, id domain.Identity, registrationID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.local = &localIdentity{Identity: id, RegistrationID: registrationID}
	return nil
}

// Unlock is a no-op: nothing is sealed in memory.
func (s *MemoryStore) Unlock(string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.local == nil {
		return ErrNoIdentity
	}
	return nil
}

func (s *MemoryStore) IdentityKeyPair() (domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.local == nil {
		return domain.Identity{}, ErrNoIdentity
	}
	return s.local.Identity, nil
}

func (s *MemoryStore) LocalRegistrationID() (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.local == nil {
		return 0, ErrNoIdentity
	}
	return s.local.RegistrationID, nil
}

func (s *MemoryStore) SaveIdentity(addr domain.Address, key domain.IdentityKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[addr] = key
	return nil
}

func (s *MemoryStore) IsTrustedIdentity(addr domain.Address, key domain.IdentityKey, _ domain.Direction) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.identities[addr]
	return trustOnFirstUse(stored, ok, key), nil
}

func (s *MemoryStore) Identity(addr domain.Address) (domain.IdentityKey, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.identities[addr]
	return k, ok, nil
}

func (s *MemoryStore) LoadPreKey(id uint32) (domain.PreKeyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.preKeys[id]
	return rec, ok, nil
}

func (s *MemoryStore) StorePreKey(rec domain.PreKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preKeys[rec.ID] = rec
	return nil
}

func (s *MemoryStore) ContainsPreKey(id uint32) (bool, error) {
	_, ok, err := s.LoadPreKey(id)
	return ok, err
}

func (s *MemoryStore) RemovePreKey(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.preKeys, id)
	return nil
}

func (s *MemoryStore) LoadSignedPreKey(id uint32) (domain.SignedPreKeyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.signed[id]
	return rec, ok, nil
}

func (s *MemoryStore) StoreSignedPreKey(rec domain.SignedPreKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signed[rec.ID] = rec
	return nil
}

func (s *MemoryStore) ContainsSignedPreKey(id uint32) (bool, error) {
	_, ok, err := s.LoadSignedPreKey(id)
	return ok, err
}

func (s *MemoryStore) RemoveSignedPreKey(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.signed, id)
	return nil
}

// LoadSession returns a copy so callers cannot mutate the stored record.
func (s *MemoryStore) LoadSession(addr domain.Address) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[addr]
	return bytes.Clone(rec), ok, nil
}

func (s *MemoryStore) StoreSession(addr domain.Address, record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[addr] = bytes.Clone(record)
	return nil
}

func (s *MemoryStore) ContainsSession(addr domain.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[addr]
	return ok, nil
}

func (s *MemoryStore) DeleteSession(addr domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, addr)
	return nil
}
