package server

import (
	"context"
	"slices"
	"sync"

	"whisper/internal/domain"
)

// Backend holds published keys and queued envelopes.
type Backend interface {
	// PutKeys replaces everything published for keys.Username/keys.DeviceID.
	PutKeys(ctx context.Context, keys domain.PublishedKeys) error
	// TakeBundle returns a bundle for the device, consuming at most one
	// one-time pre-key.
	TakeBundle(ctx context.Context, user domain.Username, deviceID uint32) (domain.PreKeyBundle, bool, error)
	// Enqueue appends env to its recipient's queue. env.ID is already set.
	Enqueue(ctx context.Context, env domain.Envelope) error
	// Peek returns up to limit queued envelopes without removing them.
	// limit <= 0 means all.
	Peek(ctx context.Context, user domain.Username, limit int) ([]domain.Envelope, error)
	// Ack removes the envelopes with the given ids. Unknown ids are ignored.
	Ack(ctx context.Context, user domain.Username, ids []string) error
}

type deviceKey struct {
	user   domain.Username
	device uint32
}

// MemoryBackend keeps all state in process memory.
type MemoryBackend struct {
	mu     sync.Mutex
	keys   map[deviceKey]domain.PublishedKeys
	queues map[domain.Username][]domain.Envelope
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		keys:   make(map[deviceKey]domain.PublishedKeys),
		queues: make(map[domain.Username][]domain.Envelope),
	}
}

func (m *MemoryBackend) PutKeys(_ context.Context, keys domain.PublishedKeys) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys.OneTimePreKeys = slices.Clone(keys.OneTimePreKeys)
	m.keys[deviceKey{keys.Username, keys.DeviceID}] = keys
	return nil
}

func (m *MemoryBackend) TakeBundle(_ context.Context, user domain.Username, deviceID uint32) (domain.PreKeyBundle, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := deviceKey{user, deviceID}
	keys, ok := m.keys[k]
	if !ok {
		return domain.PreKeyBundle{}, false, nil
	}
	var opk *domain.OneTimePreKeyPublic
	if len(keys.OneTimePreKeys) > 0 {
		first := keys.OneTimePreKeys[0]
		opk = &first
		keys.OneTimePreKeys = keys.OneTimePreKeys[1:]
		m.keys[k] = keys
	}
	return bundleFor(keys, opk), true, nil
}

func (m *MemoryBackend) Enqueue(_ context.Context, env domain.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[env.To] = append(m.queues[env.To], env)
	return nil
}

func (m *MemoryBackend) Peek(_ context.Context, user domain.Username, limit int) ([]domain.Envelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[user]
	if limit > 0 && limit < len(q) {
		q = q[:limit]
	}
	return slices.Clone(q), nil
}

func (m *MemoryBackend) Ack(_ context.Context, user domain.Username, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[user] = slices.DeleteFunc(m.queues[user], func(env domain.Envelope) bool {
		return slices.Contains(ids, env.ID)
	})
	return nil
}

func bundleFor(keys domain.PublishedKeys, opk *domain.OneTimePreKeyPublic) domain.PreKeyBundle {
	b := domain.PreKeyBundle{
		RegistrationID:        keys.RegistrationID,
		DeviceID:              keys.DeviceID,
		PreKeyID:              domain.None[uint32](),
		SignedPreKeyID:        keys.SignedPreKeyID,
		SignedPreKey:          keys.SignedPreKey,
		SignedPreKeySignature: keys.SignedPreKeySignature,
		IdentityKey:           keys.IdentityKey,
	}
	if opk != nil {
		b.PreKeyID = domain.Some(opk.ID)
		b.PreKey = opk.Pub
	}
	return b
}
