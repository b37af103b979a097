package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"whisper/internal/domain"
)

// DefaultRedisTimeout bounds every Redis round trip.
const DefaultRedisTimeout = 3 * time.Second

// RedisStore keeps the protocol state in Redis under one namespace, so
// several devices can share a server. Layout:
//
//	<ns>:identity         sealed local identity (string)
//	<ns>:prekeys          id -> JSON PreKeyRecord (hash)
//	<ns>:signed_prekeys   id -> JSON SignedPreKeyRecord (hash)
//	<ns>:identities       address -> serialized identity key (hash)
//	<ns>:sessions         address -> session record (hash)
type RedisStore struct {
	rdb     redis.UniversalClient
	ns      string
	timeout time.Duration
	params  scryptParams

	mu    sync.RWMutex
	local *localIdentity
}

// RedisStoreOption tunes a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisTimeout changes the per-call timeout.
func WithRedisTimeout(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.timeout = d }
}

// WithRedisScryptCost overrides the scrypt cost used for new identity envelopes.
func WithRedisScryptCost(n, r, p int) RedisStoreOption {
	return func(s *RedisStore) { s.params = scryptParams{N: n, R: r, P: p} }
}

// NewRedisStore returns a store using rdb under namespace ns.
func NewRedisStore(rdb redis.UniversalClient, ns string, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{rdb: rdb, ns: ns, timeout: DefaultRedisTimeout, params: defaultScryptParams()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) key(suffix string) string { return s.ns + ":" + suffix }

func (s *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// hget returns (nil, false, nil) for a missing field.
func (s *RedisStore) hget(hash, field string) ([]byte, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	b, err := s.rdb.HGet(ctx, s.key(hash), field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis hget %s: %w", hash, err)
	}
	return b, true, nil
}

func (s *RedisStore) hset(hash, field string, v []byte) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.rdb.HSet(ctx, s.key(hash), field, v).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", hash, err)
	}
	return nil
}

func (s *RedisStore) hdel(hash, field string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.rdb.HDel(ctx, s.key(hash), field).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", hash, err)
	}
	return nil
}

func (s *RedisStore) hexists(hash, field string) (bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	ok, err := s.rdb.HExists(ctx, s.key(hash), field).Result()
	if err != nil {
		return false, fmt.Errorf("redis hexists %s: %w", hash, err)
	}
	return ok, nil
}

// ---------- Local identity ----------

func (s *RedisStore) SaveLocalIdentity(passphrase string, id domain.Identity, registrationID uint32) error {
	li := localIdentity{Identity: id, RegistrationID: registrationID}
	blob, err := sealLocalIdentity(passphrase, li, s.params)
	if err != nil {
		return err
	}
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.rdb.Set(ctx, s.key("identity"), blob, 0).Err(); err != nil {
		return fmt.Errorf("redis set identity: %w", err)
	}
	s.mu.Lock()
	s.local = &li
	s.mu.Unlock()
	return nil
}

func (s *RedisStore) Unlock(passphrase string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	blob, err := s.rdb.Get(ctx, s.key("identity")).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNoIdentity
	}
	if err != nil {
		return fmt.Errorf("redis get identity: %w", err)
	}
	li, err := openLocalIdentity(passphrase, blob)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.local = &li
	s.mu.Unlock()
	return nil
}

func (s *RedisStore) IdentityKeyPair() (domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.local == nil {
		return domain.Identity{}, ErrLocked
	}
	return s.local.Identity, nil
}

func (s *RedisStore) LocalRegistrationID() (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.local == nil {
		return 0, ErrLocked
	}
	return s.local.RegistrationID, nil
}

// ---------- Remote identities ----------

func (s *RedisStore) SaveIdentity(addr domain.Address, key domain.IdentityKey) error {
	return s.hset("identities", addr.String(), key.Serialize())
}

func (s *RedisStore) IsTrustedIdentity(addr domain.Address, key domain.IdentityKey, _ domain.Direction) (bool, error) {
	stored, ok, err := s.Identity(addr)
	if err != nil {
		return false, err
	}
	return trustOnFirstUse(stored, ok, key), nil
}

func (s *RedisStore) Identity(addr domain.Address) (domain.IdentityKey, bool, error) {
	b, ok, err := s.hget("identities", addr.String())
	if err != nil || !ok {
		return domain.IdentityKey{}, false, err
	}
	key, err := domain.DecodeIdentityKey(b)
	if err != nil {
		return domain.IdentityKey{}, false, fmt.Errorf("stored identity for %s: %w", addr, err)
	}
	return key, true, nil
}

// ---------- Pre-keys ----------

func (s *RedisStore) LoadPreKey(id uint32) (domain.PreKeyRecord, bool, error) {
	return redisJSON[domain.PreKeyRecord](s, "prekeys", id)
}

func (s *RedisStore) StorePreKey(rec domain.PreKeyRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.hset("prekeys", idField(rec.ID), b)
}

func (s *RedisStore) ContainsPreKey(id uint32) (bool, error) {
	return s.hexists("prekeys", idField(id))
}

func (s *RedisStore) RemovePreKey(id uint32) error {
	return s.hdel("prekeys", idField(id))
}

func (s *RedisStore) LoadSignedPreKey(id uint32) (domain.SignedPreKeyRecord, bool, error) {
	return redisJSON[domain.SignedPreKeyRecord](s, "signed_prekeys", id)
}

func (s *RedisStore) StoreSignedPreKey(rec domain.SignedPreKeyRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.hset("signed_prekeys", idField(rec.ID), b)
}

func (s *RedisStore) ContainsSignedPreKey(id uint32) (bool, error) {
	return s.hexists("signed_prekeys", idField(id))
}

func (s *RedisStore) RemoveSignedPreKey(id uint32) error {
	return s.hdel("signed_prekeys", idField(id))
}

// ---------- Sessions ----------

func (s *RedisStore) LoadSession(addr domain.Address) ([]byte, bool, error) {
	return s.hget("sessions", addr.String())
}

func (s *RedisStore) StoreSession(addr domain.Address, record []byte) error {
	return s.hset("sessions", addr.String(), record)
}

func (s *RedisStore) ContainsSession(addr domain.Address) (bool, error) {
	return s.hexists("sessions", addr.String())
}

func (s *RedisStore) DeleteSession(addr domain.Address) error {
	return s.hdel("sessions", addr.String())
}

func idField(id uint32) string { return strconv.FormatUint(uint64(id), 10) }

func redisJSON[T any](s *RedisStore, hash string, id uint32) (T, bool, error) {
	var out T
	b, ok, err := s.hget(hash, idField(id))
	if err != nil || !ok {
		return out, false, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, false, fmt.Errorf("decode %s %d: %w", hash, id, err)
	}
	return out, true, nil
}
