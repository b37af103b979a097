package store_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"whisper/internal/domain"
	"whisper/internal/store"
)

func newRedisStore(t *testing.T, ns string) (*store.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return store.NewRedisStore(rdb, ns, store.WithRedisScryptCost(1<<10, 8, 1)), mr
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t, "alice")
	t.Run("prekeys", func(t *testing.T) { runPreKeyChecks(t, s) })
	t.Run("trust", func(t *testing.T) { runTrustChecks(t, s) })
	t.Run("sessions", func(t *testing.T) { runSessionChecks(t, s) })
}

func TestRedisStore_IdentitySealed(t *testing.T) {
	s, mr := newRedisStore(t, "alice")

	require.ErrorIs(t, s.Unlock("pass"), store.ErrNoIdentity)
	_, err := s.IdentityKeyPair()
	require.ErrorIs(t, err, store.ErrLocked)

	id := testIdentity()
	require.NoError(t, s.SaveLocalIdentity("pass", id, 77))

	raw, err := mr.Get("alice:identity")
	require.NoError(t, err)
	require.NotContains(t, raw, "edpriv")

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	reopened := store.NewRedisStore(rdb, "alice")
	require.ErrorIs(t, reopened.Unlock("nope"), store.ErrWrongPassphrase)
	require.NoError(t, reopened.Unlock("pass"))

	got, err := reopened.IdentityKeyPair()
	require.NoError(t, err)
	require.Equal(t, id, got)
	reg, err := reopened.LocalRegistrationID()
	require.NoError(t, err)
	require.Equal(t, uint32(77), reg)
}

func TestRedisStore_NamespacesAreIsolated(t *testing.T) {
	s, mr := newRedisStore(t, "alice")
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	other := store.NewRedisStore(rdb, "bob")

	addr := domain.NewAddress("carol", 1)
	require.NoError(t, s.StoreSession(addr, []byte{1}))

	has, err := other.ContainsSession(addr)
	require.NoError(t, err)
	require.False(t, has)
	require.True(t, mr.Exists("alice:sessions"))
}

func TestRedisStore_ServerDown(t *testing.T) {
	s, mr := newRedisStore(t, "alice")
	mr.Close()

	_, _, err := s.LoadSession(domain.NewAddress("bob", 1))
	require.Error(t, err)
}
