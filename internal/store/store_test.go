package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"whisper/internal/domain"
	"whisper/internal/store"
)

// Shared behaviour checks run against every backend.

func runPreKeyChecks(t *testing.T, s domain.ProtocolStore) {
	t.Helper()

	_, ok, err := s.LoadPreKey(5)
	require.NoError(t, err)
	require.False(t, ok)

	pk := domain.PreKeyRecord{ID: 5, KeyPair: domain.KeyPair{Priv: domain.X25519Private{1}, Pub: domain.X25519Public{2}}}
	require.NoError(t, s.StorePreKey(pk))
	got, ok, err := s.LoadPreKey(5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pk, got)

	has, err := s.ContainsPreKey(5)
	require.NoError(t, err)
	require.True(t, has)
	require.NoError(t, s.RemovePreKey(5))
	has, err = s.ContainsPreKey(5)
	require.NoError(t, err)
	require.False(t, has)

	spk := domain.SignedPreKeyRecord{
		ID:        9,
		KeyPair:   domain.KeyPair{Priv: domain.X25519Private{3}, Pub: domain.X25519Public{4}},
		Signature: []byte{1, 2, 3},
		Timestamp: 1700000000,
	}
	require.NoError(t, s.StoreSignedPreKey(spk))
	gotSPK, ok, err := s.LoadSignedPreKey(9)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, spk, gotSPK)

	require.NoError(t, s.RemoveSignedPreKey(9))
	has, err = s.ContainsSignedPreKey(9)
	require.NoError(t, err)
	require.False(t, has)
}

func runTrustChecks(t *testing.T, s domain.ProtocolStore) {
	t.Helper()
	addr := domain.NewAddress("bob", 1)
	first := domain.IdentityKey{XPub: domain.X25519Public{1}, EdPub: domain.Ed25519Public{1}}
	second := domain.IdentityKey{XPub: domain.X25519Public{2}, EdPub: domain.Ed25519Public{2}}

	ok, err := s.IsTrustedIdentity(addr, first, domain.Sending)
	require.NoError(t, err)
	require.True(t, ok, "unknown peers are trusted on first use")

	require.NoError(t, s.SaveIdentity(addr, first))
	for _, dir := range []domain.Direction{domain.Sending, domain.Receiving} {
		ok, err = s.IsTrustedIdentity(addr, first, dir)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.IsTrustedIdentity(addr, second, dir)
		require.NoError(t, err)
		require.False(t, ok, "changed key must not be trusted (%s)", dir)
	}

	got, found, err := s.Identity(addr)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, got.Equal(first))

	// Other devices of the same user are independent.
	ok, err = s.IsTrustedIdentity(domain.NewAddress("bob", 2), second, domain.Receiving)
	require.NoError(t, err)
	require.True(t, ok)
}

func runSessionChecks(t *testing.T, s domain.ProtocolStore) {
	t.Helper()
	addr := domain.NewAddress("bob", 1)

	_, ok, err := s.LoadSession(addr)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.StoreSession(addr, []byte{1, 2, 3}))
	require.NoError(t, s.StoreSession(addr, []byte{4, 5}))
	got, ok, err := s.LoadSession(addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{4, 5}, got)

	has, err := s.ContainsSession(domain.NewAddress("bob", 2))
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, s.DeleteSession(addr))
	has, err = s.ContainsSession(addr)
	require.NoError(t, err)
	require.False(t, has)
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemoryStore(testIdentity(), 3)
	require.NoError(t, s.Unlock(""))
	reg, err := s.LocalRegistrationID()
	require.NoError(t, err)
	require.Equal(t, uint32(3), reg)

	t.Run("prekeys", func(t *testing.T) { runPreKeyChecks(t, s) })
	t.Run("trust", func(t *testing.T) { runTrustChecks(t, s) })
	t.Run("sessions", func(t *testing.T) { runSessionChecks(t, s) })
}

func TestMemoryStore_SessionCopies(t *testing.T) {
	s := store.NewMemoryStore(testIdentity(), 3)
	addr := domain.NewAddress("bob", 1)
	rec := []byte{1, 2, 3}
	require.NoError(t, s.StoreSession(addr, rec))
	rec[0] = 99

	got, _, err := s.LoadSession(addr)
	require.NoError(t, err)
	require.Equal(t, byte(1), got[0])
	got[1] = 99

	again, _, err := s.LoadSession(addr)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, again)
}
