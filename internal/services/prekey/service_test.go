package prekey_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"whisper/internal/crypto"
	"whisper/internal/domain"
	"whisper/internal/protocol/x3dh"
	"whisper/internal/services/prekey"
	"whisper/internal/store"
)

func TestGeneratePreKeys_StoresPrivateHalves(t *testing.T) {
	id, err := crypto.GenerateIdentity()
	require.NoError(t, err)
	st := store.NewMemoryStore(id, 1234)

	keys, err := prekey.New(st, 3).GeneratePreKeys("alice", 4)
	require.NoError(t, err)

	require.Equal(t, domain.Username("alice"), keys.Username)
	require.Equal(t, uint32(1234), keys.RegistrationID)
	require.Equal(t, uint32(3), keys.DeviceID)
	require.True(t, keys.IdentityKey.Equal(id.Public()))
	require.True(t, x3dh.VerifySignedPreKey(keys.IdentityKey, keys.SignedPreKey, keys.SignedPreKeySignature))

	spk, ok, err := st.LoadSignedPreKey(keys.SignedPreKeyID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, keys.SignedPreKey, spk.KeyPair.Pub)
	require.NotZero(t, spk.Timestamp)

	require.Len(t, keys.OneTimePreKeys, 4)
	seen := map[uint32]bool{}
	for _, opk := range keys.OneTimePreKeys {
		require.False(t, seen[opk.ID])
		seen[opk.ID] = true
		require.NotZero(t, opk.ID)
		require.Less(t, opk.ID, uint32(prekey.MaxPreKeyID))

		rec, ok, err := st.LoadPreKey(opk.ID)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, opk.Pub, rec.KeyPair.Pub)
	}
}

func TestGeneratePreKeys_RejectsBadCount(t *testing.T) {
	id, err := crypto.GenerateIdentity()
	require.NoError(t, err)
	_, err = prekey.New(store.NewMemoryStore(id, 1), 1).GeneratePreKeys("alice", 0)
	require.Error(t, err)
}

func TestPreKeyIDs_Wrap(t *testing.T) {
	require.Equal(t, []uint32{1, 2, 3}, prekey.PreKeyIDs(1, 3))
	require.Equal(t, []uint32{prekey.MaxPreKeyID - 2, prekey.MaxPreKeyID - 1, 1, 2}, prekey.PreKeyIDs(prekey.MaxPreKeyID-2, 4))
}
