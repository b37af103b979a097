package ratchet_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"whisper/internal/crypto"
	"whisper/internal/protocol/ratchet"
)

func TestDeriveSecrets_SplitsOutput(t *testing.T) {
	// Act.
	root, chain := ratchet.DeriveSecrets(bytes.Repeat([]byte{0x42}, 96))

	// Assert.
	require.Len(t, root.Key, ratchet.KeyLength)
	require.Len(t, chain.Key, ratchet.KeyLength)
	require.NotEqual(t, root.Key, chain.Key)
	require.EqualValues(t, 0, chain.Index)
}

func TestChainKey_NextAndMessageKeysDiffer(t *testing.T) {
	// Arrange.
	ck := ratchet.ChainKey{Key: bytes.Repeat([]byte{0x07}, 32), Index: 5}

	// Act.
	mk := ck.MessageKeys()
	next := ck.Next()

	// Assert.
	require.EqualValues(t, 5, mk.Index)
	require.EqualValues(t, 6, next.Index)
	require.Len(t, mk.CipherKey, ratchet.CipherKeyLength)
	require.Len(t, mk.MACKey, ratchet.MACKeyLength)
	require.Len(t, mk.IV, ratchet.IVLength)
	require.NotEqual(t, ck.Key, next.Key)
	require.NotEqual(t, mk.CipherKey, next.Key)
	require.Equal(t, mk, ck.MessageKeys(), "message keys must be deterministic")
}

func TestRootKey_CreateChainAgrees(t *testing.T) {
	// Arrange.
	root := ratchet.RootKey{Key: bytes.Repeat([]byte{0x42}, 32)}
	alice, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	bob, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	// Act.
	aRoot, aChain, err := root.CreateChain(bob.Pub, alice)
	require.NoError(t, err)
	bRoot, bChain, err := root.CreateChain(alice.Pub, bob)
	require.NoError(t, err)

	// Assert.
	require.Equal(t, aRoot, bRoot)
	require.Equal(t, aChain, bChain)
	require.NotEqual(t, root.Key, aRoot.Key)
}
