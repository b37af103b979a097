package ratchet

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"whisper/internal/crypto"
	"whisper/internal/domain"
	"whisper/internal/util/memzero"
)

const (
	KeyLength       = 32
	CipherKeyLength = 32
	MACKeyLength    = 32
	IVLength        = 16

	messageKeySeed = 0x01
	chainKeySeed   = 0x02
)

var (
	infoText        = []byte("WhisperText")
	infoRatchet     = []byte("WhisperRatchet")
	infoMessageKeys = []byte("WhisperMessageKeys")

	discontinuity = bytes.Repeat([]byte{0xff}, 32)
)

// RootKey is the 32-byte secret that seeds each new chain.
type RootKey struct {
	Key []byte
}

// ChainKey is one link of a sending or receiving chain.
type ChainKey struct {
	Key   []byte
	Index uint32
}

// MessageKeys encrypt and authenticate exactly one message.
type MessageKeys struct {
	CipherKey []byte
	MACKey    []byte
	IV        []byte
	Index     uint32
}

// DeriveSecrets turns a key-agreement master secret into the first root and
// chain keys.
func DeriveSecrets(masterSecret []byte) (RootKey, ChainKey) {
	okm := expand(masterSecret, nil, infoText, 2*KeyLength)
	return RootKey{Key: okm[:KeyLength]}, ChainKey{Key: okm[KeyLength:], Index: 0}
}

// Discontinuity is the 32 0xFF bytes that prefix the master secret.
func Discontinuity() []byte { return bytes.Clone(discontinuity) }

// CreateChain mixes ECDH(ours, theirs) into the root and returns the next root
// together with a fresh chain key.
func (r RootKey) CreateChain(their domain.X25519Public, ours domain.KeyPair) (RootKey, ChainKey, error) {
	shared, err := crypto.DH(ours.Priv, their)
	if err != nil {
		return RootKey{}, ChainKey{}, fmt.Errorf("ratchet dh: %w", err)
	}
	okm := expand(shared[:], r.Key, infoRatchet, 2*KeyLength)
	memzero.Zero(shared[:])
	return RootKey{Key: okm[:KeyLength]}, ChainKey{Key: okm[KeyLength:], Index: 0}, nil
}

// MessageKeys derives the keys for this index. The chain key is unchanged.
func (c ChainKey) MessageKeys() MessageKeys {
	seed := crypto.HMACSHA256(c.Key, []byte{messageKeySeed})
	okm := expand(seed, nil, infoMessageKeys, CipherKeyLength+MACKeyLength+IVLength)
	memzero.Zero(seed)
	return MessageKeys{
		CipherKey: okm[:CipherKeyLength],
		MACKey:    okm[CipherKeyLength : CipherKeyLength+MACKeyLength],
		IV:        okm[CipherKeyLength+MACKeyLength:],
		Index:     c.Index,
	}
}

// Next returns the following link of the chain.
func (c ChainKey) Next() ChainKey {
	return ChainKey{Key: crypto.HMACSHA256(c.Key, []byte{chainKeySeed}), Index: c.Index + 1}
}

// expand runs HKDF-SHA256. A nil salt means a zero-filled salt. Short output
// means a broken build, so it panics instead of returning an error.
func expand(ikm, salt, info []byte, n int) []byte {
	if salt == nil {
		salt = make([]byte, sha256.Size)
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, info), out); err != nil {
		panic(fmt.Sprintf("ratchet: hkdf expand %d bytes: %v", n, err))
	}
	return out
}
