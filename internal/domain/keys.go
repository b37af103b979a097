package domain

import (
	"crypto/subtle"
	"fmt"
)

// DJBType prefixes every serialized Curve25519 public key on the wire.
const DJBType byte = 0x05

// ------------- X25519 -------------

// X25519Private is a clamped Curve25519 private key.
type X25519Private [32]byte

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

func (k X25519Private) Slice() []byte { return k[:] }
func (k X25519Public) Slice() []byte  { return k[:] }

// Serialize returns the type-prefixed wire form (33 bytes).
func (k X25519Public) Serialize() []byte {
	out := make([]byte, 0, 33)
	out = append(out, DJBType)
	return append(out, k[:]...)
}

// Equal compares two public keys in constant time.
func (k X25519Public) Equal(o X25519Public) bool {
	return subtle.ConstantTimeCompare(k[:], o[:]) == 1
}

// IsZero reports whether the key was never set.
func (k X25519Public) IsZero() bool { return k == X25519Public{} }

// DecodeX25519Public parses the type-prefixed wire form.
func DecodeX25519Public(b []byte) (X25519Public, error) {
	var out X25519Public
	if len(b) != 33 {
		return out, fmt.Errorf("%w: public key length %d", ErrInvalidKey, len(b))
	}
	if b[0] != DJBType {
		return out, fmt.Errorf("%w: unknown key type %#x", ErrInvalidKey, b[0])
	}
	copy(out[:], b[1:])
	return out, nil
}

// KeyPair is an X25519 key pair used for pre-keys, base keys and ratchet keys.
type KeyPair struct {
	Priv X25519Private `json:"priv"`
	Pub  X25519Public  `json:"pub"`
}

// ------------- Ed25519 -------------

type Ed25519Private [64]byte
type Ed25519Public [32]byte

func (k Ed25519Private) Slice() []byte { return k[:] }
func (k Ed25519Public) Slice() []byte  { return k[:] }

// MustX25519Public converts b, panicking on a length mismatch.
func MustX25519Public(b []byte) X25519Public {
	if len(b) != 32 {
		panic(fmt.Errorf("X25519 public: want 32 bytes, got %d", len(b)))
	}
	var out X25519Public
	copy(out[:], b)
	return out
}

// MustX25519Private converts b, panicking on a length mismatch.
func MustX25519Private(b []byte) X25519Private {
	if len(b) != 32 {
		panic(fmt.Errorf("X25519 private: want 32 bytes, got %d", len(b)))
	}
	var out X25519Private
	copy(out[:], b)
	return out
}
