package domain

import (
	"crypto/subtle"
	"fmt"
)

// IdentityKeyLength is the serialized size of an IdentityKey.
const IdentityKeyLength = 1 + 32 + 32

// IdentityKey is the public half of a long-term identity: the X25519 key used
// in key agreement and the Ed25519 key that signs pre-keys.
type IdentityKey struct {
	XPub  X25519Public  `json:"xpub"`
	EdPub Ed25519Public `json:"edpub"`
}

// Serialize returns 0x05 || x25519 || ed25519.
func (k IdentityKey) Serialize() []byte {
	out := make([]byte, 0, IdentityKeyLength)
	out = append(out, DJBType)
	out = append(out, k.XPub[:]...)
	return append(out, k.EdPub[:]...)
}

// Equal compares both halves in constant time.
func (k IdentityKey) Equal(o IdentityKey) bool {
	return subtle.ConstantTimeCompare(k.Serialize(), o.Serialize()) == 1
}

// IsZero reports whether the key was never set.
func (k IdentityKey) IsZero() bool { return k == IdentityKey{} }

// DecodeIdentityKey parses the serialized form produced by Serialize.
func DecodeIdentityKey(b []byte) (IdentityKey, error) {
	var out IdentityKey
	if len(b) != IdentityKeyLength {
		return out, fmt.Errorf("%w: identity key length %d", ErrInvalidKey, len(b))
	}
	if b[0] != DJBType {
		return out, fmt.Errorf("%w: unknown identity key type %#x", ErrInvalidKey, b[0])
	}
	copy(out.XPub[:], b[1:33])
	copy(out.EdPub[:], b[33:])
	return out, nil
}

// Identity holds your long-term X25519 and Ed25519 keys.
type Identity struct {
	XPub   X25519Public   `json:"xpub"`
	XPriv  X25519Private  `json:"xpriv"`
	EdPub  Ed25519Public  `json:"edpub"`
	EdPriv Ed25519Private `json:"edpriv"`
}

// Public returns the shareable half of the identity.
func (id Identity) Public() IdentityKey {
	return IdentityKey{XPub: id.XPub, EdPub: id.EdPub}
}

// DHPair returns the X25519 half as a KeyPair.
func (id Identity) DHPair() KeyPair {
	return KeyPair{Priv: id.XPriv, Pub: id.XPub}
}

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Direction tells the trust store which way a message is travelling.
type Direction int

const (
	Sending Direction = iota + 1
	Receiving
)

func (d Direction) String() string {
	switch d {
	case Sending:
		return "sending"
	case Receiving:
		return "receiving"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}
