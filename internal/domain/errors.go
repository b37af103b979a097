package domain

import "errors"

// Protocol failure kinds. Callers match them with errors.Is; every returned
// error wraps exactly one of these with context.
var (
	// ErrInvalidKey marks malformed key material or a bad pre-key signature.
	ErrInvalidKey = errors.New("invalid key")
	// ErrInvalidKeyID marks a reference to a pre-key that is not stored locally.
	ErrInvalidKeyID = errors.New("invalid key id")
	// ErrInvalidMessage marks a malformed envelope, bad version, MAC failure
	// or a counter too far ahead.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrLegacyMessage marks an envelope older than the supported version.
	ErrLegacyMessage = errors.New("legacy message")
	// ErrDuplicateMessage marks a counter that was already consumed.
	ErrDuplicateMessage = errors.New("duplicate message")
	// ErrUntrustedIdentity marks an identity key the trust store refused.
	ErrUntrustedIdentity = errors.New("untrusted identity")
	// ErrNoSession marks a non-handshake operation on an address without a session.
	ErrNoSession = errors.New("no session")
)
