// Package session establishes and runs double-ratchet sessions.
//
// A Builder turns a peer's pre-key bundle into an initiator session. A
// Cipher encrypts with the current sending chain and decrypts both
// handshake and ordinary envelopes, falling back to archived states when
// the current one cannot authenticate a message.
//
// Every operation loads a decoded copy of the session record, works on it,
// and writes it back only when the whole operation succeeded. Operations are
// serialized by a Locker: one global mutex by default, or a per-address
// table with WithPerAddressLocking.
package session
