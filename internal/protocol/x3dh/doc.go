// Package x3dh derives the initial ratchet secrets from pre-key material.
//
// The initiator combines its identity and a fresh base key with the
// responder's identity, signed pre-key and optional one-time pre-key. The
// responder recomputes the same four (or three) Diffie–Hellman outputs from
// its private halves, so both sides arrive at the same root and chain key.
package x3dh
