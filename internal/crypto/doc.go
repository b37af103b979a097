// Package crypto exposes the minimal primitives used by whisper.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519,
//     GenerateKeyPair, DH)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519) and identity generation (GenerateIdentity)
//   - AES-256-CBC with PKCS#7 padding and HMAC-SHA256 for message bodies
//     (EncryptCBC, DecryptCBC, HMACSHA256)
//   - Short public-key fingerprints for display/logging (Fingerprint,
//     IdentityFingerprint)
//
// # Notes
//
// Key functions return fixed-size array types defined in internal/domain to
// avoid accidental reallocations. Callers should treat returned secrets as
// sensitive and wipe them with internal/util/memzero when practical.
package crypto
