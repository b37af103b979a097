// Package store persists the local identity, pre-keys, remote identities and
// session records behind the domain storage interfaces.
//
// Three backends are provided:
//   - FileStore keeps JSON files under the user's home directory and also
//     remembers account profiles for the CLI.
//   - RedisStore keeps the same data in Redis hashes under a namespace.
//   - MemoryStore lives only as long as the process.
//
// The local identity is sealed with a passphrase (scrypt plus
// ChaCha20-Poly1305) in the file and Redis backends; callers Unlock it
// before any protocol operation. Session records are opaque bytes here.
// Remote identities are trusted on first use.
package store
