// Package main runs the whisper relay: it stores published pre-keys and
// queues encrypted envelopes for recipients until they fetch and ack them.
//
// State is held in memory (--backend=memory, lost on exit) or in Redis
// (--backend=redis). The HTTP API is documented in internal/relay/server.
// Every request is access-logged with method, path, remote, status, bytes
// and duration. The default listen address is :8080.
//
// The relay never sees plaintext or private keys; it only stores ciphertext
// and public keys.
package main
