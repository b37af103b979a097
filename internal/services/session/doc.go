// Package session starts sessions from relay-published pre-key bundles and
// resets them.
//
// The handshake itself lives in internal/protocol/session; this package
// fetches the bundle and hands it to the builder.
package session
