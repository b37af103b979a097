// Package prekey generates the signed pre-key and one-time pre-keys a peer
// needs to start a session with us, and assembles the public half for the
// relay.
package prekey
