// Package server is the HTTP relay: a store-and-forward service for
// ciphertext envelopes and public pre-key bundles.
//
// HTTP API
//
//	POST /register
//	    Store a device's PublishedKeys. The signed pre-key signature is
//	    checked against the identity key.
//
//	GET /prekey/{user}/{device}
//	    Return a PreKeyBundle, handing out (and removing) at most one
//	    one-time pre-key.
//
//	POST /msg/{user}
//	    Enqueue an Envelope for {user}; the response carries its id. A zero
//	    timestamp is filled with the current Unix time.
//
//	GET /msg/{user}?limit=N
//	    Return up to N queued envelopes, oldest first, without removing them.
//
//	POST /msg/{user}/ack {"ids": [...]}
//	    Drop the listed envelopes.
//
// State lives in a Backend: MemoryBackend for development and tests,
// RedisBackend for a relay that survives restarts.
package server
