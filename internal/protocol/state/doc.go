// Package state holds the per-peer ratchet state and the record that
// archives superseded states.
//
// A SessionState carries the root key, one sending chain, up to
// MaxReceiverChains receiving chains and a bounded cache of skipped message
// keys. A SessionRecord keeps the current state plus up to MaxPreviousStates
// older ones, most recent first. Records persist as deterministic CBOR.
package state
