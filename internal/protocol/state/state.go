package state

import (
	"bytes"

	"whisper/internal/domain"
	"whisper/internal/protocol/ratchet"
)

const (
	// MaxReceiverChains bounds how many remote ratchet epochs stay decryptable.
	MaxReceiverChains = 5
	// MaxSkippedKeys bounds the skipped message key cache of one state.
	MaxSkippedKeys = 2000
)

// PendingPreKey is what the initiator repeats in every envelope until the
// responder's first reply proves the handshake arrived.
type PendingPreKey struct {
	PreKeyID       domain.Optional[uint32]
	SignedPreKeyID uint32
	BaseKey        domain.X25519Public
}

// ReceiverChain is the receiving chain for one remote ratchet key. A closed
// chain has no key left; only its cached skipped keys can still be used.
type ReceiverChain struct {
	RatchetKey domain.X25519Public
	ChainKey   ratchet.ChainKey
	Closed     bool
}

type senderChain struct {
	ratchetKey domain.KeyPair
	chainKey   ratchet.ChainKey
}

type skippedKey struct {
	ratchetKey domain.X25519Public
	keys       ratchet.MessageKeys
}

// SessionState is the ratchet state of one session with one remote address.
// It is not safe for concurrent use; the session package serializes access.
type SessionState struct {
	version              uint8
	localIdentity        domain.IdentityKey
	remoteIdentity       domain.IdentityKey
	rootKey              ratchet.RootKey
	sender               *senderChain
	receivers            []ReceiverChain // oldest first
	skipped              []skippedKey    // oldest first
	previousCounter      uint32
	localRegistrationID  uint32
	remoteRegistrationID uint32
	pending              domain.Optional[PendingPreKey]
	aliceBaseKey         domain.X25519Public
}

// NewSessionState returns an empty, uninitialized state.
func NewSessionState() *SessionState { return &SessionState{} }

func (s *SessionState) Version() uint8 {
	return s.version
}

func (s *SessionState) SetVersion(v uint8) { s.version = v }

func (s *SessionState) LocalIdentity() domain.IdentityKey { return s.localIdentity }
func (s *SessionState) SetLocalIdentity(k domain.IdentityKey) { s.localIdentity = k }
func (s *SessionState) RemoteIdentity() domain.IdentityKey { return s.remoteIdentity }
func (s *SessionState) SetRemoteIdentity(k domain.IdentityKey) { s.remoteIdentity = k }
func (s *SessionState) RootKey() ratchet.RootKey { return s.rootKey }
func (s *SessionState) SetRootKey(r ratchet.RootKey) { s.rootKey = r }
func (s *SessionState) PreviousCounter() uint32 { return s.previousCounter }
func (s *SessionState) SetPreviousCounter(n uint32) { s.previousCounter = n }
func (s *SessionState) LocalRegistrationID() uint32 { return s.localRegistrationID }
func (s *SessionState) SetLocalRegistrationID(id uint32) { s.localRegistrationID = id }
func (s *SessionState) RemoteRegistrationID() uint32 { return s.remoteRegistrationID }
func (s *SessionState) SetRemoteRegistrationID(id uint32) { s.remoteRegistrationID = id }

// AliceBaseKey is the base key of the handshake that created this state. It
// identifies the session on both sides.
func (s *SessionState) AliceBaseKey() domain.X25519Public { return s.aliceBaseKey }
func (s *SessionState) SetAliceBaseKey(k domain.X25519Public) { s.aliceBaseKey = k }

// HasSenderChain reports whether the state was ever initialized.
func (s *SessionState) HasSenderChain() bool { return s.sender != nil }

// SenderRatchetKey returns our current ratchet public key.
func (s *SessionState) SenderRatchetKey() domain.X25519Public {
	if s.sender == nil {
		return domain.X25519Public{}
	}
	return s.sender.ratchetKey.Pub
}

// SenderRatchetKeyPair returns our current ratchet key pair.
func (s *SessionState) SenderRatchetKeyPair() domain.KeyPair {
	if s.sender == nil {
		return domain.KeyPair{}
	}
	return s.sender.ratchetKey
}

// SenderChainKey returns the chain key of the next message we send.
func (s *SessionState) SenderChainKey() ratchet.ChainKey {
	if s.sender == nil {
		return ratchet.ChainKey{}
	}
	return s.sender.chainKey
}

// SetSenderChain replaces the sending ratchet key and chain.
func (s *SessionState) SetSenderChain(kp domain.KeyPair, ck ratchet.ChainKey) {
	s.sender = &senderChain{ratchetKey: kp, chainKey: ck}
}

// SetSenderChainKey advances the sending chain in place.
func (s *SessionState) SetSenderChainKey(ck ratchet.ChainKey) {
	if s.sender != nil {
		s.sender.chainKey = ck
	}
}

// ReceiverChain looks up the chain for a remote ratchet key.
func (s *SessionState) ReceiverChain(their domain.X25519Public) (ReceiverChain, bool) {
	if i := s.receiverIndex(their); i >= 0 {
		return s.receivers[i], true
	}
	return ReceiverChain{}, false
}

// LatestReceiverChain returns the most recently added chain.
func (s *SessionState) LatestReceiverChain() (ReceiverChain, bool) {
	if len(s.receivers) == 0 {
		return ReceiverChain{}, false
	}
	return s.receivers[len(s.receivers)-1], true
}

// ReceiverChains returns a copy of all chains, oldest first.
func (s *SessionState) ReceiverChains() []ReceiverChain {
	return append([]ReceiverChain(nil), s.receivers...)
}

// AddReceiverChain appends a chain, evicting the oldest beyond
// MaxReceiverChains together with its skipped keys.
func (s *SessionState) AddReceiverChain(their domain.X25519Public, ck ratchet.ChainKey) {
	s.receivers = append(s.receivers, ReceiverChain{RatchetKey: their, ChainKey: ck})
	for len(s.receivers) > MaxReceiverChains {
		s.dropSkipped(s.receivers[0].RatchetKey)
		s.receivers = s.receivers[1:]
	}
}

// SetReceiverChainKey advances the chain for their ratchet key.
func (s *SessionState) SetReceiverChainKey(their domain.X25519Public, ck ratchet.ChainKey) {
	if i := s.receiverIndex(their); i >= 0 {
		s.receivers[i].ChainKey = ck
	}
}

// CloseReceiverChain drops the chain key of an epoch that will receive no
// further messages. The index is kept so later lookups can tell duplicates
// from impossible counters.
func (s *SessionState) CloseReceiverChain(their domain.X25519Public) {
	if i := s.receiverIndex(their); i >= 0 {
		s.receivers[i].ChainKey.Key = nil
		s.receivers[i].Closed = true
	}
}

func (s *SessionState) receiverIndex(their domain.X25519Public) int {
	for i := range s.receivers {
		if s.receivers[i].RatchetKey.Equal(their) {
			return i
		}
	}
	return -1
}

// HasMessageKeys reports whether a skipped key is cached.
func (s *SessionState) HasMessageKeys(their domain.X25519Public, counter uint32) bool {
	return s.skippedIndex(their, counter) >= 0
}

// RemoveMessageKeys takes a skipped key out of the cache.
func (s *SessionState) RemoveMessageKeys(their domain.X25519Public, counter uint32) (ratchet.MessageKeys, bool) {
	i := s.skippedIndex(their, counter)
	if i < 0 {
		return ratchet.MessageKeys{}, false
	}
	mk := s.skipped[i].keys
	s.skipped = append(s.skipped[:i], s.skipped[i+1:]...)
	return mk, true
}

// SetMessageKeys caches a skipped key, evicting the oldest beyond MaxSkippedKeys.
func (s *SessionState) SetMessageKeys(their domain.X25519Public, mk ratchet.MessageKeys) {
	s.skipped = append(s.skipped, skippedKey{ratchetKey: their, keys: mk})
	if over := len(s.skipped) - MaxSkippedKeys; over > 0 {
		s.skipped = s.skipped[over:]
	}
}

// SkippedKeyCount returns how many skipped keys are cached, optionally for
// a single ratchet key.
func (s *SessionState) SkippedKeyCount(their ...domain.X25519Public) int {
	if len(their) == 0 {
		return len(s.skipped)
	}
	n := 0
	for _, sk := range s.skipped {
		if sk.ratchetKey.Equal(their[0]) {
			n++
		}
	}
	return n
}

func (s *SessionState) skippedIndex(their domain.X25519Public, counter uint32) int {
	for i := range s.skipped {
		if s.skipped[i].keys.Index == counter && s.skipped[i].ratchetKey.Equal(their) {
			return i
		}
	}
	return -1
}

func (s *SessionState) dropSkipped(their domain.X25519Public) {
	kept := s.skipped[:0]
	for _, sk := range s.skipped {
		if !sk.ratchetKey.Equal(their) {
			kept = append(kept, sk)
		}
	}
	s.skipped = kept
}

// PendingPreKey returns the unacknowledged handshake, if any.
func (s *SessionState) PendingPreKey() (PendingPreKey, bool) { return s.pending.Get() }

func (s *SessionState) SetPendingPreKey(p PendingPreKey) { s.pending = domain.Some(p) }

func (s *SessionState) ClearPendingPreKey() { s.pending = domain.None[PendingPreKey]() }

// Clone returns a deep copy that shares no mutable memory with s.
func (s *SessionState) Clone() *SessionState {
	c := *s
	c.rootKey = ratchet.RootKey{Key: bytes.Clone(s.rootKey.Key)}
	if s.sender != nil {
		c.sender = &senderChain{
			ratchetKey: s.sender.ratchetKey,
			chainKey:   cloneChainKey(s.sender.chainKey),
		}
	}
	c.receivers = make([]ReceiverChain, len(s.receivers))
	for i, rc := range s.receivers {
		rc.ChainKey = cloneChainKey(rc.ChainKey)
		c.receivers[i] = rc
	}
	c.skipped = make([]skippedKey, len(s.skipped))
	for i, sk := range s.skipped {
		c.skipped[i] = skippedKey{ratchetKey: sk.ratchetKey, keys: ratchet.MessageKeys{
			CipherKey: bytes.Clone(sk.keys.CipherKey),
			MACKey:    bytes.Clone(sk.keys.MACKey),
			IV:        bytes.Clone(sk.keys.IV),
			Index:     sk.keys.Index,
		}}
	}
	return &c
}

func cloneChainKey(ck ratchet.ChainKey) ratchet.ChainKey {
	return ratchet.ChainKey{Key: bytes.Clone(ck.Key), Index: ck.Index}
}
