package state

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"whisper/internal/domain"
	"whisper/internal/protocol/ratchet"
)

// cborRecord and friends are the persisted form of a record. Keys are kept
// as raw bytes so the in-memory types can change without breaking storage.
type cborRecord struct {
	Current  *cborState
	Previous []*cborState
}

type cborChain struct {
	RatchetPub  []byte
	RatchetPriv []byte `cbor:",omitempty"`
	ChainKey    []byte
	Index       uint32
	Closed      bool `cbor:",omitempty"`
}

type cborMessageKeys struct {
	RatchetPub []byte
	CipherKey  []byte
	MACKey     []byte
	IV         []byte
	Index      uint32
}

type cborPending struct {
	HasPreKeyID    bool
	PreKeyID       uint32
	SignedPreKeyID uint32
	BaseKey        []byte
}

type cborState struct {
	Version              uint8
	LocalIdentity        []byte `cbor:",omitempty"`
	RemoteIdentity       []byte `cbor:",omitempty"`
	RootKey              []byte
	Sender               *cborChain
	Receivers            []*cborChain
	Skipped              []*cborMessageKeys
	PreviousCounter      uint32
	LocalRegistrationID  uint32
	RemoteRegistrationID uint32
	Pending              *cborPending
	AliceBaseKey         []byte
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// MarshalBinary encodes the record. Freshness is not persisted: a record
// read back from storage is never fresh.
func (r *SessionRecord) MarshalBinary() ([]byte, error) {
	tmp := cborRecord{Current: toCBOR(r.current)}
	for _, s := range r.previous {
		tmp.Previous = append(tmp.Previous, toCBOR(s))
	}
	b, err := encMode.Marshal(tmp)
	if err != nil {
		return nil, fmt.Errorf("encode session record: %w", err)
	}
	return b, nil
}

// UnmarshalRecord decodes a record written by MarshalBinary.
func UnmarshalRecord(data []byte) (*SessionRecord, error) {
	var tmp cborRecord
	if err := cbor.Unmarshal(data, &tmp); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	if tmp.Current == nil {
		return nil, fmt.Errorf("decode session record: missing current state")
	}
	cur, err := fromCBOR(tmp.Current)
	if err != nil {
		return nil, err
	}
	r := &SessionRecord{current: cur}
	for _, p := range tmp.Previous {
		st, err := fromCBOR(p)
		if err != nil {
			return nil, err
		}
		r.previous = append(r.previous, st)
	}
	return r, nil
}

func toCBOR(s *SessionState) *cborState {
	out := &cborState{
		Version:              s.version,
		RootKey:              s.rootKey.Key,
		PreviousCounter:      s.previousCounter,
		LocalRegistrationID:  s.localRegistrationID,
		RemoteRegistrationID: s.remoteRegistrationID,
	}
	if !s.localIdentity.IsZero() {
		out.LocalIdentity = s.localIdentity.Serialize()
	}
	if !s.remoteIdentity.IsZero() {
		out.RemoteIdentity = s.remoteIdentity.Serialize()
	}
	if !s.aliceBaseKey.IsZero() {
		out.AliceBaseKey = s.aliceBaseKey.Slice()
	}
	if s.sender != nil {
		out.Sender = &cborChain{
			RatchetPub:  s.sender.ratchetKey.Pub.Slice(),
			RatchetPriv: s.sender.ratchetKey.Priv.Slice(),
			ChainKey:    s.sender.chainKey.Key,
			Index:       s.sender.chainKey.Index,
		}
	}
	for _, rc := range s.receivers {
		out.Receivers = append(out.Receivers, &cborChain{
			RatchetPub: rc.RatchetKey.Slice(),
			ChainKey:   rc.ChainKey.Key,
			Index:      rc.ChainKey.Index,
			Closed:     rc.Closed,
		})
	}
	for _, sk := range s.skipped {
		out.Skipped = append(out.Skipped, &cborMessageKeys{
			RatchetPub: sk.ratchetKey.Slice(),
			CipherKey:  sk.keys.CipherKey,
			MACKey:     sk.keys.MACKey,
			IV:         sk.keys.IV,
			Index:      sk.keys.Index,
		})
	}
	if p, ok := s.pending.Get(); ok {
		id, has := p.PreKeyID.Get()
		out.Pending = &cborPending{
			HasPreKeyID:    has,
			PreKeyID:       id,
			SignedPreKeyID: p.SignedPreKeyID,
			BaseKey:        p.BaseKey.Slice(),
		}
	}
	return out
}

func fromCBOR(c *cborState) (*SessionState, error) {
	s := &SessionState{
		version:              c.Version,
		rootKey:              ratchet.RootKey{Key: c.RootKey},
		previousCounter:      c.PreviousCounter,
		localRegistrationID:  c.LocalRegistrationID,
		remoteRegistrationID: c.RemoteRegistrationID,
	}
	var err error
	if len(c.LocalIdentity) > 0 {
		if s.localIdentity, err = domain.DecodeIdentityKey(c.LocalIdentity); err != nil {
			return nil, fmt.Errorf("decode session state: local identity: %w", err)
		}
	}
	if len(c.RemoteIdentity) > 0 {
		if s.remoteIdentity, err = domain.DecodeIdentityKey(c.RemoteIdentity); err != nil {
			return nil, fmt.Errorf("decode session state: remote identity: %w", err)
		}
	}
	if len(c.AliceBaseKey) > 0 {
		if s.aliceBaseKey, err = publicKey(c.AliceBaseKey); err != nil {
			return nil, fmt.Errorf("decode session state: base key: %w", err)
		}
	}
	if c.Sender != nil {
		pub, err := publicKey(c.Sender.RatchetPub)
		if err != nil {
			return nil, fmt.Errorf("decode session state: sender ratchet: %w", err)
		}
		if len(c.Sender.RatchetPriv) != 32 {
			return nil, fmt.Errorf("decode session state: sender ratchet private key length %d", len(c.Sender.RatchetPriv))
		}
		s.sender = &senderChain{
			ratchetKey: domain.KeyPair{Priv: domain.MustX25519Private(c.Sender.RatchetPriv), Pub: pub},
			chainKey:   ratchet.ChainKey{Key: c.Sender.ChainKey, Index: c.Sender.Index},
		}
	}
	for _, rc := range c.Receivers {
		pub, err := publicKey(rc.RatchetPub)
		if err != nil {
			return nil, fmt.Errorf("decode session state: receiver ratchet: %w", err)
		}
		s.receivers = append(s.receivers, ReceiverChain{
			RatchetKey: pub,
			ChainKey:   ratchet.ChainKey{Key: rc.ChainKey, Index: rc.Index},
			Closed:     rc.Closed,
		})
	}
	for _, sk := range c.Skipped {
		pub, err := publicKey(sk.RatchetPub)
		if err != nil {
			return nil, fmt.Errorf("decode session state: skipped key: %w", err)
		}
		s.skipped = append(s.skipped, skippedKey{ratchetKey: pub, keys: ratchet.MessageKeys{
			CipherKey: sk.CipherKey,
			MACKey:    sk.MACKey,
			IV:        sk.IV,
			Index:     sk.Index,
		}})
	}
	if c.Pending != nil {
		base, err := publicKey(c.Pending.BaseKey)
		if err != nil {
			return nil, fmt.Errorf("decode session state: pending base key: %w", err)
		}
		p := PendingPreKey{SignedPreKeyID: c.Pending.SignedPreKeyID, BaseKey: base}
		if c.Pending.HasPreKeyID {
			p.PreKeyID = domain.Some(c.Pending.PreKeyID)
		}
		s.pending = domain.Some(p)
	}
	return s, nil
}

func publicKey(b []byte) (domain.X25519Public, error) {
	if len(b) != 32 {
		return domain.X25519Public{}, fmt.Errorf("%w: length %d", domain.ErrInvalidKey, len(b))
	}
	return domain.MustX25519Public(b), nil
}
