package message

import (
	"bytes"
	"fmt"

	"whisper/internal/domain"
)

const (
	fieldPreKeyID       = 1
	fieldBaseKey        = 2
	fieldIdentityKey    = 3
	fieldMessage        = 4
	fieldRegistrationID = 5
	fieldSignedPreKeyID = 6
)

// PreKeyWhisperMessage is the handshake envelope: it carries everything the
// responder needs to build a session plus the first WhisperMessage.
type PreKeyWhisperMessage struct {
	Version        uint8
	RegistrationID uint32
	PreKeyID       domain.Optional[uint32]
	SignedPreKeyID uint32
	BaseKey        domain.X25519Public
	IdentityKey    domain.IdentityKey
	Message        *WhisperMessage

	serialized []byte
}

// NewPreKeyWhisperMessage wraps msg in a handshake envelope.
func NewPreKeyWhisperMessage(
	version uint8,
	registrationID uint32,
	preKeyID domain.Optional[uint32],
	signedPreKeyID uint32,
	baseKey domain.X25519Public,
	identity domain.IdentityKey,
	msg *WhisperMessage,
) *PreKeyWhisperMessage {
	inner := msg.Serialize()
	b := make([]byte, 0, 1+len(inner)+128)
	b = append(b, VersionByte(version))
	if id, ok := preKeyID.Get(); ok {
		b = appendVarintField(b, fieldPreKeyID, id)
	}
	b = appendBytesField(b, fieldBaseKey, baseKey.Serialize())
	b = appendBytesField(b, fieldIdentityKey, identity.Serialize())
	b = appendBytesField(b, fieldMessage, inner)
	b = appendVarintField(b, fieldRegistrationID, registrationID)
	b = appendVarintField(b, fieldSignedPreKeyID, signedPreKeyID)

	return &PreKeyWhisperMessage{
		Version:        version,
		RegistrationID: registrationID,
		PreKeyID:       preKeyID,
		SignedPreKeyID: signedPreKeyID,
		BaseKey:        baseKey,
		IdentityKey:    identity,
		Message:        msg,
		serialized:     b,
	}
}

// ParsePreKeyWhisperMessage decodes a handshake envelope and its inner message.
func ParsePreKeyWhisperMessage(b []byte) (*PreKeyWhisperMessage, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("%w: pre-key message too short (%d bytes)", domain.ErrInvalidMessage, len(b))
	}
	version, err := checkVersion(b[0])
	if err != nil {
		return nil, err
	}

	m := &PreKeyWhisperMessage{Version: version, serialized: bytes.Clone(b)}
	var haveBase, haveIdentity, haveMessage, haveSigned bool

	r := fieldReader{b: b[1:]}
	for {
		f, ok, err := r.next()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
		}
		if !ok {
			break
		}
		switch f.num {
		case fieldPreKeyID:
			id, err := f.uint32()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
			}
			m.PreKeyID = domain.Some(id)
		case fieldBaseKey:
			raw, err := f.byteSlice()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
			}
			if m.BaseKey, err = domain.DecodeX25519Public(raw); err != nil {
				return nil, fmt.Errorf("%w: base key: %w", domain.ErrInvalidMessage, err)
			}
			haveBase = true
		case fieldIdentityKey:
			raw, err := f.byteSlice()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
			}
			if m.IdentityKey, err = domain.DecodeIdentityKey(raw); err != nil {
				return nil, fmt.Errorf("%w: identity key: %w", domain.ErrInvalidMessage, err)
			}
			haveIdentity = true
		case fieldMessage:
			raw, err := f.byteSlice()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
			}
			if m.Message, err = ParseWhisperMessage(raw); err != nil {
				return nil, err
			}
			haveMessage = true
		case fieldRegistrationID:
			if m.RegistrationID, err = f.uint32(); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
			}
		case fieldSignedPreKeyID:
			if m.SignedPreKeyID, err = f.uint32(); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
			}
			haveSigned = true
		}
	}
	if !haveBase || !haveIdentity || !haveMessage || !haveSigned {
		return nil, fmt.Errorf("%w: incomplete pre-key message", domain.ErrInvalidMessage)
	}
	return m, nil
}

// Serialize returns the exact wire bytes.
func (m *PreKeyWhisperMessage) Serialize() []byte { return m.serialized }

// Type reports PreKeyType.
func (m *PreKeyWhisperMessage) Type() Type { return PreKeyType }
