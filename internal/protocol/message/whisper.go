package message

import (
	"bytes"
	"crypto/hmac"
	"fmt"

	"whisper/internal/crypto"
	"whisper/internal/domain"
)

const (
	whisperRatchetKey      = 1
	whisperCounter         = 2
	whisperPreviousCounter = 3
	whisperCiphertext      = 4
)

// WhisperMessage is an ordinary ratchet envelope:
// version || protobuf body || truncated MAC.
type WhisperMessage struct {
	Version          uint8
	SenderRatchetKey domain.X25519Public
	Counter          uint32
	PreviousCounter  uint32
	Ciphertext       []byte

	serialized []byte
}

// NewWhisperMessage builds and authenticates an envelope. The MAC binds both
// identities so a message cannot be replayed into another pair's session.
func NewWhisperMessage(
	version uint8,
	macKey []byte,
	senderRatchetKey domain.X25519Public,
	counter, previousCounter uint32,
	ciphertext []byte,
	senderIdentity, receiverIdentity domain.IdentityKey,
) *WhisperMessage {
	body := make([]byte, 0, 1+len(ciphertext)+64)
	body = append(body, VersionByte(version))
	body = appendBytesField(body, whisperRatchetKey, senderRatchetKey.Serialize())
	body = appendVarintField(body, whisperCounter, counter)
	body = appendVarintField(body, whisperPreviousCounter, previousCounter)
	body = appendBytesField(body, whisperCiphertext, ciphertext)

	mac := computeMAC(senderIdentity, receiverIdentity, macKey, body)
	return &WhisperMessage{
		Version:          version,
		SenderRatchetKey: senderRatchetKey,
		Counter:          counter,
		PreviousCounter:  previousCounter,
		Ciphertext:       bytes.Clone(ciphertext),
		serialized:       append(body, mac...),
	}
}

// ParseWhisperMessage decodes an envelope. The MAC is not checked here; the
// cipher verifies it once it has derived the message keys.
func ParseWhisperMessage(b []byte) (*WhisperMessage, error) {
	if len(b) < 1+MACLength {
		return nil, fmt.Errorf("%w: whisper message too short (%d bytes)", domain.ErrInvalidMessage, len(b))
	}
	version, err := checkVersion(b[0])
	if err != nil {
		return nil, err
	}

	m := &WhisperMessage{Version: version, serialized: bytes.Clone(b)}
	var haveKey, haveCounter, haveCiphertext bool

	r := fieldReader{b: b[1 : len(b)-MACLength]}
	for {
		f, ok, err := r.next()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
		}
		if !ok {
			break
		}
		switch f.num {
		case whisperRatchetKey:
			raw, err := f.byteSlice()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
			}
			if m.SenderRatchetKey, err = domain.DecodeX25519Public(raw); err != nil {
				return nil, fmt.Errorf("%w: ratchet key: %w", domain.ErrInvalidMessage, err)
			}
			haveKey = true
		case whisperCounter:
			if m.Counter, err = f.uint32(); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
			}
			haveCounter = true
		case whisperPreviousCounter:
			if m.PreviousCounter, err = f.uint32(); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
			}
		case whisperCiphertext:
			raw, err := f.byteSlice()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
			}
			m.Ciphertext = bytes.Clone(raw)
			haveCiphertext = true
		}
	}
	if !haveKey || !haveCounter || !haveCiphertext {
		return nil, fmt.Errorf("%w: incomplete whisper message", domain.ErrInvalidMessage)
	}
	return m, nil
}

// VerifyMAC checks the trailing MAC in constant time.
func (m *WhisperMessage) VerifyMAC(senderIdentity, receiverIdentity domain.IdentityKey, macKey []byte) error {
	body := m.serialized[:len(m.serialized)-MACLength]
	want := computeMAC(senderIdentity, receiverIdentity, macKey, body)
	if !hmac.Equal(want, m.serialized[len(m.serialized)-MACLength:]) {
		return fmt.Errorf("%w: bad mac", domain.ErrInvalidMessage)
	}
	return nil
}

// Serialize returns the exact wire bytes.
func (m *WhisperMessage) Serialize() []byte { return m.serialized }

// Type reports WhisperType.
func (m *WhisperMessage) Type() Type { return WhisperType }

func computeMAC(sender, receiver domain.IdentityKey, macKey, body []byte) []byte {
	full := crypto.HMACSHA256(macKey, sender.Serialize(), receiver.Serialize(), body)
	return full[:MACLength]
}
