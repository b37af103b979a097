package message

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"whisper/internal/domain"
)

const (
	// CurrentVersion is the only protocol version this package speaks.
	CurrentVersion uint8 = 3
	// MinVersion is the oldest version that is not reported as legacy.
	MinVersion uint8 = 3

	// MACLength is the size of the truncated MAC trailing a WhisperMessage.
	MACLength = 8
)

// Type distinguishes ordinary ratchet envelopes from handshake envelopes.
type Type int

const (
	WhisperType Type = 2
	PreKeyType  Type = 3
)

// Ciphertext is what the session cipher returns from Encrypt.
type Ciphertext interface {
	Serialize() []byte
	Type() Type
}

// VersionByte packs the message version and our current version.
func VersionByte(v uint8) byte {
	return v<<4 | CurrentVersion
}

// checkVersion validates the high nibble of a version byte.
func checkVersion(b byte) (uint8, error) {
	v := b >> 4
	switch {
	case v < MinVersion:
		return 0, fmt.Errorf("%w: version %d", domain.ErrLegacyMessage, v)
	case v > CurrentVersion:
		return 0, fmt.Errorf("%w: unknown version %d", domain.ErrInvalidMessage, v)
	}
	return v, nil
}

// IsLegacy reports whether b carries a version older than MinVersion.
func IsLegacy(b []byte) bool {
	return len(b) > 0 && b[0]>>4 < MinVersion
}

// fieldReader walks a protobuf message one field at a time.
type fieldReader struct {
	b []byte
}

type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func (r *fieldReader) next() (field, bool, error) {
	if len(r.b) == 0 {
		return field{}, false, nil
	}
	num, typ, n := protowire.ConsumeTag(r.b)
	if n < 0 {
		return field{}, false, protowire.ParseError(n)
	}
	r.b = r.b[n:]

	f := field{num: num, typ: typ}
	switch typ {
	case protowire.VarintType:
		f.varint, n = protowire.ConsumeVarint(r.b)
	case protowire.BytesType:
		f.bytes, n = protowire.ConsumeBytes(r.b)
	default:
		n = protowire.ConsumeFieldValue(num, typ, r.b)
	}
	if n < 0 {
		return field{}, false, protowire.ParseError(n)
	}
	r.b = r.b[n:]
	return f, true, nil
}

func (f field) uint32() (uint32, error) {
	if f.typ != protowire.VarintType {
		return 0, fmt.Errorf("field %d: want varint, got wire type %d", f.num, f.typ)
	}
	if f.varint > 0xffffffff {
		return 0, fmt.Errorf("field %d: value %d overflows uint32", f.num, f.varint)
	}
	return uint32(f.varint), nil
}

func (f field) byteSlice() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, fmt.Errorf("field %d: want bytes, got wire type %d", f.num, f.typ)
	}
	return f.bytes, nil
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}
