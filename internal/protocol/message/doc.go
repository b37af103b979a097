// Package message encodes and decodes the two ratchet envelopes.
//
// Both envelopes start with one version byte (high nibble: message version,
// low nibble: sender's current version) followed by a protobuf body written
// with protowire. A WhisperMessage ends with an 8-byte truncated
// HMAC-SHA256. A PreKeyWhisperMessage embeds a serialized WhisperMessage.
//
// Parsed messages keep their original bytes, so Serialize always returns
// exactly what was received and MAC checks cover unknown fields too.
package message
