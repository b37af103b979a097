// Package message sends and receives encrypted messages.
//
// Encryption and decryption run through the session cipher; envelopes are
// exchanged with the relay and acknowledged once handled.
package message
