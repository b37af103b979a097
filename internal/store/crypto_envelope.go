package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"whisper/internal/util/memzero"
)

// keystoreFormatVersion is the newest envelope format this package reads.
const keystoreFormatVersion = 1

// ErrWrongPassphrase means the passphrase is wrong or the envelope was modified.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted identity")

// scryptParams are the cost parameters recorded in every envelope.
type scryptParams struct {
	N, R, P int
}

func defaultScryptParams() scryptParams { return scryptParams{N: 1 << 15, R: 8, P: 1} }

// envelope is the stored JSON holding the ciphertext and KDF parameters.
type envelope struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// sealLocalIdentity encrypts the identity under a passphrase-derived key.
func sealLocalIdentity(passphrase string, li localIdentity, params scryptParams) ([]byte, error) {
	raw, err := json.Marshal(li)
	if err != nil {
		return nil, err
	}
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	aead, err := envelopeAEAD(passphrase, salt[:], params)
	if err != nil {
		return nil, err
	}
	// The key is unique per salt, so a zero nonce never repeats under one key.
	var nonce [chacha20poly1305.NonceSize]byte
	ct := aead.Seal(nil, nonce[:], raw, salt[:])
	memzero.Zero(raw)

	return json.Marshal(envelope{
		V:      keystoreFormatVersion,
		Salt:   salt[:],
		N:      params.N,
		R:      params.R,
		P:      params.P,
		Cipher: ct,
	})
}

// openLocalIdentity reverses sealLocalIdentity.
func openLocalIdentity(passphrase string, b []byte) (localIdentity, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return localIdentity{}, fmt.Errorf("decode identity envelope: %w", err)
	}
	if env.V > keystoreFormatVersion {
		return localIdentity{}, fmt.Errorf("unsupported keystore version %d", env.V)
	}
	aead, err := envelopeAEAD(passphrase, env.Salt, scryptParams{N: env.N, R: env.R, P: env.P})
	if err != nil {
		return localIdentity{}, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], env.Cipher, env.Salt)
	if err != nil {
		return localIdentity{}, ErrWrongPassphrase
	}
	defer memzero.Zero(pt)
	var li localIdentity
	if err := json.Unmarshal(pt, &li); err != nil {
		return localIdentity{}, fmt.Errorf("decode identity: %w", err)
	}
	return li, nil
}

func envelopeAEAD(passphrase string, salt []byte, p scryptParams) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, p.N, p.R, p.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer memzero.Zero(key)
	return chacha20poly1305.New(key)
}
