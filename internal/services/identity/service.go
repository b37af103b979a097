package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode"

	"whisper/internal/crypto"
	"whisper/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12

	// MaxRegistrationID is the top of the registration id range; ids are
	// drawn from 1..MaxRegistrationID.
	MaxRegistrationID = 16380
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
)

// Store is what the identity service needs from persistence.
type Store interface {
	domain.LocalIdentityStore
	IdentityKeyPair() (domain.Identity, error)
	LocalRegistrationID() (uint32, error)
}

// Service manages identity key creation and access using a backing store.
//
// The identity contains:
//   - X25519 key pair for Diffie-Hellman (X3DH and the ratchet).
//   - Ed25519 key pair for signing the signed pre-key.
//
// A random registration id is generated with it and travels in every
// handshake.
type Service struct {
	store Store
}

// New returns an identity service backed by the given store.
func New(s Store) *Service { return &Service{store: s} }

// GenerateIdentity creates a new identity and registration id, saves them
// sealed with the passphrase, and returns the identity plus its fingerprint.
func (s *Service) GenerateIdentity(passphrase string) (domain.Identity, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}

	id, err := crypto.GenerateIdentity()
	if err != nil {
		return domain.Identity{}, "", err
	}
	regID, err := GenerateRegistrationID()
	if err != nil {
		return domain.Identity{}, "", err
	}
	if err := s.store.SaveLocalIdentity(passphrase, id, regID); err != nil {
		return domain.Identity{}, "", err
	}
	return id, crypto.IdentityFingerprint(id.Public()), nil
}

// FingerprintIdentity returns the fingerprint of the unlocked local identity.
func (s *Service) FingerprintIdentity() (domain.Fingerprint, error) {
	id, err := s.store.IdentityKeyPair()
	if err != nil {
		return "", err
	}
	return crypto.IdentityFingerprint(id.Public()), nil
}

// RegistrationID returns the registration id saved with the identity.
func (s *Service) RegistrationID() (uint32, error) {
	return s.store.LocalRegistrationID()
}

// GenerateRegistrationID draws a uniform id in 1..MaxRegistrationID.
func GenerateRegistrationID() (uint32, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(MaxRegistrationID))
	if err != nil {
		return 0, err
	}
	return uint32(n.Int64()) + 1, nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
