package prekey

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"whisper/internal/crypto"
	"whisper/internal/domain"
	"whisper/internal/protocol/x3dh"
)

// MaxPreKeyID bounds pre-key ids to 24 bits; ids wrap back to 1.
const MaxPreKeyID = 0xFFFFFF

var errBadCount = errors.New("pre-key count must be positive")

// Service manages pre-key pairs and builds what gets published.
type Service struct {
	store    domain.ProtocolStore
	deviceID uint32
	now      func() time.Time
}

// New returns a pre-key service publishing keys for deviceID.
func New(store domain.ProtocolStore, deviceID uint32) *Service {
	return &Service{store: store, deviceID: deviceID, now: time.Now}
}

// GeneratePreKeys creates a signed pre-key and count one-time pre-keys,
// stores the private halves and returns the public set for registration.
func (s *Service) GeneratePreKeys(username domain.Username, count int) (domain.PublishedKeys, error) {
	if count <= 0 {
		return domain.PublishedKeys{}, errBadCount
	}
	id, err := s.store.IdentityKeyPair()
	if err != nil {
		return domain.PublishedKeys{}, err
	}
	regID, err := s.store.LocalRegistrationID()
	if err != nil {
		return domain.PublishedKeys{}, err
	}

	spkID, err := randomID()
	if err != nil {
		return domain.PublishedKeys{}, err
	}
	spk, err := s.signedPreKey(id, spkID)
	if err != nil {
		return domain.PublishedKeys{}, err
	}
	if err := s.store.StoreSignedPreKey(spk); err != nil {
		return domain.PublishedKeys{}, err
	}

	start, err := randomID()
	if err != nil {
		return domain.PublishedKeys{}, err
	}
	oneTime := make([]domain.OneTimePreKeyPublic, 0, count)
	for _, opkID := range PreKeyIDs(start, count) {
		pair, err := crypto.GenerateKeyPair()
		if err != nil {
			return domain.PublishedKeys{}, err
		}
		if err := s.store.StorePreKey(domain.PreKeyRecord{ID: opkID, KeyPair: pair}); err != nil {
			return domain.PublishedKeys{}, err
		}
		oneTime = append(oneTime, domain.OneTimePreKeyPublic{ID: opkID, Pub: pair.Pub})
	}

	return domain.PublishedKeys{
		Username:              username,
		RegistrationID:        regID,
		DeviceID:              s.deviceID,
		IdentityKey:           id.Public(),
		SignedPreKeyID:        spk.ID,
		SignedPreKey:          spk.KeyPair.Pub,
		SignedPreKeySignature: spk.Signature,
		OneTimePreKeys:        oneTime,
	}, nil
}

func (s *Service) signedPreKey(id domain.Identity, spkID uint32) (domain.SignedPreKeyRecord, error) {
	pair, err := crypto.GenerateKeyPair()
	if err != nil {
		return domain.SignedPreKeyRecord{}, err
	}
	return domain.SignedPreKeyRecord{
		ID:        spkID,
		KeyPair:   pair,
		Signature: x3dh.SignSignedPreKey(id, pair.Pub),
		Timestamp: s.now().UnixMilli(),
	}, nil
}

// PreKeyIDs returns count consecutive ids starting at start, wrapping
// within 1..MaxPreKeyID-1.
func PreKeyIDs(start uint32, count int) []uint32 {
	ids := make([]uint32, count)
	for i := range ids {
		ids[i] = (start+uint32(i)-1)%(MaxPreKeyID-1) + 1
	}
	return ids
}

// randomID draws from 1..MaxPreKeyID-1.
func randomID() (uint32, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(MaxPreKeyID-1))
	if err != nil {
		return 0, err
	}
	return uint32(n.Int64()) + 1, nil
}

// Compile-time assertion that Service implements domain.PreKeyService.
var _ domain.PreKeyService = (*Service)(nil)
