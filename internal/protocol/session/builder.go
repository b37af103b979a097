package session

import (
	"fmt"

	"whisper/internal/crypto"
	"whisper/internal/domain"
	"whisper/internal/protocol/message"
	"whisper/internal/protocol/state"
	"whisper/internal/protocol/x3dh"
)

// Builder establishes sessions with one remote address, either from a
// fetched pre-key bundle or from an incoming handshake envelope.
type Builder struct {
	store  domain.ProtocolStore
	remote domain.Address
	cfg    config
}

// NewBuilder returns a Builder for remote backed by store.
func NewBuilder(store domain.ProtocolStore, remote domain.Address, opts ...Option) (*Builder, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &Builder{store: store, remote: remote, cfg: cfg}, nil
}

// ProcessBundle starts a session as the initiator. The next Encrypt for
// this address produces a PreKeyWhisperMessage.
func (b *Builder) ProcessBundle(bundle domain.PreKeyBundle) error {
	unlock := b.cfg.locker.Lock(b.remote)
	defer unlock()

	if err := b.checkTrust(bundle.IdentityKey, domain.Sending); err != nil {
		return err
	}
	if len(bundle.SignedPreKeySignature) == 0 {
		return fmt.Errorf("%w: bundle has no signed pre-key signature", domain.ErrInvalidKey)
	}
	if !x3dh.VerifySignedPreKey(bundle.IdentityKey, bundle.SignedPreKey, bundle.SignedPreKeySignature) {
		return fmt.Errorf("%w: bad signed pre-key signature", domain.ErrInvalidKey)
	}

	rec, err := loadRecord(b.store, b.remote)
	if err != nil {
		return err
	}
	ours, err := b.store.IdentityKeyPair()
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	regID, err := b.store.LocalRegistrationID()
	if err != nil {
		return fmt.Errorf("load registration id: %w", err)
	}
	base, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}

	var opk domain.Optional[domain.X25519Public]
	if _, ok := bundle.PreKeyID.Get(); ok {
		opk = domain.Some(bundle.PreKey)
	}

	if !rec.IsFresh() {
		rec.ArchiveCurrentState()
	}
	st := rec.SessionState()
	err = initializeAlice(st, x3dh.InitiatorParameters{
		OurIdentity:        ours,
		OurBaseKey:         base,
		TheirIdentity:      bundle.IdentityKey,
		TheirSignedPreKey:  bundle.SignedPreKey,
		TheirOneTimePreKey: opk,
	})
	if err != nil {
		return err
	}
	st.SetPendingPreKey(state.PendingPreKey{
		PreKeyID:       bundle.PreKeyID,
		SignedPreKeyID: bundle.SignedPreKeyID,
		BaseKey:        base.Pub,
	})
	st.SetLocalRegistrationID(regID)
	st.SetRemoteRegistrationID(bundle.RegistrationID)

	if err := b.store.SaveIdentity(b.remote, bundle.IdentityKey); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	if err := storeRecord(b.store, b.remote, rec); err != nil {
		return err
	}
	b.cfg.logger.Debug("session initiated",
		"remote", b.remote.String(),
		"one_time_pre_key", opk.IsSome(),
		"archived", len(rec.PreviousStates()))
	return nil
}

// process builds the responder state for an incoming handshake inside rec.
// It returns the one-time pre-key id the handshake consumed, if any. The
// caller owns locking and persistence; the identity is saved only once the
// inner message decrypts.
func (b *Builder) process(rec *state.SessionRecord, msg *message.PreKeyWhisperMessage) (domain.Optional[uint32], error) {
	none := domain.None[uint32]()
	switch {
	case msg.Version < message.MinVersion:
		return none, fmt.Errorf("%w: handshake version %d", domain.ErrLegacyMessage, msg.Version)
	case msg.Version > message.CurrentVersion:
		return none, fmt.Errorf("%w: unsupported handshake version %d", domain.ErrInvalidMessage, msg.Version)
	}
	if err := b.checkTrust(msg.IdentityKey, domain.Receiving); err != nil {
		return none, err
	}
	if rec.HasSessionState(msg.Version, msg.BaseKey) {
		b.cfg.logger.Debug("handshake already processed", "remote", b.remote.String())
		return none, nil
	}

	spk, ok, err := b.store.LoadSignedPreKey(msg.SignedPreKeyID)
	if err != nil {
		return none, fmt.Errorf("load signed pre-key: %w", err)
	}
	if !ok {
		return none, fmt.Errorf("%w: no signed pre-key %d", domain.ErrInvalidKeyID, msg.SignedPreKeyID)
	}
	var opk domain.Optional[domain.KeyPair]
	if id, ok := msg.PreKeyID.Get(); ok {
		pk, found, err := b.store.LoadPreKey(id)
		if err != nil {
			return none, fmt.Errorf("load pre-key: %w", err)
		}
		if !found {
			return none, fmt.Errorf("%w: no pre-key %d", domain.ErrInvalidKeyID, id)
		}
		opk = domain.Some(pk.KeyPair)
	}
	ours, err := b.store.IdentityKeyPair()
	if err != nil {
		return none, fmt.Errorf("load identity: %w", err)
	}
	regID, err := b.store.LocalRegistrationID()
	if err != nil {
		return none, fmt.Errorf("load registration id: %w", err)
	}

	if !rec.IsFresh() {
		rec.ArchiveCurrentState()
	}
	st := rec.SessionState()
	err = initializeBob(st, x3dh.ResponderParameters{
		OurIdentity:      ours,
		OurSignedPreKey:  spk.KeyPair,
		OurOneTimePreKey: opk,
		TheirIdentity:    msg.IdentityKey,
		TheirBaseKey:     msg.BaseKey,
	})
	if err != nil {
		return none, err
	}
	st.SetLocalRegistrationID(regID)
	st.SetRemoteRegistrationID(msg.RegistrationID)

	b.cfg.logger.Debug("session accepted",
		"remote", b.remote.String(),
		"one_time_pre_key", opk.IsSome(),
		"archived", len(rec.PreviousStates()))
	return msg.PreKeyID, nil
}

func (b *Builder) checkTrust(key domain.IdentityKey, dir domain.Direction) error {
	trusted, err := b.store.IsTrustedIdentity(b.remote, key, dir)
	if err != nil {
		return fmt.Errorf("trust check: %w", err)
	}
	if !trusted {
		return fmt.Errorf("%w: %s for %s", domain.ErrUntrustedIdentity, b.remote, dir)
	}
	return nil
}

// loadRecord returns a decoded copy of the stored record, or a fresh one.
func loadRecord(store domain.SessionStore, addr domain.Address) (*state.SessionRecord, error) {
	rec, ok, err := loadExistingRecord(store, addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return state.NewSessionRecord(), nil
	}
	return rec, nil
}

func loadExistingRecord(store domain.SessionStore, addr domain.Address) (*state.SessionRecord, bool, error) {
	raw, ok, err := store.LoadSession(addr)
	if err != nil {
		return nil, false, fmt.Errorf("load session %s: %w", addr, err)
	}
	if !ok {
		return nil, false, nil
	}
	rec, err := state.UnmarshalRecord(raw)
	if err != nil {
		return nil, false, fmt.Errorf("load session %s: %w", addr, err)
	}
	return rec, true, nil
}

func storeRecord(store domain.SessionStore, addr domain.Address, rec *state.SessionRecord) error {
	raw, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	if err := store.StoreSession(addr, raw); err != nil {
		return fmt.Errorf("store session %s: %w", addr, err)
	}
	return nil
}
