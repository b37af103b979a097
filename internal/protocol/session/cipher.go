package session

import (
	"errors"
	"fmt"

	"whisper/internal/crypto"
	"whisper/internal/domain"
	"whisper/internal/protocol/message"
	"whisper/internal/protocol/ratchet"
	"whisper/internal/protocol/state"
	"whisper/internal/util/memzero"
)

// DecryptionCallback sees the plaintext before the updated session is
// stored. Returning an error aborts the decrypt and keeps the old session.
type DecryptionCallback func(plaintext []byte) error

// Cipher encrypts and decrypts messages for one remote address.
type Cipher struct {
	store   domain.ProtocolStore
	remote  domain.Address
	builder *Builder
	cfg     config
}

// NewCipher returns a Cipher for remote backed by store.
func NewCipher(store domain.ProtocolStore, remote domain.Address, opts ...Option) (*Cipher, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &Cipher{
		store:   store,
		remote:  remote,
		builder: &Builder{store: store, remote: remote, cfg: cfg},
		cfg:     cfg,
	}, nil
}

// Encrypt seals plaintext with the next sending key. Until the peer has
// answered, the result is a PreKeyWhisperMessage carrying the handshake.
func (c *Cipher) Encrypt(plaintext []byte) (message.Ciphertext, error) {
	unlock := c.cfg.locker.Lock(c.remote)
	defer unlock()

	rec, ok, err := loadExistingRecord(c.store, c.remote)
	if err != nil {
		return nil, err
	}
	if !ok || !rec.SessionState().HasSenderChain() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoSession, c.remote)
	}

	st := rec.SessionState()
	chain := st.SenderChainKey()
	mk := chain.MessageKeys()
	body, err := crypto.EncryptCBC(mk.CipherKey, mk.IV, plaintext)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	wm := message.NewWhisperMessage(
		st.Version(), mk.MACKey, st.SenderRatchetKey(),
		chain.Index, st.PreviousCounter(), body,
		st.LocalIdentity(), st.RemoteIdentity(),
	)
	memzero.ZeroAll(mk.CipherKey, mk.MACKey, mk.IV)

	var out message.Ciphertext = wm
	if p, ok := st.PendingPreKey(); ok {
		out = message.NewPreKeyWhisperMessage(
			st.Version(), st.LocalRegistrationID(),
			p.PreKeyID, p.SignedPreKeyID, p.BaseKey,
			st.LocalIdentity(), wm,
		)
	}
	st.SetSenderChainKey(chain.Next())

	remote := st.RemoteIdentity()
	if err := c.builder.checkTrust(remote, domain.Sending); err != nil {
		return nil, err
	}
	if err := storeRecord(c.store, c.remote, rec); err != nil {
		return nil, err
	}
	if err := c.store.SaveIdentity(c.remote, remote); err != nil {
		return nil, fmt.Errorf("save identity: %w", err)
	}
	return out, nil
}

// Decrypt opens an ordinary ratchet envelope. cb may be nil.
func (c *Cipher) Decrypt(msg *message.WhisperMessage, cb DecryptionCallback) ([]byte, error) {
	unlock := c.cfg.locker.Lock(c.remote)
	defer unlock()

	rec, ok, err := loadExistingRecord(c.store, c.remote)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoSession, c.remote)
	}
	pt, err := c.decryptRecord(rec, msg)
	if err != nil {
		return nil, err
	}
	if err := c.commit(rec, pt, cb, domain.None[uint32]()); err != nil {
		return nil, err
	}
	return pt, nil
}

// DecryptPreKey processes a handshake envelope, building the session if
// needed, then opens the message it carries. cb may be nil.
func (c *Cipher) DecryptPreKey(msg *message.PreKeyWhisperMessage, cb DecryptionCallback) ([]byte, error) {
	unlock := c.cfg.locker.Lock(c.remote)
	defer unlock()

	rec, err := loadRecord(c.store, c.remote)
	if err != nil {
		return nil, err
	}
	preKeyID, err := c.builder.process(rec, msg)
	if err != nil {
		return nil, err
	}
	pt, err := c.decryptRecord(rec, msg.Message)
	if err != nil {
		return nil, err
	}
	if err := c.commit(rec, pt, cb, preKeyID); err != nil {
		return nil, err
	}
	return pt, nil
}

// RemoteRegistrationID returns the peer's registration id from the current state.
func (c *Cipher) RemoteRegistrationID() (uint32, error) {
	st, err := c.currentState()
	if err != nil {
		return 0, err
	}
	return st.RemoteRegistrationID(), nil
}

// SessionVersion returns the protocol version of the current state.
func (c *Cipher) SessionVersion() (uint8, error) {
	st, err := c.currentState()
	if err != nil {
		return 0, err
	}
	return st.Version(), nil
}

func (c *Cipher) currentState() (*state.SessionState, error) {
	unlock := c.cfg.locker.Lock(c.remote)
	defer unlock()

	rec, ok, err := loadExistingRecord(c.store, c.remote)
	if err != nil {
		return nil, err
	}
	if !ok || !rec.SessionState().HasSenderChain() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoSession, c.remote)
	}
	return rec.SessionState(), nil
}

// commit runs the receive-side trust check and the callback, then stores
// the record, saves the identity and consumes the one-time pre-key. The
// record goes first so a failed write leaves the pre-key for redelivery.
func (c *Cipher) commit(rec *state.SessionRecord, pt []byte, cb DecryptionCallback, preKeyID domain.Optional[uint32]) error {
	remote := rec.SessionState().RemoteIdentity()
	if err := c.builder.checkTrust(remote, domain.Receiving); err != nil {
		return err
	}
	if cb != nil {
		if err := cb(pt); err != nil {
			return err
		}
	}
	if err := storeRecord(c.store, c.remote, rec); err != nil {
		return err
	}
	if err := c.store.SaveIdentity(c.remote, remote); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	if id, ok := preKeyID.Get(); ok {
		if err := c.store.RemovePreKey(id); err != nil {
			return fmt.Errorf("remove pre-key %d: %w", id, err)
		}
	}
	return nil
}

// decryptRecord tries the current state, then archived states most recent
// first. Every attempt runs on a clone; only the winner is kept.
func (c *Cipher) decryptRecord(rec *state.SessionRecord, msg *message.WhisperMessage) ([]byte, error) {
	cur := rec.SessionState().Clone()
	pt, err := c.decryptState(cur, msg)
	if err == nil {
		rec.SetState(cur)
		return pt, nil
	}
	if !errors.Is(err, domain.ErrInvalidMessage) {
		return nil, err
	}

	errs := []error{err}
	for i, prev := range rec.PreviousStates() {
		st := prev.Clone()
		pt, err := c.decryptState(st, msg)
		if err == nil {
			rec.PromotePreviousState(i, st)
			c.cfg.logger.Debug("promoted archived state", "remote", c.remote.String(), "index", i)
			return pt, nil
		}
		if errors.Is(err, domain.ErrDuplicateMessage) {
			return nil, err
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: no valid session state: %w", domain.ErrInvalidMessage, errors.Join(errs...))
}

func (c *Cipher) decryptState(st *state.SessionState, msg *message.WhisperMessage) ([]byte, error) {
	if !st.HasSenderChain() {
		return nil, fmt.Errorf("%w: uninitialized session state", domain.ErrInvalidMessage)
	}
	if msg.Version != st.Version() {
		return nil, fmt.Errorf("%w: message version %d, session version %d", domain.ErrInvalidMessage, msg.Version, st.Version())
	}

	their := msg.SenderRatchetKey
	chain, err := c.receiverChain(st, their, msg.PreviousCounter)
	if err != nil {
		return nil, err
	}
	mk, err := c.messageKeys(st, their, chain, msg.Counter)
	if err != nil {
		return nil, err
	}
	if err := msg.VerifyMAC(st.RemoteIdentity(), st.LocalIdentity(), mk.MACKey); err != nil {
		return nil, err
	}
	pt, err := crypto.DecryptCBC(mk.CipherKey, mk.IV, msg.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}
	st.ClearPendingPreKey()
	return pt, nil
}

// receiverChain returns the chain for their ratchet key, performing a DH
// ratchet step when the key is new. The epoch being replaced is closed
// after caching the keys of the messages the peer says it sent there.
func (c *Cipher) receiverChain(st *state.SessionState, their domain.X25519Public, previousCounter uint32) (state.ReceiverChain, error) {
	if rc, ok := st.ReceiverChain(their); ok {
		return rc, nil
	}

	if latest, ok := st.LatestReceiverChain(); ok && !latest.Closed {
		c.closeChain(st, latest, previousCounter)
	}

	recvRoot, recvChain, err := st.RootKey().CreateChain(their, st.SenderRatchetKeyPair())
	if err != nil {
		return state.ReceiverChain{}, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}
	next, err := crypto.GenerateKeyPair()
	if err != nil {
		return state.ReceiverChain{}, err
	}
	sendRoot, sendChain, err := recvRoot.CreateChain(their, next)
	if err != nil {
		return state.ReceiverChain{}, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}

	st.SetRootKey(sendRoot)
	st.AddReceiverChain(their, recvChain)
	st.SetPreviousCounter(st.SenderChainKey().Index)
	st.SetSenderChain(next, sendChain)

	c.cfg.logger.Debug("ratchet step", "remote", c.remote.String(), "previous_counter", previousCounter)
	return state.ReceiverChain{RatchetKey: their, ChainKey: recvChain}, nil
}

// closeChain caches the keys still owed on rc, bounded by the future
// window, and drops its chain key.
func (c *Cipher) closeChain(st *state.SessionState, rc state.ReceiverChain, previousCounter uint32) {
	ck := rc.ChainKey
	limit := previousCounter
	if limit > ck.Index && limit-ck.Index > c.cfg.maxFuture {
		limit = ck.Index + c.cfg.maxFuture
	}
	for ck.Index < limit {
		st.SetMessageKeys(rc.RatchetKey, ck.MessageKeys())
		ck = ck.Next()
	}
	st.SetReceiverChainKey(rc.RatchetKey, ck)
	st.CloseReceiverChain(rc.RatchetKey)
}

func (c *Cipher) messageKeys(st *state.SessionState, their domain.X25519Public, rc state.ReceiverChain, counter uint32) (ratchet.MessageKeys, error) {
	ck := rc.ChainKey
	if counter < ck.Index {
		if mk, ok := st.RemoveMessageKeys(their, counter); ok {
			return mk, nil
		}
		c.cfg.logger.Debug("duplicate message", "remote", c.remote.String(), "counter", counter)
		return ratchet.MessageKeys{}, fmt.Errorf("%w: counter %d, chain at %d", domain.ErrDuplicateMessage, counter, ck.Index)
	}
	if rc.Closed {
		return ratchet.MessageKeys{}, fmt.Errorf("%w: counter %d beyond closed chain", domain.ErrInvalidMessage, counter)
	}
	if counter-ck.Index > c.cfg.maxFuture {
		return ratchet.MessageKeys{}, fmt.Errorf("%w: counter %d too far ahead of %d", domain.ErrInvalidMessage, counter, ck.Index)
	}

	for ck.Index < counter {
		st.SetMessageKeys(their, ck.MessageKeys())
		ck = ck.Next()
	}
	st.SetReceiverChainKey(their, ck.Next())
	return ck.MessageKeys(), nil
}
