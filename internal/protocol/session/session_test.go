package session_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"whisper/internal/crypto"
	"whisper/internal/domain"
	"whisper/internal/protocol/message"
	"whisper/internal/protocol/session"
	"whisper/internal/protocol/state"
	"whisper/internal/protocol/x3dh"
	"whisper/internal/store"
)

type party struct {
	addr  domain.Address
	id    domain.Identity
	regID uint32
	store *store.MemoryStore
	spk   domain.SignedPreKeyRecord
	opk   domain.PreKeyRecord
}

func newParty(t *testing.T, name string, regID uint32) *party {
	t.Helper()
	id, err := crypto.GenerateIdentity()
	require.NoError(t, err)
	st := store.NewMemoryStore(id, regID)

	spkPair, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	spk := domain.SignedPreKeyRecord{ID: 7, KeyPair: spkPair, Signature: x3dh.SignSignedPreKey(id, spkPair.Pub)}
	require.NoError(t, st.StoreSignedPreKey(spk))

	opkPair, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	opk := domain.PreKeyRecord{ID: 31, KeyPair: opkPair}
	require.NoError(t, st.StorePreKey(opk))

	return &party{
		addr:  domain.NewAddress(domain.Username(name), domain.DefaultDeviceID),
		id:    id,
		regID: regID,
		store: st,
		spk:   spk,
		opk:   opk,
	}
}

func (p *party) bundle(withOneTime bool) domain.PreKeyBundle {
	b := domain.PreKeyBundle{
		RegistrationID:        p.regID,
		DeviceID:              p.addr.DeviceID,
		SignedPreKeyID:        p.spk.ID,
		SignedPreKey:          p.spk.KeyPair.Pub,
		SignedPreKeySignature: p.spk.Signature,
		IdentityKey:           p.id.Public(),
	}
	if withOneTime {
		b.PreKeyID = domain.Some(p.opk.ID)
		b.PreKey = p.opk.KeyPair.Pub
	}
	return b
}

func (p *party) cipher(t *testing.T, remote *party, opts ...session.Option) *session.Cipher {
	t.Helper()
	c, err := session.NewCipher(p.store, remote.addr, opts...)
	require.NoError(t, err)
	return c
}

func (p *party) startSession(t *testing.T, remote *party, withOneTime bool) {
	t.Helper()
	b, err := session.NewBuilder(p.store, remote.addr)
	require.NoError(t, err)
	require.NoError(t, b.ProcessBundle(remote.bundle(withOneTime)))
}

func (p *party) record(t *testing.T, remote *party) *state.SessionRecord {
	t.Helper()
	raw, ok, err := p.store.LoadSession(remote.addr)
	require.NoError(t, err)
	require.True(t, ok)
	rec, err := state.UnmarshalRecord(raw)
	require.NoError(t, err)
	return rec
}

func decrypt(t *testing.T, c *session.Cipher, ct message.Ciphertext) ([]byte, error) {
	t.Helper()
	if ct.Type() == message.PreKeyType {
		m, err := message.ParsePreKeyWhisperMessage(ct.Serialize())
		require.NoError(t, err)
		return c.DecryptPreKey(m, nil)
	}
	m, err := message.ParseWhisperMessage(ct.Serialize())
	require.NoError(t, err)
	return c.Decrypt(m, nil)
}

func encrypt(t *testing.T, c *session.Cipher, text string) message.Ciphertext {
	t.Helper()
	ct, err := c.Encrypt([]byte(text))
	require.NoError(t, err)
	return ct
}

// establish runs one round trip so both sides hold a confirmed session.
func establish(t *testing.T) (alice, bob *party, toBob, toAlice *session.Cipher) {
	t.Helper()
	alice = newParty(t, "alice", 101)
	bob = newParty(t, "bob", 202)
	alice.startSession(t, bob, true)
	toBob = alice.cipher(t, bob)
	toAlice = bob.cipher(t, alice)

	pt, err := decrypt(t, toAlice, encrypt(t, toBob, "hello"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(pt))
	pt, err = decrypt(t, toBob, encrypt(t, toAlice, "hi"))
	require.NoError(t, err)
	require.Equal(t, "hi", string(pt))
	return alice, bob, toBob, toAlice
}

func TestSession_BasicExchange(t *testing.T) {
	for _, withOneTime := range []bool{true, false} {
		t.Run(fmt.Sprintf("one_time_pre_key=%v", withOneTime), func(t *testing.T) {
			// Arrange.
			alice := newParty(t, "alice", 101)
			bob := newParty(t, "bob", 202)
			alice.startSession(t, bob, withOneTime)
			toBob := alice.cipher(t, bob)
			toAlice := bob.cipher(t, alice)

			// Act.
			first := encrypt(t, toBob, "hello bob")
			got, err := decrypt(t, toAlice, first)
			require.NoError(t, err)
			reply := encrypt(t, toAlice, "hello alice")
			gotReply, err := decrypt(t, toBob, reply)
			require.NoError(t, err)

			// Assert.
			require.Equal(t, message.PreKeyType, first.Type())
			require.Equal(t, "hello bob", string(got))
			require.Equal(t, message.WhisperType, reply.Type())
			require.Equal(t, "hello alice", string(gotReply))
			require.Equal(t, message.WhisperType, encrypt(t, toBob, "again").Type(), "reply acknowledges the handshake")

			has, err := bob.store.ContainsPreKey(bob.opk.ID)
			require.NoError(t, err)
			require.Equal(t, !withOneTime, has, "a used one-time pre-key is removed")

			regID, err := toAlice.RemoteRegistrationID()
			require.NoError(t, err)
			require.EqualValues(t, 101, regID)
			regID, err = toBob.RemoteRegistrationID()
			require.NoError(t, err)
			require.EqualValues(t, 202, regID)
			v, err := toBob.SessionVersion()
			require.NoError(t, err)
			require.Equal(t, message.CurrentVersion, v)

			saved, ok, err := bob.store.Identity(alice.addr)
			require.NoError(t, err)
			require.True(t, ok)
			require.True(t, saved.Equal(alice.id.Public()))
		})
	}
}

func TestSession_PendingHandshakeRepeatsUntilReply(t *testing.T) {
	// Arrange.
	alice := newParty(t, "alice", 1)
	bob := newParty(t, "bob", 2)
	alice.startSession(t, bob, true)
	toBob := alice.cipher(t, bob)
	toAlice := bob.cipher(t, alice)

	// Act.
	m1 := encrypt(t, toBob, "one")
	m2 := encrypt(t, toBob, "two")
	p1, err1 := decrypt(t, toAlice, m1)
	p2, err2 := decrypt(t, toAlice, m2)

	// Assert.
	require.Equal(t, message.PreKeyType, m1.Type())
	require.Equal(t, message.PreKeyType, m2.Type())
	require.NoError(t, err1)
	require.NoError(t, err2, "second handshake with the same base key reuses the session")
	require.Equal(t, "one", string(p1))
	require.Equal(t, "two", string(p2))
	require.Empty(t, bob.record(t, alice).PreviousStates())
}

func TestSession_OutOfOrder(t *testing.T) {
	// Arrange.
	_, _, toBob, toAlice := establish(t)
	var cts []message.Ciphertext
	for i := 0; i < 5; i++ {
		cts = append(cts, encrypt(t, toBob, fmt.Sprintf("msg %d", i)))
	}

	// Act / Assert.
	for _, i := range []int{2, 0, 4, 1, 3} {
		pt, err := decrypt(t, toAlice, cts[i])
		require.NoError(t, err, "message %d", i)
		require.Equal(t, fmt.Sprintf("msg %d", i), string(pt))
	}
}

func TestSession_DuplicateRejected(t *testing.T) {
	// Arrange.
	_, _, toBob, toAlice := establish(t)
	ct := encrypt(t, toBob, "once")
	_, err := decrypt(t, toAlice, ct)
	require.NoError(t, err)

	// Act.
	_, err = decrypt(t, toAlice, ct)

	// Assert.
	require.ErrorIs(t, err, domain.ErrDuplicateMessage)
}

func TestSession_ForwardSecrecy(t *testing.T) {
	// Arrange.
	alice, bob, toBob, toAlice := establish(t)
	ct := encrypt(t, toBob, "secret")
	m, err := message.ParseWhisperMessage(ct.Serialize())
	require.NoError(t, err)

	// Act.
	_, err = decrypt(t, toAlice, ct)
	require.NoError(t, err)

	// Assert.
	rec := bob.record(t, alice)
	st := rec.SessionState()
	require.False(t, st.HasMessageKeys(m.SenderRatchetKey, m.Counter))
	rc, ok := st.ReceiverChain(m.SenderRatchetKey)
	require.True(t, ok)
	require.Greater(t, rc.ChainKey.Index, m.Counter, "chain moved past the consumed key")
}

func TestSession_FutureWindow(t *testing.T) {
	// Arrange.
	alice := newParty(t, "alice", 1)
	bob := newParty(t, "bob", 2)
	alice.startSession(t, bob, false)
	toBob := alice.cipher(t, bob)
	toAlice := bob.cipher(t, alice)

	var cts []message.Ciphertext
	for i := 0; i <= session.MaxFutureMessages+1; i++ {
		cts = append(cts, encrypt(t, toBob, fmt.Sprintf("%d", i)))
	}

	// Act.
	_, errFar := decrypt(t, toAlice, cts[session.MaxFutureMessages+1])
	hasAfterFail, err := bob.store.ContainsSession(alice.addr)
	require.NoError(t, err)
	pt, errEdge := decrypt(t, toAlice, cts[session.MaxFutureMessages])

	// Assert.
	require.ErrorIs(t, errFar, domain.ErrInvalidMessage)
	require.False(t, hasAfterFail, "a rejected message leaves nothing behind")
	require.NoError(t, errEdge)
	require.Equal(t, fmt.Sprintf("%d", session.MaxFutureMessages), string(pt))
	require.Equal(t, session.MaxFutureMessages, bob.record(t, alice).SessionState().SkippedKeyCount())
}

func TestSession_MaxFutureOption(t *testing.T) {
	_, err := session.NewCipher(store.NewMemoryStore(domain.Identity{}, 1), domain.NewAddress("x", 1), session.WithMaxFutureMessages(-1))
	require.Error(t, err)

	// Arrange.
	alice := newParty(t, "alice", 1)
	bob := newParty(t, "bob", 2)
	alice.startSession(t, bob, false)
	toBob := alice.cipher(t, bob)
	toAlice := bob.cipher(t, alice, session.WithMaxFutureMessages(3))
	var cts []message.Ciphertext
	for i := 0; i < 5; i++ {
		cts = append(cts, encrypt(t, toBob, "x"))
	}

	// Act.
	_, err = decrypt(t, toAlice, cts[4])

	// Assert.
	require.ErrorIs(t, err, domain.ErrInvalidMessage)
	_, err = decrypt(t, toAlice, cts[3])
	require.NoError(t, err)
}

func TestSession_RatchetFlushesOldEpoch(t *testing.T) {
	// Arrange.
	alice, bob, toBob, toAlice := establish(t)
	a1 := encrypt(t, toBob, "a1")
	a2 := encrypt(t, toBob, "a2")
	a3 := encrypt(t, toBob, "a3")

	_, err := decrypt(t, toAlice, a1)
	require.NoError(t, err)
	_, err = decrypt(t, toBob, encrypt(t, toAlice, "b1"))
	require.NoError(t, err)
	a4 := encrypt(t, toBob, "a4")
	a5 := encrypt(t, toBob, "a5")

	// Act.
	p4, err := decrypt(t, toAlice, a4)
	require.NoError(t, err)
	p5, err := decrypt(t, toAlice, a5)
	require.NoError(t, err)
	rec := bob.record(t, alice)
	p3, err3 := decrypt(t, toAlice, a3)
	p2, err2 := decrypt(t, toAlice, a2)
	_, errDup := decrypt(t, toAlice, a2)

	// Assert.
	require.Equal(t, "a4", string(p4))
	require.Equal(t, "a5", string(p5))
	require.Equal(t, 2, rec.SessionState().SkippedKeyCount(), "keys owed on the old epoch are cached")
	old, err := message.ParseWhisperMessage(a2.Serialize())
	require.NoError(t, err)
	rc, ok := rec.SessionState().ReceiverChain(old.SenderRatchetKey)
	require.True(t, ok)
	require.True(t, rc.Closed)

	require.NoError(t, err3)
	require.Equal(t, "a3", string(p3))
	require.NoError(t, err2)
	require.Equal(t, "a2", string(p2))
	require.ErrorIs(t, errDup, domain.ErrDuplicateMessage)
}

func TestSession_LongConversation(t *testing.T) {
	_, _, toBob, toAlice := establish(t)
	for round := 0; round < 20; round++ {
		for i := 0; i <= round%3; i++ {
			text := fmt.Sprintf("alice %d.%d", round, i)
			pt, err := decrypt(t, toAlice, encrypt(t, toBob, text))
			require.NoError(t, err)
			require.Equal(t, text, string(pt))
		}
		text := fmt.Sprintf("bob %d", round)
		pt, err := decrypt(t, toBob, encrypt(t, toAlice, text))
		require.NoError(t, err)
		require.Equal(t, text, string(pt))
	}
}

// untrustingStore refuses every identity once flipped.
type untrustingStore struct {
	*store.MemoryStore
	refuse bool
}

func (s *untrustingStore) IsTrustedIdentity(addr domain.Address, key domain.IdentityKey, dir domain.Direction) (bool, error) {
	if s.refuse {
		return false, nil
	}
	return s.MemoryStore.IsTrustedIdentity(addr, key, dir)
}

// failingSessionStore rejects session writes while fail is set.
type failingSessionStore struct {
	*store.MemoryStore
	fail bool
}

func (s *failingSessionStore) StoreSession(addr domain.Address, record []byte) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.MemoryStore.StoreSession(addr, record)
}

func TestSession_FailedStoreKeepsPreKey(t *testing.T) {
	// Arrange.
	alice := newParty(t, "alice", 1)
	bob := newParty(t, "bob", 2)
	alice.startSession(t, bob, true)
	ct := encrypt(t, alice.cipher(t, bob), "retry me")
	pk, err := message.ParsePreKeyWhisperMessage(ct.Serialize())
	require.NoError(t, err)
	flaky := &failingSessionStore{MemoryStore: bob.store, fail: true}
	toAlice, err := session.NewCipher(flaky, alice.addr)
	require.NoError(t, err)

	// Act.
	_, err = toAlice.DecryptPreKey(pk, nil)

	// Assert.
	require.Error(t, err)
	has, err := bob.store.ContainsPreKey(bob.opk.ID)
	require.NoError(t, err)
	require.True(t, has)
	has, err = bob.store.ContainsSession(alice.addr)
	require.NoError(t, err)
	require.False(t, has)
	_, known, err := bob.store.Identity(alice.addr)
	require.NoError(t, err)
	require.False(t, known)

	flaky.fail = false
	pt, err := toAlice.DecryptPreKey(pk, nil)
	require.NoError(t, err)
	require.Equal(t, "retry me", string(pt))
	has, err = bob.store.ContainsPreKey(bob.opk.ID)
	require.NoError(t, err)
	require.False(t, has)
}

func TestSession_HandshakeVersion(t *testing.T) {
	alice := newParty(t, "alice", 1)
	bob := newParty(t, "bob", 2)
	alice.startSession(t, bob, true)
	ct := encrypt(t, alice.cipher(t, bob), "hello")
	toAlice := bob.cipher(t, alice)

	for _, tc := range []struct {
		version uint8
		want    error
	}{
		{message.MinVersion - 1, domain.ErrLegacyMessage},
		{message.CurrentVersion + 1, domain.ErrInvalidMessage},
	} {
		pk, err := message.ParsePreKeyWhisperMessage(ct.Serialize())
		require.NoError(t, err)
		pk.Version = tc.version
		_, err = toAlice.DecryptPreKey(pk, nil)
		require.ErrorIs(t, err, tc.want, "version %d", tc.version)
	}
	has, err := bob.store.ContainsSession(alice.addr)
	require.NoError(t, err)
	require.False(t, has)
}

func TestSession_UntrustedIdentityAborts(t *testing.T) {
	// Arrange.
	alice, bob, toBob, _ := establish(t)
	guarded := &untrustingStore{MemoryStore: bob.store}
	toAlice, err := session.NewCipher(guarded, alice.addr)
	require.NoError(t, err)
	ct := encrypt(t, toBob, "blocked")
	before, _, err := bob.store.LoadSession(alice.addr)
	require.NoError(t, err)
	guarded.refuse = true

	// Act.
	_, errDecrypt := decrypt(t, toAlice, ct)
	_, errEncrypt := toAlice.Encrypt([]byte("blocked"))

	// Assert.
	require.ErrorIs(t, errDecrypt, domain.ErrUntrustedIdentity)
	require.ErrorIs(t, errEncrypt, domain.ErrUntrustedIdentity)
	after, _, err := bob.store.LoadSession(alice.addr)
	require.NoError(t, err)
	require.Equal(t, before, after, "record is untouched")

	guarded.refuse = false
	pt, err := decrypt(t, toAlice, ct)
	require.NoError(t, err)
	require.Equal(t, "blocked", string(pt))
}

func TestSession_ChangedIdentityRefused(t *testing.T) {
	// Arrange.
	alice := newParty(t, "alice", 1)
	bob := newParty(t, "bob", 2)
	alice.startSession(t, bob, false)
	impostor := newParty(t, "bob", 3)

	// Act.
	b, err := session.NewBuilder(alice.store, bob.addr)
	require.NoError(t, err)
	err = b.ProcessBundle(impostor.bundle(false))

	// Assert.
	require.ErrorIs(t, err, domain.ErrUntrustedIdentity)
}

func TestSession_BundleSignature(t *testing.T) {
	alice := newParty(t, "alice", 1)
	bob := newParty(t, "bob", 2)
	b, err := session.NewBuilder(alice.store, bob.addr)
	require.NoError(t, err)

	missing := bob.bundle(true)
	missing.SignedPreKeySignature = nil
	require.ErrorIs(t, b.ProcessBundle(missing), domain.ErrInvalidKey)

	bad := bob.bundle(true)
	bad.SignedPreKeySignature = append([]byte(nil), bad.SignedPreKeySignature...)
	bad.SignedPreKeySignature[0] ^= 0x01
	require.ErrorIs(t, b.ProcessBundle(bad), domain.ErrInvalidKey)

	has, err := alice.store.ContainsSession(bob.addr)
	require.NoError(t, err)
	require.False(t, has)
}

func TestSession_MissingPreKeys(t *testing.T) {
	t.Run("one-time", func(t *testing.T) {
		alice := newParty(t, "alice", 1)
		bob := newParty(t, "bob", 2)
		alice.startSession(t, bob, true)
		require.NoError(t, bob.store.RemovePreKey(bob.opk.ID))

		_, err := decrypt(t, bob.cipher(t, alice), encrypt(t, alice.cipher(t, bob), "x"))
		require.ErrorIs(t, err, domain.ErrInvalidKeyID)
	})
	t.Run("signed", func(t *testing.T) {
		alice := newParty(t, "alice", 1)
		bob := newParty(t, "bob", 2)
		alice.startSession(t, bob, false)
		require.NoError(t, bob.store.RemoveSignedPreKey(bob.spk.ID))

		_, err := decrypt(t, bob.cipher(t, alice), encrypt(t, alice.cipher(t, bob), "x"))
		require.ErrorIs(t, err, domain.ErrInvalidKeyID)
	})
}

func TestSession_CallbackErrorAborts(t *testing.T) {
	// Arrange.
	alice := newParty(t, "alice", 1)
	bob := newParty(t, "bob", 2)
	alice.startSession(t, bob, true)
	ct := encrypt(t, alice.cipher(t, bob), "hold")
	m, err := message.ParsePreKeyWhisperMessage(ct.Serialize())
	require.NoError(t, err)
	toAlice := bob.cipher(t, alice)
	boom := errors.New("boom")

	// Act.
	var seen string
	_, err = toAlice.DecryptPreKey(m, func(pt []byte) error {
		seen = string(pt)
		return boom
	})

	// Assert.
	require.ErrorIs(t, err, boom)
	require.Equal(t, "hold", seen)
	has, err := bob.store.ContainsSession(alice.addr)
	require.NoError(t, err)
	require.False(t, has)
	has, err = bob.store.ContainsPreKey(bob.opk.ID)
	require.NoError(t, err)
	require.True(t, has, "pre-key survives an aborted decrypt")

	pt, err := toAlice.DecryptPreKey(m, nil)
	require.NoError(t, err)
	require.Equal(t, "hold", string(pt))
}

func TestSession_NoSession(t *testing.T) {
	alice := newParty(t, "alice", 1)
	bob := newParty(t, "bob", 2)
	toBob := alice.cipher(t, bob)

	_, err := toBob.Encrypt([]byte("x"))
	require.ErrorIs(t, err, domain.ErrNoSession)

	_, err = toBob.RemoteRegistrationID()
	require.ErrorIs(t, err, domain.ErrNoSession)

	bob.startSession(t, alice, false)
	ct := encrypt(t, bob.cipher(t, alice), "x")
	pk, err := message.ParsePreKeyWhisperMessage(ct.Serialize())
	require.NoError(t, err)
	_, err = toBob.Decrypt(pk.Message, nil)
	require.ErrorIs(t, err, domain.ErrNoSession)
}

func TestSession_ArchiveCapacity(t *testing.T) {
	// Arrange.
	alice := newParty(t, "alice", 1)
	bob := newParty(t, "bob", 2)

	// Act.
	for i := 0; i < state.MaxPreviousStates+2; i++ {
		alice.startSession(t, bob, false)
	}

	// Assert.
	rec := alice.record(t, bob)
	require.Len(t, rec.PreviousStates(), state.MaxPreviousStates)
	require.True(t, rec.SessionState().HasSenderChain())
}

func TestSession_EvictedStateFailsCleanly(t *testing.T) {
	// Arrange.
	alice, bob, toBob, toAlice := establish(t)
	old := encrypt(t, toBob, "evicted")
	require.Equal(t, message.WhisperType, old.Type())
	for i := 0; i <= state.MaxPreviousStates; i++ {
		alice.startSession(t, bob, false)
		_, err := decrypt(t, toAlice, encrypt(t, toBob, fmt.Sprintf("epoch %d", i)))
		require.NoError(t, err)
	}
	require.Len(t, bob.record(t, alice).PreviousStates(), state.MaxPreviousStates)
	before, _, err := bob.store.LoadSession(alice.addr)
	require.NoError(t, err)

	// Act.
	_, err = decrypt(t, toAlice, old)

	// Assert.
	require.ErrorIs(t, err, domain.ErrInvalidMessage)
	after, _, err := bob.store.LoadSession(alice.addr)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSession_ArchivedStateStillDecrypts(t *testing.T) {
	// Arrange.
	alice, bob, toBob, toAlice := establish(t)
	late := encrypt(t, toBob, "late")
	alice.startSession(t, bob, false)
	_, err := decrypt(t, toAlice, encrypt(t, toBob, "new session"))
	require.NoError(t, err)

	// Act.
	pt, err := decrypt(t, toAlice, late)

	// Assert.
	require.NoError(t, err)
	require.Equal(t, "late", string(pt))
}

func TestSession_SimultaneousInitiate(t *testing.T) {
	// Arrange.
	alice := newParty(t, "alice", 1)
	bob := newParty(t, "bob", 2)
	alice.startSession(t, bob, true)
	bob.startSession(t, alice, true)
	toBob := alice.cipher(t, bob)
	toAlice := bob.cipher(t, alice)

	// Act.
	fromAlice := encrypt(t, toBob, "hey bob")
	fromBob := encrypt(t, toAlice, "hey alice")
	require.Equal(t, message.PreKeyType, fromAlice.Type())
	require.Equal(t, message.PreKeyType, fromBob.Type())

	pt, err := decrypt(t, toBob, fromBob)
	require.NoError(t, err)
	require.Equal(t, "hey alice", string(pt))
	pt, err = decrypt(t, toAlice, fromAlice)
	require.NoError(t, err)
	require.Equal(t, "hey bob", string(pt))

	require.False(t, sameSession(t, alice, bob))

	reply := encrypt(t, toBob, "sample message")
	require.Equal(t, message.WhisperType, reply.Type())
	pt, err = decrypt(t, toAlice, reply)
	require.NoError(t, err)
	require.Equal(t, "sample message", string(pt))

	// Assert.
	require.True(t, sameSession(t, alice, bob))
	answer := encrypt(t, toAlice, "second message")
	require.Equal(t, message.WhisperType, answer.Type())
	pt, err = decrypt(t, toBob, answer)
	require.NoError(t, err)
	require.Equal(t, "second message", string(pt))
}

func sameSession(t *testing.T, alice, bob *party) bool {
	t.Helper()
	a := alice.record(t, bob).SessionState().AliceBaseKey()
	b := bob.record(t, alice).SessionState().AliceBaseKey()
	return a.Equal(b)
}
