package domain

import "context"

// SessionStore persists serialized session records per remote address. The
// record encoding belongs to the protocol layer; stores treat it as opaque.
type SessionStore interface {
	LoadSession(addr Address) (record []byte, ok bool, err error)
	StoreSession(addr Address, record []byte) error
	ContainsSession(addr Address) (bool, error)
	DeleteSession(addr Address) error
}

// PreKeyStore manages one-time pre-keys.
type PreKeyStore interface {
	LoadPreKey(id uint32) (PreKeyRecord, bool, error)
	StorePreKey(rec PreKeyRecord) error
	ContainsPreKey(id uint32) (bool, error)
	RemovePreKey(id uint32) error
}

// SignedPreKeyStore manages signed pre-keys.
type SignedPreKeyStore interface {
	LoadSignedPreKey(id uint32) (SignedPreKeyRecord, bool, error)
	StoreSignedPreKey(rec SignedPreKeyRecord) error
	ContainsSignedPreKey(id uint32) (bool, error)
	RemoveSignedPreKey(id uint32) error
}

// IdentityKeyStore exposes the local identity and the trust decisions about
// remote identities.
type IdentityKeyStore interface {
	IdentityKeyPair() (Identity, error)
	LocalRegistrationID() (uint32, error)
	SaveIdentity(addr Address, key IdentityKey) error
	IsTrustedIdentity(addr Address, key IdentityKey, dir Direction) (bool, error)
	Identity(addr Address) (IdentityKey, bool, error)
}

// ProtocolStore is everything the session builder and cipher need.
type ProtocolStore interface {
	SessionStore
	PreKeyStore
	SignedPreKeyStore
	IdentityKeyStore
}

// LocalIdentityStore creates and unlocks the passphrase-protected identity.
type LocalIdentityStore interface {
	SaveLocalIdentity(passphrase string, id Identity, registrationID uint32) error
	Unlock(passphrase string) error
}

// Store is the full persistence surface used by the app.
type Store interface {
	ProtocolStore
	LocalIdentityStore
}

// IdentityService creates and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(passphrase string) (Identity, Fingerprint, error)
	FingerprintIdentity() (Fingerprint, error)
}

// PreKeyService generates pre-keys and assembles what gets published.
type PreKeyService interface {
	GeneratePreKeys(username Username, count int) (PublishedKeys, error)
}

// SessionService establishes and resets sessions.
type SessionService interface {
	InitiateSession(ctx context.Context, peer Address) error
	HasSession(peer Address) (bool, error)
	ResetSession(peer Address) error
}

// MessageService encrypts, sends, fetches and decrypts messages.
type MessageService interface {
	SendMessage(ctx context.Context, from Username, to Address, plaintext []byte) error
	ReceiveMessages(ctx context.Context, me Username, limit int) ([]DecryptedMessage, error)
}

// RelayClient is how we talk to the central relay server.
type RelayClient interface {
	RegisterPreKeys(ctx context.Context, keys PublishedKeys) error
	FetchPreKeyBundle(ctx context.Context, peer Address) (PreKeyBundle, error)

	SendMessage(ctx context.Context, env Envelope) (string, error)
	FetchMessages(ctx context.Context, username Username, limit int) ([]Envelope, error)
	AckMessages(ctx context.Context, username Username, ids []string) error
}
