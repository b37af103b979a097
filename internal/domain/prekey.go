package domain

// PreKeyRecord is a one-time pre-key held locally until a peer consumes it.
type PreKeyRecord struct {
	ID      uint32  `json:"id"`
	KeyPair KeyPair `json:"key_pair"`
}

// SignedPreKeyRecord is the medium-term pre-key signed by the identity key.
type SignedPreKeyRecord struct {
	ID        uint32  `json:"id"`
	KeyPair   KeyPair `json:"key_pair"`
	Signature []byte  `json:"signature"`
	Timestamp int64   `json:"timestamp"`
}

// OneTimePreKeyPublic is only the public half (sent to the relay).
type OneTimePreKeyPublic struct {
	ID  uint32       `json:"id"`
	Pub X25519Public `json:"pub"`
}

// PreKeyBundle is what an initiator needs to start a session with a peer.
// PreKey is only meaningful when PreKeyID is present.
type PreKeyBundle struct {
	RegistrationID        uint32           `json:"registration_id"`
	DeviceID              uint32           `json:"device_id"`
	PreKeyID              Optional[uint32] `json:"pre_key_id"`
	PreKey                X25519Public     `json:"pre_key"`
	SignedPreKeyID        uint32           `json:"signed_pre_key_id"`
	SignedPreKey          X25519Public     `json:"signed_pre_key"`
	SignedPreKeySignature []byte           `json:"signed_pre_key_signature"`
	IdentityKey           IdentityKey      `json:"identity_key"`
}

// PublishedKeys is the set of public keys you register with the relay. The
// relay hands out one one-time pre-key per bundle fetch.
type PublishedKeys struct {
	Username              Username              `json:"username"`
	RegistrationID        uint32                `json:"registration_id"`
	DeviceID              uint32                `json:"device_id"`
	IdentityKey           IdentityKey           `json:"identity_key"`
	SignedPreKeyID        uint32                `json:"signed_pre_key_id"`
	SignedPreKey          X25519Public          `json:"signed_pre_key"`
	SignedPreKeySignature []byte                `json:"signed_pre_key_signature"`
	OneTimePreKeys        []OneTimePreKeyPublic `json:"one_time_pre_keys,omitempty"`
}
