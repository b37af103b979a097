package x3dh

import (
	"whisper/internal/crypto"
	"whisper/internal/domain"
	"whisper/internal/protocol/ratchet"
	"whisper/internal/util/memzero"
)

// InitiatorParameters is the material Alice holds when she processes Bob's bundle.
type InitiatorParameters struct {
	OurIdentity        domain.Identity
	OurBaseKey         domain.KeyPair
	TheirIdentity      domain.IdentityKey
	TheirSignedPreKey  domain.X25519Public
	TheirOneTimePreKey domain.Optional[domain.X25519Public]
}

// ResponderParameters is the material Bob holds when a handshake arrives.
type ResponderParameters struct {
	OurIdentity      domain.Identity
	OurSignedPreKey  domain.KeyPair
	OurOneTimePreKey domain.Optional[domain.KeyPair]
	TheirIdentity    domain.IdentityKey
	TheirBaseKey     domain.X25519Public
}

// Initiator derives the first root and chain keys for the initiator.
func Initiator(p InitiatorParameters) (ratchet.RootKey, ratchet.ChainKey, error) {
	dh1, err := crypto.DH(p.OurIdentity.XPriv, p.TheirSignedPreKey) // DH(IKA, SPKB)
	if err != nil {
		return ratchet.RootKey{}, ratchet.ChainKey{}, err
	}
	dh2, err := crypto.DH(p.OurBaseKey.Priv, p.TheirIdentity.XPub) // DH(EKA, IKB)
	if err != nil {
		return ratchet.RootKey{}, ratchet.ChainKey{}, err
	}
	dh3, err := crypto.DH(p.OurBaseKey.Priv, p.TheirSignedPreKey) // DH(EKA, SPKB)
	if err != nil {
		return ratchet.RootKey{}, ratchet.ChainKey{}, err
	}
	secrets := [][32]byte{dh1, dh2, dh3}

	if opk, ok := p.TheirOneTimePreKey.Get(); ok {
		dh4, err := crypto.DH(p.OurBaseKey.Priv, opk) // DH(EKA, OPKB)
		if err != nil {
			return ratchet.RootKey{}, ratchet.ChainKey{}, err
		}
		secrets = append(secrets, dh4)
	}
	root, chain := derive(secrets)
	return root, chain, nil
}

// Responder mirrors Initiator with Bob's private keys.
func Responder(p ResponderParameters) (ratchet.RootKey, ratchet.ChainKey, error) {
	dh1, err := crypto.DH(p.OurSignedPreKey.Priv, p.TheirIdentity.XPub)
	if err != nil {
		return ratchet.RootKey{}, ratchet.ChainKey{}, err
	}
	dh2, err := crypto.DH(p.OurIdentity.XPriv, p.TheirBaseKey)
	if err != nil {
		return ratchet.RootKey{}, ratchet.ChainKey{}, err
	}
	dh3, err := crypto.DH(p.OurSignedPreKey.Priv, p.TheirBaseKey)
	if err != nil {
		return ratchet.RootKey{}, ratchet.ChainKey{}, err
	}
	secrets := [][32]byte{dh1, dh2, dh3}

	if opk, ok := p.OurOneTimePreKey.Get(); ok {
		dh4, err := crypto.DH(opk.Priv, p.TheirBaseKey)
		if err != nil {
			return ratchet.RootKey{}, ratchet.ChainKey{}, err
		}
		secrets = append(secrets, dh4)
	}
	root, chain := derive(secrets)
	return root, chain, nil
}

// SignSignedPreKey signs the serialized signed pre-key with the identity.
func SignSignedPreKey(id domain.Identity, spk domain.X25519Public) []byte {
	return crypto.SignEd25519(id.EdPriv, spk.Serialize())
}

// VerifySignedPreKey checks the signed pre-key signature.
func VerifySignedPreKey(identity domain.IdentityKey, spk domain.X25519Public, sig []byte) bool {
	return crypto.VerifyEd25519(identity.EdPub, spk.Serialize(), sig)
}

func derive(secrets [][32]byte) (ratchet.RootKey, ratchet.ChainKey) {
	master := make([]byte, 0, 32*(len(secrets)+1))
	master = append(master, ratchet.Discontinuity()...)
	for i := range secrets {
		master = append(master, secrets[i][:]...)
		memzero.Zero(secrets[i][:])
	}
	root, chain := ratchet.DeriveSecrets(master)
	memzero.Zero(master)
	return root, chain
}
