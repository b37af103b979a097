package session

import (
	"fmt"

	"whisper/internal/crypto"
	"whisper/internal/protocol/message"
	"whisper/internal/protocol/state"
	"whisper/internal/protocol/x3dh"
)

// initializeAlice fills st as the party that processed a bundle. The signed
// pre-key acts as Bob's first ratchet key, so Alice can receive on it right
// away and ratchets once to get her own sending chain.
func initializeAlice(st *state.SessionState, p x3dh.InitiatorParameters) error {
	root, chain, err := x3dh.Initiator(p)
	if err != nil {
		return fmt.Errorf("initiator key agreement: %w", err)
	}
	sending, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	sendRoot, sendChain, err := root.CreateChain(p.TheirSignedPreKey, sending)
	if err != nil {
		return err
	}

	st.SetVersion(message.CurrentVersion)
	st.SetLocalIdentity(p.OurIdentity.Public())
	st.SetRemoteIdentity(p.TheirIdentity)
	st.AddReceiverChain(p.TheirSignedPreKey, chain)
	st.SetSenderChain(sending, sendChain)
	st.SetRootKey(sendRoot)
	st.SetAliceBaseKey(p.OurBaseKey.Pub)
	return nil
}

// initializeBob fills st as the party that received a handshake. Bob sends
// on the signed pre-key until Alice's first ratchet key arrives.
func initializeBob(st *state.SessionState, p x3dh.ResponderParameters) error {
	root, chain, err := x3dh.Responder(p)
	if err != nil {
		return fmt.Errorf("responder key agreement: %w", err)
	}

	st.SetVersion(message.CurrentVersion)
	st.SetLocalIdentity(p.OurIdentity.Public())
	st.SetRemoteIdentity(p.TheirIdentity)
	st.SetSenderChain(p.OurSignedPreKey, chain)
	st.SetRootKey(root)
	st.SetAliceBaseKey(p.TheirBaseKey)
	return nil
}
