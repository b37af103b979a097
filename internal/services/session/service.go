package session

import (
	"context"
	"fmt"
	"log/slog"

	"whisper/internal/domain"
	protocol "whisper/internal/protocol/session"
)

// Service starts and resets sessions with peers.
//
// InitiateSession:
//   - Fetches the peer's pre-key bundle from the relay (the relay hands out
//     one one-time pre-key per fetch).
//   - Verifies and processes it with the session builder, which stores a
//     session whose first messages carry the handshake.
type Service struct {
	store  domain.ProtocolStore
	relay  domain.RelayClient
	opts   []protocol.Option
	logger *slog.Logger
}

// New constructs a session service. opts are passed to every builder.
func New(store domain.ProtocolStore, relay domain.RelayClient, logger *slog.Logger, opts ...protocol.Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{store: store, relay: relay, opts: opts, logger: logger}
}

// InitiateSession fetches peer's bundle and builds a session from it.
func (s *Service) InitiateSession(ctx context.Context, peer domain.Address) error {
	bundle, err := s.relay.FetchPreKeyBundle(ctx, peer)
	if err != nil {
		return fmt.Errorf("fetch bundle for %s: %w", peer, err)
	}
	builder, err := protocol.NewBuilder(s.store, peer, s.opts...)
	if err != nil {
		return err
	}
	if err := builder.ProcessBundle(bundle); err != nil {
		return fmt.Errorf("process bundle for %s: %w", peer, err)
	}
	_, withOneTime := bundle.PreKeyID.Get()
	s.logger.Info("session started", "peer", peer.String(), "one_time_prekey", withOneTime)
	return nil
}

// HasSession reports whether a session record exists for peer.
func (s *Service) HasSession(peer domain.Address) (bool, error) {
	return s.store.ContainsSession(peer)
}

// ResetSession forgets the session with peer. The next send needs a new
// InitiateSession; the peer's identity stays trusted.
func (s *Service) ResetSession(peer domain.Address) error {
	if err := s.store.DeleteSession(peer); err != nil {
		return err
	}
	s.logger.Info("session reset", "peer", peer.String())
	return nil
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
