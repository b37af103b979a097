package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"whisper/internal/domain"
	protomsg "whisper/internal/protocol/message"
	protocol "whisper/internal/protocol/session"
)

// Service sends and receives messages over the relay.
//
// High-level flow:
//   - Send: encrypt with the session cipher (a handshake envelope until the
//     peer replies) and post via the relay.
//   - Receive: fetch envelopes, decrypt them in order, ack what was handled.
//     Duplicates and envelopes that can never decrypt are dropped and acked;
//     any other failure stops processing and leaves the rest queued.
type Service struct {
	store    domain.ProtocolStore
	relay    domain.RelayClient
	deviceID uint32
	opts     []protocol.Option
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a message service for our device deviceID.
func New(
	store domain.ProtocolStore,
	relay domain.RelayClient,
	deviceID uint32,
	logger *slog.Logger,
	opts ...protocol.Option,
) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store:    store,
		relay:    relay,
		deviceID: deviceID,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// SendMessage encrypts plaintext for to and posts it.
func (s *Service) SendMessage(ctx context.Context, from domain.Username, to domain.Address, plaintext []byte) error {
	cipher, err := protocol.NewCipher(s.store, to, s.opts...)
	if err != nil {
		return err
	}
	ct, err := cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt for %s: %w", to, err)
	}

	env := domain.Envelope{
		From:         from,
		SourceDevice: s.deviceID,
		To:           to.Name,
		Type:         domain.EnvelopeType(ct.Type()),
		Body:         ct.Serialize(),
		Timestamp:    s.now().Unix(),
	}
	id, err := s.relay.SendMessage(ctx, env)
	if err != nil {
		return err
	}
	s.logger.Debug("message sent", "to", to.String(), "id", id, "type", int(env.Type))
	return nil
}

// ReceiveMessages fetches up to limit envelopes for me and decrypts them.
func (s *Service) ReceiveMessages(ctx context.Context, me domain.Username, limit int) ([]domain.DecryptedMessage, error) {
	envs, err := s.relay.FetchMessages(ctx, me, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DecryptedMessage, 0, len(envs))
	handled := make([]string, 0, len(envs))
	var stopErr error

	for _, env := range envs {
		from := domain.NewAddress(env.From, env.SourceDevice)
		plain, err := s.decrypt(from, env)
		switch {
		case err == nil:
			out = append(out, domain.DecryptedMessage{
				ID:        env.ID,
				From:      from,
				To:        env.To,
				Plaintext: plain,
				Timestamp: env.Timestamp,
			})
		case errors.Is(err, domain.ErrDuplicateMessage):
			s.logger.Debug("duplicate dropped", "from", from.String(), "id", env.ID)
		case droppable(err):
			s.logger.Warn("undecryptable message dropped", "from", from.String(), "id", env.ID, "err", err)
		default:
			stopErr = fmt.Errorf("decrypt %s from %s: %w", env.ID, from, err)
		}
		if stopErr != nil {
			break
		}
		handled = append(handled, env.ID)
	}

	if len(handled) > 0 {
		if err := s.relay.AckMessages(ctx, me, handled); err != nil {
			return out, errors.Join(stopErr, fmt.Errorf("ack %d messages: %w", len(handled), err))
		}
	}
	return out, stopErr
}

func (s *Service) decrypt(from domain.Address, env domain.Envelope) ([]byte, error) {
	cipher, err := protocol.NewCipher(s.store, from, s.opts...)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case domain.EnvelopeWhisper:
		msg, err := protomsg.ParseWhisperMessage(env.Body)
		if err != nil {
			return nil, err
		}
		return cipher.Decrypt(msg, nil)
	case domain.EnvelopePreKey:
		msg, err := protomsg.ParsePreKeyWhisperMessage(env.Body)
		if err != nil {
			return nil, err
		}
		return cipher.DecryptPreKey(msg, nil)
	default:
		return nil, fmt.Errorf("%w: envelope type %d", domain.ErrInvalidMessage, env.Type)
	}
}

// droppable reports failures that retrying the same envelope cannot fix.
func droppable(err error) bool {
	return errors.Is(err, domain.ErrInvalidMessage) ||
		errors.Is(err, domain.ErrLegacyMessage) ||
		errors.Is(err, domain.ErrInvalidKey) ||
		errors.Is(err, domain.ErrInvalidKeyID) ||
		errors.Is(err, domain.ErrNoSession)
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
