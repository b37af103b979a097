package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"whisper/internal/domain"
	protocol "whisper/internal/protocol/session"
	"whisper/internal/relay"
	identitysvc "whisper/internal/services/identity"
	messagesvc "whisper/internal/services/message"
	prekeysvc "whisper/internal/services/prekey"
	sessionsvc "whisper/internal/services/session"
	"whisper/internal/store"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Store    domain.Store
	Accounts domain.AccountStore
	Identity *identitysvc.Service
	PreKeys  domain.PreKeyService
	Sessions domain.SessionService
	Messages domain.MessageService
	Relay    domain.RelayClient // nil when no relay URL is configured
	HTTP     *http.Client
	Logger   *slog.Logger
	DeviceID uint32

	closers []func() error
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	deviceID := cfg.DeviceID
	if deviceID == 0 {
		deviceID = domain.DefaultDeviceID
	}

	// Account profiles always live on disk next to the config.
	fileStore := store.NewFileStore(cfg.Home)
	w := &Wire{Accounts: fileStore, Logger: logger, DeviceID: deviceID}

	switch cfg.StoreBackend {
	case "", BackendFile:
		w.Store = fileStore
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis store needs an address")
		}
		ns := cfg.RedisNamespace
		if ns == "" {
			ns = "whisper"
		}
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		w.closers = append(w.closers, rdb.Close)
		w.Store = store.NewRedisStore(rdb, ns)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	// Ensure an HTTP client is available for outbound calls
	w.HTTP = cfg.HTTP
	if w.HTTP == nil {
		w.HTTP = http.DefaultClient
	}
	if cfg.RelayURL != "" {
		w.Relay = relay.NewHTTP(cfg.RelayURL, w.HTTP)
	}

	opts := []protocol.Option{
		protocol.WithLogger(logger.With("component", "session")),
		protocol.WithPerAddressLocking(),
	}

	w.Identity = identitysvc.New(w.Store)
	w.PreKeys = prekeysvc.New(w.Store, deviceID)
	w.Sessions = sessionsvc.New(w.Store, w.Relay, logger, opts...)
	w.Messages = messagesvc.New(w.Store, w.Relay, deviceID, logger, opts...)
	return w, nil
}

// Close releases backend connections.
func (w *Wire) Close() error {
	var first error
	for _, c := range w.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
