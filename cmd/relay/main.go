package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"whisper/internal/relay/server"
)

type relayOptions struct {
	addr        string
	backend     string
	redisAddr   string
	redisPrefix string
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &relayOptions{}
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Store-and-forward relay for whisper envelopes and pre-keys",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.addr, "addr", ":8080", "listen address")
	f.StringVar(&o.backend, "backend", "memory", "state backend: memory or redis")
	f.StringVar(&o.redisAddr, "redis", "127.0.0.1:6379", "redis address for --backend=redis")
	f.StringVar(&o.redisPrefix, "redis-prefix", "relay:", "redis key prefix")
	f.StringVar(&o.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	return cmd
}

func newBackend(ctx context.Context, o *relayOptions) (server.Backend, func() error, error) {
	switch o.backend {
	case "memory":
		return server.NewMemoryBackend(), func() error { return nil }, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: o.redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", o.redisAddr, err)
		}
		return server.NewRedisBackend(rdb, o.redisPrefix), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", o.backend)
	}
}

func run(ctx context.Context, o *relayOptions) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return fmt.Errorf("bad --log-level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	backend, closeBackend, err := newBackend(ctx, o)
	if err != nil {
		return err
	}
	defer closeBackend()

	srv := &http.Server{
		Addr:              o.addr,
		Handler:           server.New(backend, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("relay listening", "addr", o.addr, "backend", o.backend)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("relay stopped")
	return nil
}
