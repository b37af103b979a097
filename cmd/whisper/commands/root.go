package commands

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"whisper/internal/app"
)

// options are the persistent flags shared by every command.
type options struct {
	home       string
	passphrase string
	relayURL   string
	backend    string
	redisAddr  string
	redisNS    string
	logLevel   string

	app *app.App
}

// Execute runs the CLI against os.Args.
func Execute() error {
	return NewRootCmd(os.Stderr).Execute()
}

// NewRootCmd returns the root command. Logs go to logOut.
func NewRootCmd(logOut io.Writer) *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:          "whisper",
		Short:        "End-to-end encrypted messaging CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.build(logOut)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if o.app == nil {
				return nil
			}
			return o.app.Close()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&o.home, "home", os.Getenv("WHISPER_HOME"), "config dir (default ~/.whisper, env WHISPER_HOME)")
	f.StringVarP(&o.passphrase, "passphrase", "p", "", "passphrase protecting the identity")
	f.StringVar(&o.relayURL, "relay", os.Getenv("WHISPER_RELAY"), "relay base URL, e.g. http://127.0.0.1:8080 (env WHISPER_RELAY)")
	f.StringVar(&o.backend, "store", app.BackendFile, "store backend: file or redis")
	f.StringVar(&o.redisAddr, "redis", "127.0.0.1:6379", "redis address for --store=redis")
	f.StringVar(&o.redisNS, "redis-namespace", "whisper", "redis key prefix for this device")
	f.StringVar(&o.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(
		initCmd(o),
		fingerprintCmd(o),
		registerCmd(o),
		startSessionCmd(o),
		sendCmd(o),
		recvCmd(o),
		resetSessionCmd(o),
	)
	return root
}

func (o *options) build(logOut io.Writer) error {
	if o.home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		o.home = filepath.Join(dir, ".whisper")
	}
	if err := os.MkdirAll(o.home, 0o700); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return fmt.Errorf("bad --log-level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	a, err := app.New(app.Config{
		Home:           o.home,
		RelayURL:       o.relayURL,
		HTTP:           &http.Client{Timeout: 15 * time.Second},
		StoreBackend:   o.backend,
		RedisAddr:      o.redisAddr,
		RedisNamespace: o.redisNS,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	o.app = a
	return nil
}
