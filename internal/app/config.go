package app

import (
	"log/slog"
	"net/http"
)

// Store backends accepted in Config.StoreBackend.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home     string       // config directory, e.g. $HOME/.whisper
	RelayURL string       // relay base URL, e.g. http://127.0.0.1:8080
	HTTP     *http.Client // optional; defaults to http.DefaultClient

	StoreBackend   string // BackendFile (default) or BackendRedis
	RedisAddr      string // host:port when StoreBackend is BackendRedis
	RedisNamespace string // key prefix for this device's data in Redis

	DeviceID uint32       // defaults to domain.DefaultDeviceID
	Logger   *slog.Logger // optional; defaults to discarding
}
