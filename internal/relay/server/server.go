package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"whisper/internal/domain"
	"whisper/internal/protocol/x3dh"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// ackRequest lists the envelope ids a client has handled.
type ackRequest struct {
	IDs []string `json:"ids"`
}

// sendResponse returns the id assigned to a queued envelope.
type sendResponse struct {
	ID string `json:"id"`
}

// Server is the store-and-forward relay. It never sees plaintext or private
// keys; it stores public pre-keys and queues ciphertext envelopes.
type Server struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

// New returns a relay over backend. A nil logger discards.
func New(backend Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{backend: backend, logger: logger, now: time.Now}
}

// Handler returns the relay's HTTP routes wrapped with the access log.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /prekey/{user}/{device}", s.handleBundle)
	mux.HandleFunc("POST /msg/{user}", s.handleSend)
	mux.HandleFunc("GET /msg/{user}", s.handleFetch)
	mux.HandleFunc("POST /msg/{user}/ack", s.handleAck)
	return s.accessLog(mux)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var keys domain.PublishedKeys
	if !decode(w, r, &keys) {
		return
	}
	if keys.Username == "" {
		httpError(w, http.StatusBadRequest, "username required")
		return
	}
	if !x3dh.VerifySignedPreKey(keys.IdentityKey, keys.SignedPreKey, keys.SignedPreKeySignature) {
		httpError(w, http.StatusBadRequest, "bad signed pre-key signature")
		return
	}
	if keys.DeviceID == 0 {
		keys.DeviceID = domain.DefaultDeviceID
	}
	if err := s.backend.PutKeys(r.Context(), keys); err != nil {
		s.internal(w, "put keys", err)
		return
	}
	s.logger.Info("keys registered", "user", keys.Username.String(), "device", keys.DeviceID, "one_time", len(keys.OneTimePreKeys))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	device, err := strconv.ParseUint(r.PathValue("device"), 10, 32)
	if err != nil {
		httpError(w, http.StatusBadRequest, "bad device id")
		return
	}
	b, ok, err := s.backend.TakeBundle(r.Context(), domain.Username(r.PathValue("user")), uint32(device))
	if err != nil {
		s.internal(w, "take bundle", err)
		return
	}
	if !ok {
		httpError(w, http.StatusNotFound, "no keys published")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var env domain.Envelope
	if !decode(w, r, &env) {
		return
	}
	env.To = domain.Username(r.PathValue("user"))
	if env.From == "" || len(env.Body) == 0 {
		httpError(w, http.StatusBadRequest, "from and body required")
		return
	}
	if env.SourceDevice == 0 {
		env.SourceDevice = domain.DefaultDeviceID
	}
	if env.Timestamp == 0 {
		env.Timestamp = s.now().Unix()
	}
	env.ID = uuid.NewString()
	if err := s.backend.Enqueue(r.Context(), env); err != nil {
		s.internal(w, "enqueue", err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{ID: env.ID})
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httpError(w, http.StatusBadRequest, "bad limit")
			return
		}
		limit = n
	}
	envs, err := s.backend.Peek(r.Context(), domain.Username(r.PathValue("user")), limit)
	if err != nil {
		s.internal(w, "peek", err)
		return
	}
	if envs == nil {
		envs = []domain.Envelope{}
	}
	writeJSON(w, http.StatusOK, envs)
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.backend.Ack(r.Context(), domain.Username(r.PathValue("user")), req.IDs); err != nil {
		s.internal(w, "ack", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) internal(w http.ResponseWriter, op string, err error) {
	s.logger.Error("backend failure", "op", op, "err", err)
	httpError(w, http.StatusInternalServerError, "internal error")
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpError(w, status, "bad request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

// statusRecorder captures the status and size for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", s.now().Sub(start),
		)
	})
}
