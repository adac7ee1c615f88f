package transport

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/figbridge/internal/ir"
	"github.com/roach88/figbridge/internal/relay"
)

// MaxBodyBytes caps the size of a posted result.
const MaxBodyBytes = 1 << 20

// Relay is the part of *relay.Relay the HTTP surface needs.
type Relay interface {
	Next() (ir.Command, bool)
	PostResult(res ir.Result) error
	IsLive(window time.Duration) bool
	Pending() int
}

// Health is the body of GET /health.
type Health struct {
	Connected bool `json:"connected"`
	Pending   int  `json:"pending"`
}

// Handler serves the polling protocol for one relay.
type Handler struct {
	relay  Relay
	window time.Duration
	logger *slog.Logger
}

// NewHandler creates a handler. A non-positive window falls back to
// relay.DefaultLivenessWindow; a nil logger to slog.Default().
func NewHandler(r Relay, window time.Duration, logger *slog.Logger) *Handler {
	if window <= 0 {
		window = relay.DefaultLivenessWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{relay: r, window: window, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	setCORS(w)

	switch {
	case req.Method == http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case req.Method == http.MethodGet && req.URL.Path == "/next":
		h.handleNext(w)
	case req.Method == http.MethodGet && req.URL.Path == "/health":
		h.handleHealth(w)
	case req.Method == http.MethodPost && req.URL.Path == "/result":
		h.handleResult(w, req)
	default:
		h.logger.Debug("unknown route", "method", req.Method, "path", req.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleNext(w http.ResponseWriter) {
	cmd, ok := h.relay.Next()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.logger.Debug("command delivered", "id", cmd.ID, "kind", cmd.Kind)
	writeJSON(w, http.StatusOK, cmd)
}

func (h *Handler) handleHealth(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, Health{
		Connected: h.relay.IsLive(h.window),
		Pending:   h.relay.Pending(),
	})
}

func (h *Handler) handleResult(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, MaxBodyBytes))
	if err != nil {
		h.logger.Debug("result body rejected", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var res ir.Result
	if err := json.Unmarshal(body, &res); err != nil {
		h.logger.Debug("malformed result", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.relay.PostResult(res); err != nil {
		if relay.IsMissingID(err) {
			h.logger.Debug("result without id")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.logger.Error("posting result", "id", res.ID, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.logger.Debug("result received", "id", res.ID, "ok", res.OK)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func setCORS(w http.ResponseWriter) {
	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	hdr.Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Debug("writing response", "error", err)
	}
}
