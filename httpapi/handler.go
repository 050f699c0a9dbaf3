package httpapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/krisalay/qrstore/api"
	"github.com/krisalay/qrstore/types"
)

//go:embed static/index.html
var indexHTML []byte

// maxBodyBytes bounds POST bodies; QR payloads are small.
const maxBodyBytes = 64 << 10

// Handler translates HTTP requests into store calls. It is the only place
// that knows about status codes.
type Handler struct {
	store    api.Store
	cooldown time.Duration
	logger   *slog.Logger
}

func NewHandler(store api.Store, cooldown time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, cooldown: cooldown, logger: logger}
}

type writeRequest struct {
	Data json.RawMessage `json:"data"`
}

// Routes returns the application mux. extra handlers (e.g. /metrics) are
// mounted as given.
func (h *Handler) Routes(extra map[string]http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /qr/{id}", h.read)
	mux.HandleFunc("POST /qr/{id}", h.write)

	for pattern, handler := range extra {
		mux.Handle(pattern, handler)
	}

	return withRequestID(withAccessLog(h.logger, mux))
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "err", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) read(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	value, found, err := h.store.Read(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "read failed", err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"data": ""})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"data": string(value)})
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	var req writeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	err := h.store.Write(r.Context(), id, payload(req.Data))

	var rl *types.RateLimitError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"message": fmt.Sprintf("qr %d updated", id),
		})
	case errors.Is(err, types.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing data field"})
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(ceilSeconds(rl.RetryAfter)))
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": fmt.Sprintf("too frequent, retry after %d seconds", ceilSeconds(h.cooldown)),
		})
	default:
		h.internalError(w, r, "write failed", err)
	}
}

// ceilSeconds rounds d up to whole seconds so a client never retries early.
func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg, "path", r.URL.Path, "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

// parseID accepts non-negative decimal integers only.
func parseID(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	return id, err == nil
}

/*
payload turns the raw "data" field into the stored bytes:
- missing or null → nil (the store rejects it)
- a JSON string   → its text
- anything else   → its raw JSON text
*/
func payload(raw json.RawMessage) []byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return append([]byte{}, s...)
	}
	return append([]byte{}, raw...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
