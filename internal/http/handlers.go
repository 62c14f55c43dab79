package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherbot/internal/lifecycle"
	"github.com/kjstillabower/weatherbot/internal/observability"
	"github.com/kjstillabower/weatherbot/internal/traffic"
	"github.com/kjstillabower/weatherbot/internal/validation"
)

// trafficWindow is the outcome window reported under checks.traffic.
const trafficWindow = time.Minute

// maxFormMemory bounds the in-memory part of a multipart chat form.
const maxFormMemory = 1 << 20

// Responder produces one chat reply. *router.Router satisfies it.
type Responder interface {
	Reply(ctx context.Context, text string) (string, error)
}

// HealthConfig describes what was loaded at start for the health handler.
type HealthConfig struct {
	StartTime        time.Time
	Cities           int
	Conversations    int
	GeneratorBackend string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	chat             Responder
	healthConfig     *HealthConfig
	logger           *zap.Logger
	maxMessageLength int
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. maxMessageLength bounds the msg field in runes.
func NewHandler(chat Responder, healthConfig *HealthConfig, logger *zap.Logger, maxMessageLength int) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chat:             chat,
		healthConfig:     healthConfig,
		logger:           logger,
		maxMessageLength: maxMessageLength,
	}
}

// PostChat handles POST /get. The msg form field is the user's utterance, sent
// urlencoded or multipart; the reply is written as a JSON string.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, r, http.StatusBadRequest, "INVALID_FORM", "request body is not a valid form")
		return
	}
	msg, err := validation.ValidateMessage(r.PostForm.Get("msg"), h.maxMessageLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_MESSAGE", err.Error())
		return
	}

	reply, err := h.chat.Reply(r.Context(), msg)
	if err != nil {
		traffic.Record(traffic.Failed)
		writeChatError(w, r, err)
		return
	}
	traffic.Record(traffic.Answered)
	writeJSON(w, http.StatusOK, reply)
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	phase := lifecycle.CurrentPhase()
	status := phase.String()
	statusCode := http.StatusOK
	if phase != lifecycle.PhaseReady {
		statusCode = http.StatusServiceUnavailable
	}

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", status))
	}
	h.healthStatusPrev = status
	h.healthStatusMu.Unlock()

	resp := map[string]interface{}{
		"status":    status,
		"service":   "weatherbot",
		"version":   "dev",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil {
		resp["checks"] = map[string]interface{}{
			"cities":        h.healthConfig.Cities,
			"conversations": h.healthConfig.Conversations,
			"generator":     h.healthConfig.GeneratorBackend,
			"traffic":       traffic.Window(trafficWindow),
		}
		if !h.healthConfig.StartTime.IsZero() {
			resp["uptime"] = time.Since(h.healthConfig.StartTime).Round(time.Second).String()
		}
	}
	writeJSON(w, statusCode, resp)
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeChatError maps a failed turn to 504 when the request deadline fired and 500 otherwise.
// The underlying error is logged, never echoed to the caller.
func writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context(), nil)
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("chat turn timed out", zap.Error(err))
		writeError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Timed out producing a reply")
		return
	}
	logger.Error("chat turn failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "CHAT_FAILED", "Unable to produce a reply")
}
