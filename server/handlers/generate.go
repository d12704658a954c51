package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/nanocode-local/nanocode/errors"
	"github.com/nanocode-local/nanocode/server/backend"
	"github.com/nanocode-local/nanocode/server/metrics"
	"github.com/nanocode-local/nanocode/server/middleware"
	"go.uber.org/zap"
)

// GenerateRequest is the body of POST /generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateResponse is the model server reply.
type GenerateResponse struct {
	Output   string                 `json:"output"`
	Metadata map[string]interface{} `json:"metadata"`
}

// GenerateHandler serves POST /generate on the model server.
type GenerateHandler struct {
	backend backend.Backend
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewGenerateHandler creates the handler. m may be nil.
func NewGenerateHandler(b backend.Backend, m *metrics.Metrics, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{backend: b, metrics: m, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("backend", string(h.backend.Kind())),
	)

	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		nerr := errors.NewValidationError(requestID, errors.DetailInvalidBody, nil)
		errors.LogError(logger, nerr, requestID)
		errors.WriteError(w, nerr)
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		nerr := errors.NewBadRequestError(requestID, errors.DetailEmptyPrompt)
		errors.LogError(logger, nerr, requestID)
		errors.WriteError(w, nerr)
		return
	}

	start := time.Now()
	res, err := h.backend.Generate(r.Context(), prompt)
	if err != nil {
		nerr, outcome := h.backendError(requestID, err)
		h.record(outcome, nil)
		errors.LogError(logger, nerr, requestID)
		errors.WriteError(w, nerr)
		return
	}
	h.record(metrics.OutcomeSuccess, res.Usage)

	logger.Debug("backend generation completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("output_length", len(res.Output)),
	)

	metadata := res.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	writeJSON(w, logger, http.StatusOK, GenerateResponse{Output: res.Output, Metadata: metadata})
}

func (h *GenerateHandler) backendError(requestID string, err error) (*errors.NanocodeError, string) {
	if errors.Is(err, backend.ErrNotImplemented) {
		return errors.NewNotImplementedError(requestID, err), metrics.OutcomeNotImplemented
	}
	var be *backend.BackendError
	if errors.As(err, &be) {
		return errors.NewBackendError(requestID, be.Backend, be.Err), metrics.OutcomeBackendError
	}
	return errors.NewBackendError(requestID, h.backend.Name(), err), metrics.OutcomeBackendError
}

func (h *GenerateHandler) record(outcome string, usage *backend.Usage) {
	if h.metrics == nil {
		return
	}
	kind := string(h.backend.Kind())
	h.metrics.Generations.WithLabelValues(kind, outcome).Inc()
	if usage != nil {
		h.metrics.GeneratedTokens.WithLabelValues(kind, "prompt").Add(float64(usage.PromptTokens))
		h.metrics.GeneratedTokens.WithLabelValues(kind, "completion").Add(float64(usage.CompletionTokens))
	}
}
