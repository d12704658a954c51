package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/nanocode-local/nanocode/errors"
	"github.com/nanocode-local/nanocode/server/middleware"
	"github.com/nanocode-local/nanocode/server/modelclient"
	"github.com/nanocode-local/nanocode/server/processing"
	"go.uber.org/zap"
)

// Generator forwards a rendered prompt to the model server.
// *modelclient.Client implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string, extra map[string]interface{}) (map[string]interface{}, error)
}

// NanocodeHandler serves POST /nanocode: validate, render, forward,
// normalize.
type NanocodeHandler struct {
	processor *processing.Processor
	client    Generator
	logger    *zap.Logger
}

// NewNanocodeHandler creates the handler. All arguments are required.
func NewNanocodeHandler(processor *processing.Processor, client Generator, logger *zap.Logger) *NanocodeHandler {
	return &NanocodeHandler{
		processor: processor,
		client:    client,
		logger:    logger,
	}
}

// ServeHTTP implements http.Handler.
//
// Error mapping:
//   - malformed body or blank input: 422
//   - model server non-2xx: 502 "Upstream model error: <code>"
//   - model server unreachable or slow: 503 "Model server unavailable"
//   - model server 2xx with a non-object body: 502
func (h *NanocodeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	logger := h.logger.With(zap.String("request_id", requestID))

	var req processing.GenerationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, logger, errors.NewValidationError(requestID, errors.DetailInvalidBody, nil), err)
		return
	}

	if err := processing.Validate(req); err != nil {
		h.fail(w, logger, errors.NewValidationError(requestID, errors.DetailEmptyInput, map[string]interface{}{
			"field": "input",
		}), err)
		return
	}

	prompt, err := h.processor.Render(req)
	if err != nil {
		h.fail(w, logger, errors.NewInternalError(requestID, err), err)
		return
	}

	start := time.Now()
	raw, err := h.client.Generate(r.Context(), prompt, nil)
	if err != nil {
		h.fail(w, logger, upstreamError(requestID, err), err)
		return
	}

	logger.Debug("generation completed",
		zap.Duration("upstream_duration", time.Since(start)),
		zap.Int("constraints", len(req.Constraints)),
	)

	writeJSON(w, logger, http.StatusOK, processing.Normalize(req, prompt, raw))
}

func (h *NanocodeHandler) fail(w http.ResponseWriter, logger *zap.Logger, nerr *errors.NanocodeError, cause error) {
	errors.LogError(logger, nerr, nerr.RequestID)
	if nerr.Unwrap() == nil && cause != nil {
		logger.Debug("request rejected", zap.Error(cause))
	}
	errors.WriteError(w, nerr)
}

// upstreamError maps a modelclient error to the client-facing error.
func upstreamError(requestID string, err error) *errors.NanocodeError {
	var upstream *modelclient.UpstreamError
	var unavailable *modelclient.UnavailableError
	switch {
	case errors.As(err, &upstream):
		return errors.NewUpstreamError(requestID, upstream.StatusCode, err)
	case errors.As(err, &unavailable):
		return errors.NewUnavailableError(requestID, err)
	case errors.Is(err, modelclient.ErrInvalidResponse):
		return errors.NewInvalidUpstreamResponseError(requestID, err)
	default:
		return errors.NewInternalError(requestID, err)
	}
}
