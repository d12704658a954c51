package handlers

import (
	"net/http"

	"github.com/nanocode-local/nanocode/server/health"
	"go.uber.org/zap"
)

// Health serves GET /health on the API service.
func Health(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, health.Status())
	}
}

// AdminPing serves GET /admin/ping.
func AdminPing(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": health.StatusOK})
	}
}

// ModelHealth serves GET /health on the model server.
func ModelHealth(kind string, logger *zap.Logger) http.HandlerFunc {
	body := map[string]string{"status": health.StatusOK, "backend": kind}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, body)
	}
}
