package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name           string
		err            *NanocodeError
		expectedCode   int
		expectedType   ErrorType
		expectedDetail string
		expectedFields []string
	}{
		{
			name:           "validation error",
			err:            NewValidationError("test-id", DetailEmptyInput, nil),
			expectedCode:   http.StatusUnprocessableEntity,
			expectedType:   ValidationError,
			expectedDetail: "Request input cannot be empty",
			expectedFields: []string{"type", "detail", "request_id"},
		},
		{
			name:           "upstream error with details",
			err:            NewUpstreamError("test-id", 500, nil),
			expectedCode:   http.StatusBadGateway,
			expectedType:   UpstreamError,
			expectedDetail: "Upstream model error: 500",
			expectedFields: []string{"type", "detail", "request_id", "details"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			WriteError(rr, tt.err)

			assert.Equal(t, tt.expectedCode, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var raw map[string]interface{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
			for _, field := range tt.expectedFields {
				assert.Contains(t, raw, field)
			}

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedType, resp.Type)
			assert.Equal(t, tt.expectedDetail, resp.Detail)
		})
	}
}
