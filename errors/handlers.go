package errors

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// ErrorHandler recovers panics from next and answers with an InternalError.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					requestID := w.Header().Get("X-Request-ID")
					logger.Error("panic recovered",
						zap.Any("error", err),
						zap.ByteString("stacktrace", debug.Stack()),
						zap.String("request_id", requestID),
					)
					WriteError(w, NewInternalError(requestID, nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// LogError logs err with its request context. 4xx errors are logged at
// warn level, everything else at error level.
func LogError(logger *zap.Logger, err error, requestID string) {
	var nerr *NanocodeError
	if As(err, &nerr) {
		fields := []zap.Field{
			zap.String("error_type", string(nerr.Type)),
			zap.String("detail", nerr.Detail),
			zap.Int("code", nerr.Code),
			zap.String("request_id", requestID),
		}
		if nerr.Details != nil {
			fields = append(fields, zap.Any("details", nerr.Details))
		}
		if cause := nerr.Unwrap(); cause != nil {
			fields = append(fields, zap.NamedError("cause", cause))
		}
		if nerr.Code < http.StatusInternalServerError {
			logger.Warn("request error", fields...)
			return
		}
		logger.Error("request error", fields...)
		return
	}

	logger.Error("unexpected error",
		zap.Error(err),
		zap.String("request_id", requestID),
	)
}
