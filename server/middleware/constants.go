package middleware

type contextKey string

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	RequestIDKey contextKey = "request_id"
)
