// Package middleware provides the HTTP middleware stack.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// contextKey keeps middleware context values from colliding with
// other packages.
type contextKey string

const (
	// RequestIDKey carries the per-request correlation ID.
	RequestIDKey contextKey = "request_id"
	// TraceIDKey carries an upstream trace ID when a proxy supplies one.
	TraceIDKey contextKey = "trace_id"
)

// RequestIDHeader is the request correlation header.
const RequestIDHeader = "X-Request-ID"

// TraceIDHeader is the upstream trace header.
const TraceIDHeader = "X-Trace-ID"

// RequestID ensures every request has a correlation ID. An inbound
// X-Request-ID is honored so IDs stay stable across proxies; otherwise
// a fresh UUID is assigned. The ID is echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		w.Header().Set(RequestIDHeader, requestID)

		if traceID := r.Header.Get(TraceIDHeader); traceID != "" {
			ctx = context.WithValue(ctx, TraceIDKey, traceID)
			w.Header().Set(TraceIDHeader, traceID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID from ctx, or "" if absent.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetTraceID returns the trace ID from ctx, or "" if absent.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}
