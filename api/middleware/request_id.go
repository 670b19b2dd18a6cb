package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
)

const (
	requestIDHeader    = "X-Request-Id"
	cloudTraceHeader   = "X-Cloud-Trace-Context"
	maxRequestIDLength = 128
)

// RequestID tags each request with an id taken from X-Request-Id, then the
// Cloud Load Balancer trace header, then a fresh UUID.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := inboundRequestID(r)
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func inboundRequestID(r *http.Request) string {
	if id := cleanRequestID(r.Header.Get(requestIDHeader)); id != "" {
		return id
	}
	// TRACE_ID/SPAN_ID;o=OPTIONS
	trace, _, _ := strings.Cut(r.Header.Get(cloudTraceHeader), "/")
	if id := cleanRequestID(trace); id != "" {
		return id
	}
	return uuid.NewString()
}

func cleanRequestID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxRequestIDLength {
		return ""
	}
	for _, c := range raw {
		if c < 0x21 || c > 0x7e {
			return ""
		}
	}
	return raw
}
