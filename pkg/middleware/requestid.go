package middleware

import (
	"net/http"

	"github.com/quantdesk/quantjobs/pkg/requestid"
)

const requestIDHeader = "X-Request-Id"

// RequestID takes the request ID from the x-request-id header or generates a
// unique one, and injects it into the request's context for consistent access
// across the application layers. The ID is echoed back on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = requestid.Generate()
		}

		ctx := requestid.ToContext(r.Context(), id)
		w.Header().Set(requestIDHeader, id)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
