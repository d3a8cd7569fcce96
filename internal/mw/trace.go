package mw

import (
	"net/http"

	"github.com/TwigBush/taskmarket/internal/trace"
	"github.com/go-chi/chi/v5/middleware"
)

// Trace reuses an inbound trace id, falling back to chi's request id and then
// to a fresh one, and echoes it on the response.
func Trace() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(trace.Header)
			if id == "" {
				id = middleware.GetReqID(r.Context())
			}
			if id == "" {
				id = trace.NewID()
			}
			w.Header().Set(trace.Header, id)
			next.ServeHTTP(w, r.WithContext(trace.With(r.Context(), id)))
		})
	}
}
