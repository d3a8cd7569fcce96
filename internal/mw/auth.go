package mw

import (
	"log/slog"
	"net/http"

	"github.com/TwigBush/taskmarket/internal/httpx"
	"github.com/TwigBush/taskmarket/internal/identity"
	"github.com/TwigBush/taskmarket/internal/trace"
)

// Authenticate gates a route behind a verified bearer token. On success the
// identity is attached to the request context for the handler.
func Authenticate(v identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := httpx.ExtractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteMessage(w, http.StatusUnauthorized, "No token provided")
				return
			}

			id, err := v.Verify(r.Context(), token)
			if err == nil && id.Subject == "" {
				err = identity.ErrUnauthorized
			}
			if err != nil {
				slog.Warn("token verification failed",
					"trace", trace.From(r.Context()),
					"m", r.Method,
					"path", r.URL.Path,
					"err", err,
				)
				httpx.WriteMessage(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}
