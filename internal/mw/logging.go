package mw

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/TwigBush/taskmarket/internal/httpx"
	"github.com/TwigBush/taskmarket/internal/trace"
)

type LogOpts struct {
	SkipPaths     []string
	RedactHeaders []string // Authorization is always redacted
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions
}

// Logger writes one summary line per request and a detail line with
// request headers for error responses.
func Logger(opts LogOpts) func(http.Handler) http.Handler {
	redact := map[string]struct{}{"authorization": {}}
	for _, h := range opts.RedactHeaders {
		redact[strings.ToLower(h)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPreflight(r) || slices.Contains(opts.SkipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := httpx.NewRecorder(w)
			next.ServeHTTP(rec, r)
			dur := time.Since(start)
			if rec.Status == 0 {
				rec.Status = http.StatusOK
			}

			slog.Info("req",
				"trace", trace.From(r.Context()),
				"m", r.Method,
				"path", r.URL.Path,
				"status", rec.Status,
				"ms", dur.Milliseconds(),
				"bytes", rec.Bytes,
			)

			if rec.Status >= 400 {
				slog.Error("req_detail",
					"trace", trace.From(r.Context()),
					"m", r.Method, "path", r.URL.Path,
					"status", rec.Status, "ms", dur.Milliseconds(),
					"headers", redactedHeaders(r.Header, redact),
				)
			}
		})
	}
}

func redactedHeaders(hdr http.Header, redact map[string]struct{}) map[string]string {
	h := map[string]string{}
	for k, vv := range hdr {
		if len(vv) == 0 {
			continue
		}
		v := vv[0]
		lk := strings.ToLower(k)
		if _, ok := redact[lk]; ok || strings.HasPrefix(lk, "x-api-key") {
			v = "***redacted***"
		}
		h[k] = v
	}
	return h
}
