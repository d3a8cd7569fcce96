package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/TwigBush/taskmarket/internal/httpx"
	"github.com/TwigBush/taskmarket/internal/task"
	"github.com/TwigBush/taskmarket/internal/version"
)

const rootBanner = "Freelance Marketplace Server!"

func Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, rootBanner)
}

func Version(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, version.Get())
}

type healthResponse struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Version string `json:"version"`
}

// Health reports whether the task store answers a ping within pingTimeout.
func Health(store task.Store, pingTimeout time.Duration) http.HandlerFunc {
	if pingTimeout <= 0 {
		pingTimeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Store: "ok", Version: version.Version}
		code := http.StatusOK
		if err := store.Ping(ctx); err != nil {
			slog.Warn("store ping failed", "err", err)
			resp.Status, resp.Store = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, resp)
	}
}
