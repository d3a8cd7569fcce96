package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TwigBush/taskmarket/internal/config"
	"github.com/TwigBush/taskmarket/internal/di"
	"github.com/TwigBush/taskmarket/internal/handlers"
	"github.com/TwigBush/taskmarket/internal/server"
)

// runServer is swapped out in tests.
var runServer = server.Run

func cmdServe() *cobra.Command {
	var port string
	var store string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the task marketplace API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			if store != "" {
				cfg.Store = store
			}
			slog.SetDefault(newLogger(cfg.Log))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	c.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")
	c.Flags().StringVar(&store, "store", "", "task store: mongo|memory")
	return c
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := di.ProvideStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("task store: %w", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(cctx); err != nil {
			slog.Warn("close task store", "err", err)
		}
	}()

	// An unreachable database is reported but does not stop the API from
	// serving; requests fail individually until it comes back.
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := store.Ping(pctx); err != nil {
		slog.Error("task store ping failed", "store", cfg.Store, "err", err)
	} else {
		slog.Info("task store connected", "store", cfg.Store)
	}
	cancel()

	verifier, err := di.ProvideVerifier(cfg)
	if err != nil {
		return fmt.Errorf("verifier: %w", err)
	}
	az, err := di.ProvideAuthorizer(cfg)
	if err != nil {
		return fmt.Errorf("authorizer: %w", err)
	}

	h := server.BuildRouter(server.Deps{
		Store:      store,
		Verifier:   verifier,
		Authorizer: az,
		Policy:     handlers.OwnerPolicy{Strict: cfg.Auth.StrictOwnership},
	}, server.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	slog.Info("starting taskmarket",
		"addr", cfg.Addr(),
		"env", cfg.Env,
		"auth", cfg.Auth.Mode,
		"authz", cfg.Authz.Mode,
		"strict_ownership", cfg.Auth.StrictOwnership,
	)
	return runServer(ctx, cfg.Addr(), h)
}

func newLogger(c config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Level)}
	if c.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
