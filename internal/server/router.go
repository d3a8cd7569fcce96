package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/TwigBush/taskmarket/internal/authz"
	"github.com/TwigBush/taskmarket/internal/handlers"
	"github.com/TwigBush/taskmarket/internal/identity"
	"github.com/TwigBush/taskmarket/internal/mw"
	"github.com/TwigBush/taskmarket/internal/task"
)

type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

type Deps struct {
	Store      task.Store
	Verifier   identity.Verifier
	Authorizer authz.Authorizer
	Policy     handlers.OwnerPolicy
}

func BuildRouter(d Deps, opts Options, extra ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	// baseline
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"X-Trace-ID"},
		MaxAge:         300,
	}))
	for _, m := range extra {
		r.Use(m)
	}

	// tracing + logger
	r.Use(mw.Trace())
	r.Use(mw.Logger(mw.LogOpts{
		SkipPaths:     []string{"/healthz", "/version"},
		RedactHeaders: []string{"Authorization", "Cookie"},
	}))

	tasks := handlers.NewTaskHandler(d.Store, d.Authorizer, d.Policy)
	auth := mw.Authenticate(d.Verifier)

	r.Get("/", handlers.Root)
	r.Get("/healthz", handlers.Health(d.Store, 2*time.Second))
	r.Get("/version", handlers.Version)

	r.Get("/featured-tasks", tasks.Featured)

	r.Route("/tasks", func(tr chi.Router) {
		tr.Get("/", tasks.List)
		tr.With(auth).Post("/", tasks.Create)
		tr.Get("/{id}", tasks.Get)
		tr.Patch("/bid/{id}", tasks.Bid)
	})

	r.Route("/my-tasks", func(mr chi.Router) {
		mr.Use(auth)
		mr.Get("/", tasks.ListMine)
		mr.Get("/{id}", tasks.GetMine)
		mr.Put("/{id}", tasks.UpdateMine)
		mr.Delete("/{id}", tasks.DeleteMine)
	})

	return r
}
