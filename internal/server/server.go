// Package server exposes a session over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/finqa/internal/agent"
	"github.com/cleared-dev/finqa/internal/dataset"
	"github.com/cleared-dev/finqa/internal/tables"
	"github.com/cleared-dev/finqa/internal/trace"
)

// Asker answers questions; *agent.Session implements it.
type Asker interface {
	Ask(ctx context.Context, question string) (*agent.Outcome, error)
}

// Explorer describes datasets; *dataset.Dataset implements it.
type Explorer interface {
	SchemaSummary(name tables.Name) (dataset.TableSummary, error)
}

// TraceSource lists trace entries; *trace.Log implements it.
type TraceSource interface {
	Entries() []trace.Entry
}

// Dependencies are the collaborators behind the routes. OnOutcome, when set,
// runs after every answered question.
type Dependencies struct {
	Session   Asker
	Data      Explorer
	Trace     TraceSource
	OnOutcome func(ctx context.Context, out *agent.Outcome)
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

// WebAPI is the HTTP server.
type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewWebAPI builds the router.
func NewWebAPI(logger zerolog.Logger, config Config) *WebAPI {
	h := &handler{deps: config.Dependencies}

	router := chi.NewRouter()
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", h.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", h.ask)
		r.Get("/datasets", h.datasets)
		r.Get("/datasets/{name}", h.dataset)
		r.Get("/trace", h.trace)
	})

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: timeout,
	}
}

// Handler returns the router.
func (w *WebAPI) Handler() http.Handler {
	return w.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (w *WebAPI) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		w.logger.Info().Msg("shutdown initiated")

		sctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(sctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}
		return err
	}
}
