// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/trellis/internal/api"
	"github.com/starford/trellis/internal/graphservice"
	"github.com/starford/trellis/internal/sse"
	"github.com/starford/trellis/internal/store"
	"github.com/starford/trellis/internal/store/filestore"
	"github.com/starford/trellis/internal/store/sqlitestore"
)

const shutdownTimeout = 10 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger and installs it as the default.
func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openRepository opens the configured record backend. fs is non-nil only for
// the files backend.
func openRepository(cfg StoreConfig) (repo store.Repository, fs *filestore.FS, err error) {
	switch cfg.Backend {
	case store.BackendFiles:
		fs, err = filestore.New(cfg.Files.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("init file store: %w", err)
		}
		return fs, fs, nil
	case store.BackendSQLite, "":
		db, err := sqlitestore.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return db, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func (a *application) newService(repo store.Repository, logger *slog.Logger, extra ...graphservice.Option) *graphservice.Service {
	opts := []graphservice.Option{
		graphservice.WithLogger(logger),
		graphservice.WithGraphOptions(a.graphOpt...),
	}
	return graphservice.New(repo, append(opts, extra...)...)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("sqlite_path", cfg.Store.SQLite.Path),
		slog.String("files_dir", cfg.Store.Files.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	repo, fs, err := openRepository(cfg.Store)
	if err != nil {
		return err
	}
	defer repo.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := app.newService(repo, logger, graphservice.WithEventCallback(broker.PublishChange))

	// Initial load. A failing store leaves an empty graph; the error is
	// visible in /health/ready until a reload succeeds.
	if rep, err := svc.Reload(ctx); err != nil {
		logger.Warn("initial load failed", slog.String("error", err.Error()))
	} else {
		logger.Info("Graph loaded",
			slog.Int("nodes", rep.NodesInserted),
			slog.Int("edges", rep.EdgesInserted),
			slog.Int("dropped_edges", len(rep.DroppedEdges)))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", readyHandler(svc))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload when the record files are edited outside the server.
	if fs != nil && cfg.Store.Files.Watch {
		g.Go(func() error {
			err := filestore.Watch(gCtx, fs, filestore.DefaultDebounce, logger, func(changed []string) {
				logger.Info("record files changed, reloading", slog.Any("files", changed))
				_, ok, err := svc.ReloadIfClean(gCtx)
				switch {
				case err != nil:
					logger.Error("reload after change failed", slog.String("error", err.Error()))
				case !ok:
					logger.Warn("record files changed but the graph has unsaved changes; not reloading",
						slog.Any("files", changed))
				}
			})
			if err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Returning an error cancels gCtx so the watcher stops too.
		return errShutdown
	})

	err = g.Wait()
	flushOnExit(svc, logger)

	if err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown requested")

// flushOnExit saves unsaved changes before the process exits. It does
// nothing while the last load has failed, since the store then holds data
// the in-memory graph does not.
func flushOnExit(svc *graphservice.Service, logger *slog.Logger) {
	st := svc.Status()
	if !st.Dirty {
		return
	}
	if st.LoadError != "" {
		logger.Warn("unsaved changes not written: store failed to load", slog.String("error", st.LoadError))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Save(ctx); err != nil {
		logger.Error("save on shutdown failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("Unsaved changes written on shutdown")
}

// readyHandler reports 200 with the graph status once the store has loaded,
// and 503 while the last load has failed.
func readyHandler(svc *graphservice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st := svc.Status()
		code, status := http.StatusOK, "ok"
		if st.LoadError != "" {
			code, status = http.StatusServiceUnavailable, "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "graph": st})
	}
}
