// Package app initializes and orchestrates the main components of the
// service: the queue, the dispatcher, and the HTTP server.
package app

import (
	"context"
	"log/slog"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/db"
	"github.com/forgebot/forgebot/internal/dispatch"
	"github.com/forgebot/forgebot/internal/metrics"
	"github.com/forgebot/forgebot/internal/queue"
	"github.com/forgebot/forgebot/internal/server"
	"github.com/forgebot/forgebot/internal/storage"
)

// App holds the main application components. Store, Queue and
// Dispatcher are exported for the CLI, which drives them directly
// instead of going through the HTTP surface.
type App struct {
	Store      storage.Store
	Queue      *queue.Queue
	Dispatcher *dispatch.Dispatcher

	ctx     context.Context
	cfg     *config.Config
	server  *server.Server
	metrics *metrics.Metrics
	dbConn  *db.DB
	logger  *slog.Logger
}

// NewApp assembles the application from its wired components.
func NewApp(
	ctx context.Context,
	cfg *config.Config,
	srv *server.Server,
	store storage.Store,
	q *queue.Queue,
	dispatcher *dispatch.Dispatcher,
	m *metrics.Metrics,
	dbConn *db.DB,
	logger *slog.Logger,
) *App {
	return &App{
		Store:      store,
		Queue:      q,
		Dispatcher: dispatcher,
		ctx:        ctx,
		cfg:        cfg,
		server:     srv,
		metrics:    m,
		dbConn:     dbConn,
		logger:     logger,
	}
}

// Start launches the worker pool and then serves HTTP until shutdown.
func (a *App) Start() error {
	a.logger.Info("starting forgebot",
		"deployment", a.cfg.Deployment,
		"server_port", a.cfg.Server.Port,
		"queue_workers", a.cfg.Queue.Workers)

	a.Queue.Start(a.ctx)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts the application down in dependency order: no new
// requests, then no new task runs, then a final metrics push.
func (a *App) Stop() error {
	a.logger.Info("shutting down forgebot")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
	}

	a.Queue.Stop()

	if a.cfg.Metrics.PushgatewayURL != "" {
		if err := a.metrics.Push(a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.JobName); err != nil {
			a.logger.Error("final metrics push failed", "error", err)
		}
	}

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("forgebot stopped")
	return nil
}
