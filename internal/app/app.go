// Package app initializes and orchestrates the main components of the engine.
// It wires together the configuration, stores, ingestion pipeline, and server.
package app

import (
	"context"
	"log/slog"

	"github.com/reelforge/hookrelay/internal/config"
	"github.com/reelforge/hookrelay/internal/db"
	"github.com/reelforge/hookrelay/internal/jobs"
	"github.com/reelforge/hookrelay/internal/jobstate"
	"github.com/reelforge/hookrelay/internal/server"
	"github.com/reelforge/hookrelay/internal/storage"
)

// App holds the main application components.
type App struct {
	ctx        context.Context
	cancel     context.CancelFunc
	cfg        *config.Config
	server     *server.Server
	logger     *slog.Logger
	dispatcher *jobs.Dispatcher
	jobState   *jobstate.Store
	dbConn     *db.DB

	// Store is exposed for the operator CLI.
	Store storage.Store
}

// New assembles an App from already-constructed components. Construction of
// the graph itself lives in the wire package.
func New(ctx context.Context, cfg *config.Config, srv *server.Server, dispatcher *jobs.Dispatcher,
	jobState *jobstate.Store, store storage.Store, dbConn *db.DB, logger *slog.Logger) *App {

	ctx, cancel := context.WithCancel(ctx)
	return &App{
		ctx:        ctx,
		cancel:     cancel,
		cfg:        cfg,
		server:     srv,
		logger:     logger,
		dispatcher: dispatcher,
		jobState:   jobState,
		dbConn:     dbConn,
		Store:      store,
	}
}

// Start runs the evictor and the HTTP server. It blocks until the server
// stops.
func (a *App) Start() error {
	a.logger.Info("starting hookrelay",
		"server_port", a.cfg.ServerPort,
		"max_workers", a.cfg.MaxWorkers)

	a.jobState.StartEvictor(a.ctx)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly: server first so no new events
// arrive, then the dispatcher so in-flight generation finishes, then the
// evictor and database.
func (a *App) Stop() error {
	a.logger.Info("shutting down hookrelay services")

	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	a.dispatcher.Stop()
	a.cancel()

	a.logger.Info("closing database connection")
	if err := a.dbConn.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}

	if serverErr != nil {
		return serverErr
	}

	a.logger.Info("hookrelay stopped successfully")
	return nil
}
