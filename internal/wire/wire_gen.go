// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/reelforge/hookrelay/internal/app"
	"github.com/reelforge/hookrelay/internal/command"
	"github.com/reelforge/hookrelay/internal/config"
	"github.com/reelforge/hookrelay/internal/db"
	"github.com/reelforge/hookrelay/internal/ingest"
	"github.com/reelforge/hookrelay/internal/jobs"
	"github.com/reelforge/hookrelay/internal/jobstate"
	"github.com/reelforge/hookrelay/internal/ledger"
	"github.com/reelforge/hookrelay/internal/logger"
	"github.com/reelforge/hookrelay/internal/pipeline"
	"github.com/reelforge/hookrelay/internal/server"
	"github.com/reelforge/hookrelay/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	var logWriter io.Writer
	switch cfg.Logging.Output {
	case "stderr":
		logWriter = os.Stderr
	default:
		logWriter = os.Stdout
	}
	log := logger.NewLogger(cfg.Logging, logWriter)

	dbConn, dbCleanup, err := db.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := storage.NewStore(dbConn.DB)
	deliveries := ledger.New(store, log)
	jobState := jobstate.NewStore(store, log,
		jobstate.WithSyncTimeout(cfg.SyncTimeout),
		jobstate.WithRetention(cfg.JobRetention),
	)

	generator := pipeline.NewClient(cfg.PipelineURL, log)
	generateJob := jobs.NewGenerateJob(generator, jobState, store, log)
	dispatcher := jobs.NewDispatcher(generateJob, cfg.MaxWorkers, log)

	parser := command.NewParser(cfg.BotHandle)
	router := ingest.NewRouter(parser, jobState, dispatcher, store, log)
	srv := server.NewServer(ctx, cfg, deliveries, router, log)

	a := app.New(ctx, cfg, srv, dispatcher, jobState, store, dbConn, log)

	cleanup := func() {
		dbCleanup()
	}
	return a, cleanup, nil
}
