//go:build wireinject
// +build wireinject

package wire

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/google/wire"

	"github.com/reelforge/hookrelay/internal/app"
	"github.com/reelforge/hookrelay/internal/command"
	"github.com/reelforge/hookrelay/internal/config"
	"github.com/reelforge/hookrelay/internal/core"
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

func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	wire.Build(
		app.New,
		server.NewServer,
		config.LoadConfig,
		db.NewDatabase,
		ledger.New,
		ingest.NewRouter,
		jobs.NewGenerateJob,
		provideStore,
		provideParser,
		provideGenerator,
		provideDispatcher,
		provideJobState,
		provideLoggerConfig,
		provideLogWriter,
		provideSlogLogger,
		provideDBConfig,
		provideCoreJob,
		provideCoreDispatcher,
		provideDeliveryStore,
		provideEntryStore,
		provideEntryUpdater,
	)
	return &app.App{}, nil, nil
}

func provideDBConfig(cfg *config.Config) *config.DBConfig { return &cfg.Database }

func provideLoggerConfig(cfg *config.Config) logger.Config { return cfg.Logging }

func provideLogWriter(cfg *config.Config) io.Writer {
	switch cfg.Logging.Output {
	case "stderr":
		return os.Stderr
	default:
		return os.Stdout
	}
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}

func provideStore(conn *db.DB) storage.Store { return storage.NewStore(conn.DB) }

func provideParser(cfg *config.Config) *command.Parser {
	return command.NewParser(cfg.BotHandle)
}

func provideGenerator(cfg *config.Config, log *slog.Logger) core.Generator {
	return pipeline.NewClient(cfg.PipelineURL, log)
}

func provideDispatcher(job core.Job, cfg *config.Config, log *slog.Logger) *jobs.Dispatcher {
	return jobs.NewDispatcher(job, cfg.MaxWorkers, log)
}

func provideJobState(store storage.Store, cfg *config.Config, log *slog.Logger) *jobstate.Store {
	return jobstate.NewStore(store, log,
		jobstate.WithSyncTimeout(cfg.SyncTimeout),
		jobstate.WithRetention(cfg.JobRetention),
	)
}

func provideCoreJob(j *jobs.GenerateJob) core.Job { return j }

func provideCoreDispatcher(d *jobs.Dispatcher) core.Dispatcher { return d }

func provideDeliveryStore(s storage.Store) ledger.DeliveryStore { return s }

func provideEntryStore(s storage.Store) ingest.EntryStore { return s }

func provideEntryUpdater(s storage.Store) jobs.EntryUpdater { return s }
