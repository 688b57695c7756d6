package wire

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/wire"

	"github.com/forgebot/forgebot/internal/allowlist"
	"github.com/forgebot/forgebot/internal/app"
	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/db"
	"github.com/forgebot/forgebot/internal/dispatch"
	"github.com/forgebot/forgebot/internal/forge"
	"github.com/forgebot/forgebot/internal/gitutil"
	"github.com/forgebot/forgebot/internal/handlers"
	"github.com/forgebot/forgebot/internal/identity"
	"github.com/forgebot/forgebot/internal/logger"
	"github.com/forgebot/forgebot/internal/metrics"
	"github.com/forgebot/forgebot/internal/queue"
	"github.com/forgebot/forgebot/internal/server"
	"github.com/forgebot/forgebot/internal/storage"
)

var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	config.LoadConfig,
	db.NewDatabase,
	storage.NewStore,
	metrics.New,
	handlers.NewDefaultRegistry,
	provideSlogLogger,
	provideLoggerConfig,
	provideLogWriter,
	provideDBConfig,
	provideGate,
	provideGitClient,
	provideConfigResolver,
	provideForgeResolver,
	provideHandlerDeps,
	provideQueue,
	provideDispatcher,
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	switch cfg.Logging.Output {
	case "stderr":
		return os.Stderr
	case "file":
		f, _ := os.OpenFile("forgebot.log", os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		return f
	default:
		return os.Stdout
	}
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}

func provideDBConfig(cfg *config.Config) *config.DBConfig {
	return cfg.Database
}

func provideGate(cfg *config.Config, store storage.Store, slogLogger *slog.Logger) *allowlist.Allowlist {
	return allowlist.New(cfg.Gate, store, slogLogger)
}

func provideGitClient(cfg *config.Config, slogLogger *slog.Logger) *gitutil.Client {
	return gitutil.NewClient(slogLogger, cfg.GitHub.Token)
}

func provideConfigResolver(gitClient *gitutil.Client, slogLogger *slog.Logger) dispatch.ConfigResolver {
	return gitutil.NewConfigResolver(gitClient, slogLogger)
}

// provideForgeResolver prefers the app installation; a personal access
// token is the fallback for deployments without an app.
func provideForgeResolver(cfg *config.Config, slogLogger *slog.Logger) forge.Resolver {
	if cfg.GitHub.AppID != 0 {
		return forge.NewAppResolver(cfg, slogLogger)
	}
	return forge.NewPATResolver(cfg.GitHub.Token, slogLogger)
}

func provideHandlerDeps(
	cfg *config.Config,
	projects forge.Resolver,
	store storage.Store,
	gitClient *gitutil.Client,
	slogLogger *slog.Logger,
) handlers.Deps {
	return handlers.Deps{
		Logger:    slogLogger,
		Projects:  projects,
		Allowlist: store,
		Triggers:  store,
		Identity:  identity.NewClient(cfg.Identity.BaseURL, slogLogger),
		Cloner:    gitClient,
	}
}

func provideQueue(
	cfg *config.Config,
	registry *handlers.Registry,
	deps handlers.Deps,
	store storage.Store,
	m *metrics.Metrics,
	slogLogger *slog.Logger,
) *queue.Queue {
	return queue.New(cfg.Queue.Workers, cfg.Queue.Size, registry, deps, store, m, slogLogger)
}

func provideDispatcher(
	cfg *config.Config,
	registry *handlers.Registry,
	gate *allowlist.Allowlist,
	configs dispatch.ConfigResolver,
	projects forge.Resolver,
	q *queue.Queue,
	deps handlers.Deps,
	m *metrics.Metrics,
	slogLogger *slog.Logger,
) *dispatch.Dispatcher {
	return dispatch.NewDispatcher(registry, gate, configs, projects, q, deps, m, slogLogger, cfg.Gate, cfg.Queue.MaxRetries)
}
