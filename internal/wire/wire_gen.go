// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/forgebot/forgebot/internal/app"
	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/db"
	"github.com/forgebot/forgebot/internal/handlers"
	"github.com/forgebot/forgebot/internal/metrics"
	"github.com/forgebot/forgebot/internal/server"
	"github.com/forgebot/forgebot/internal/storage"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := provideSlogLogger(provideLoggerConfig(cfg), provideLogWriter(cfg))

	dbConn, dbCleanup, err := db.NewDatabase(provideDBConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := storage.NewStore(dbConn.DB)
	m := metrics.New()
	registry := handlers.NewDefaultRegistry()

	gitClient := provideGitClient(cfg, slogLogger)
	configResolver := provideConfigResolver(gitClient, slogLogger)
	projects := provideForgeResolver(cfg, slogLogger)
	deps := provideHandlerDeps(cfg, projects, store, gitClient, slogLogger)
	gate := provideGate(cfg, store, slogLogger)

	q := provideQueue(cfg, registry, deps, store, m, slogLogger)
	dispatcher := provideDispatcher(cfg, registry, gate, configResolver, projects, q, deps, m, slogLogger)

	srv := server.NewServer(ctx, cfg, dispatcher, m, slogLogger)

	application := app.NewApp(ctx, cfg, srv, store, q, dispatcher, m, dbConn, slogLogger)

	cleanup := func() {
		dbCleanup()
	}
	return application, cleanup, nil
}
