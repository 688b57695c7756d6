package gitutil

import (
	"context"
	"log/slog"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/forge"
)

// ConfigResolver loads a repository's job configuration from the
// commit an event points at, so a PR is judged against its own version
// of the file rather than the default branch's.
type ConfigResolver struct {
	cloner *Client
	logger *slog.Logger
}

func NewConfigResolver(cloner *Client, logger *slog.Logger) *ConfigResolver {
	return &ConfigResolver{cloner: cloner, logger: logger}
}

func (r *ConfigResolver) JobsFor(ctx context.Context, ev events.Event) (*config.JobsConfig, error) {
	if ev.ProjectURL() == "" {
		return nil, config.ErrJobsConfigNotFound
	}

	path, cleanup, err := r.cloner.Clone(ctx, forge.CloneURL(ev.ProjectURL()), ev.CommitSHA())
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return config.LoadJobsConfig(path)
}
