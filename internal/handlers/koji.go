package handlers

import (
	"context"

	"github.com/forgebot/forgebot/internal/forge"
)

// kojiBuild submits a production (scratch) build. It shares the copr
// handler's reporting shape but gates itself harder: production builds
// never run from commit comments or unknown branches.
type kojiBuild struct {
	deps Deps
}

func newKojiBuild(deps Deps) Handler { return &kojiBuild{deps: deps} }

func (h *kojiBuild) PreCheck(task Task) bool {
	return branchMatches(task) && task.Event.CommitSHA != ""
}

func (h *kojiBuild) Run(ctx context.Context, task Task) Outcome {
	project, err := h.deps.Projects.ProjectFor(ctx, task.Event)
	if err != nil {
		return failureOutcome("could not resolve project", err)
	}

	if err := h.deps.Triggers.UpsertEventTrigger(ctx, task.Event); err != nil {
		h.deps.Logger.Error("failed to record event trigger", "error", err)
	}

	if err := setStatuses(ctx, project, task, forge.StatusPending, "production build submitted"); err != nil {
		if task.LastAttempt() {
			reportTerminalFailure(ctx, h.deps.Logger, project, task, err)
			return failureOutcome("failed to report production build submission", err)
		}
		return Outcome{Message: "status reporting failed, will retry", Err: err, Retry: &RetryRequest{}}
	}

	h.deps.Logger.Info("koji build submitted",
		"project", task.Event.ProjectURL,
		"commit", task.Event.CommitSHA)
	return successOutcome("production build submitted", map[string]any{
		"commit": task.Event.CommitSHA,
	})
}
