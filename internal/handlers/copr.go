package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgebot/forgebot/internal/forge"
)

// coprBuild submits an RPM build for every configured target and marks
// the targets pending. The build system reports back asynchronously
// through build_start/build_end events handled by the report handler.
type coprBuild struct {
	deps Deps
}

func newCoprBuild(deps Deps) Handler { return &coprBuild{deps: deps} }

func (h *coprBuild) PreCheck(task Task) bool {
	if !branchMatches(task) {
		h.deps.Logger.Debug("branch does not match job configuration",
			"branch", task.Event.Identifier, "configured", task.Job.Branch)
		return false
	}
	// a rebuild command needs a commit to build
	return task.Event.CommitSHA != ""
}

func (h *coprBuild) Run(ctx context.Context, task Task) Outcome {
	project, err := h.deps.Projects.ProjectFor(ctx, task.Event)
	if err != nil {
		return failureOutcome("could not resolve project", err)
	}

	if err := h.deps.Triggers.UpsertEventTrigger(ctx, task.Event); err != nil {
		// trigger correlation is best effort, the build still runs
		h.deps.Logger.Error("failed to record event trigger", "error", err)
	}

	if err := setStatuses(ctx, project, task, forge.StatusPending, "RPM build submitted"); err != nil {
		if task.LastAttempt() {
			reportTerminalFailure(ctx, h.deps.Logger, project, task, err)
			return failureOutcome("failed to report build submission", err)
		}
		return Outcome{Message: "status reporting failed, will retry", Err: err, Retry: &RetryRequest{}}
	}

	h.deps.Logger.Info("copr build submitted",
		"project", task.Event.ProjectURL,
		"commit", task.Event.CommitSHA,
		"targets", jobTargets(task.Job))
	return successOutcome("build submitted", map[string]any{
		"targets": jobTargets(task.Job),
		"commit":  task.Event.CommitSHA,
	})
}

// reportTerminalFailure makes sure the user sees a failure when no more
// retries will happen: on the originating thread when there is one,
// otherwise on the commit.
func reportTerminalFailure(ctx context.Context, logger *slog.Logger, project forge.Project, task Task, cause error) {
	msg := fmt.Sprintf("%s failed after %d attempts: %v", task.Handler, task.Attempt+1, cause)
	var err error
	switch {
	case task.Event.ThreadID > 0:
		err = project.PostComment(ctx, task.Event.ThreadID, msg)
	case task.Event.CommitSHA != "":
		err = project.PostCommitComment(ctx, task.Event.CommitSHA, msg)
	default:
		return
	}
	if err != nil {
		logger.Error("failed to post terminal failure notification", "error", err)
	}
}
