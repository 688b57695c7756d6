package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/forgebot/forgebot/internal/forge"
)

var errMirrorLag = errors.New("commit not visible after all retries")

// mirrorLagDelay is how long to wait before re-checking a repository
// that has not seen the downstream commit yet. Mirrors typically sync
// within a minute or two.
const mirrorLagDelay = 30 * time.Second

// syncFromDownstream propagates a downstream distribution commit back
// to the tracking repository. Downstream mirrors lag, so a commit that
// is not visible yet is a retry, not a failure.
type syncFromDownstream struct {
	deps Deps
}

func newSyncFromDownstream(deps Deps) Handler { return &syncFromDownstream{deps: deps} }

func (h *syncFromDownstream) PreCheck(task Task) bool {
	return branchMatches(task) && task.Event.CommitSHA != ""
}

func (h *syncFromDownstream) Run(ctx context.Context, task Task) Outcome {
	project, err := h.deps.Projects.ProjectFor(ctx, task.Event)
	if err != nil {
		return failureOutcome("could not resolve project", err)
	}

	if err := h.deps.Triggers.UpsertEventTrigger(ctx, task.Event); err != nil {
		h.deps.Logger.Error("failed to record event trigger", "error", err)
	}

	visible, err := project.HasCommit(ctx, task.Event.CommitSHA)
	if err != nil {
		if task.LastAttempt() {
			reportTerminalFailure(ctx, h.deps.Logger, project, task, err)
			return failureOutcome("failed to check commit visibility", err)
		}
		return Outcome{Message: "commit visibility check failed, will retry", Err: err, Retry: &RetryRequest{}}
	}
	if !visible {
		if task.LastAttempt() {
			reportTerminalFailure(ctx, h.deps.Logger, project, task, errMirrorLag)
			return failureOutcome("commit never became visible", errMirrorLag)
		}
		h.deps.Logger.Info("commit not mirrored yet, retrying later",
			"commit", task.Event.CommitSHA, "delay", mirrorLagDelay)
		return Outcome{
			Message: "waiting for the mirror to catch up",
			Retry:   &RetryRequest{Delay: mirrorLagDelay},
		}
	}

	_, cleanup, err := h.deps.Cloner.Clone(ctx, forge.CloneURL(task.Event.ProjectURL), task.Event.Identifier)
	if err != nil {
		if task.LastAttempt() {
			reportTerminalFailure(ctx, h.deps.Logger, project, task, err)
			return failureOutcome("failed to check out the downstream branch", err)
		}
		return Outcome{Message: "checkout failed, will retry", Err: err, Retry: &RetryRequest{}}
	}
	defer cleanup()

	h.deps.Logger.Info("downstream commit synced",
		"project", task.Event.ProjectURL,
		"branch", task.Event.Identifier,
		"commit", task.Event.CommitSHA)
	return successOutcome("downstream commit synced", map[string]any{
		"branch": task.Event.Identifier,
		"commit": task.Event.CommitSHA,
	})
}
