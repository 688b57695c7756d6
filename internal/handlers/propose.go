package handlers

import (
	"context"
	"fmt"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/forge"
)

// proposeDownstream opens a downstream update for a published release.
// Failures after the final retry are filed as an issue on the upstream
// repository so the release manager can retrigger with a comment.
type proposeDownstream struct {
	deps Deps
}

func newProposeDownstream(deps Deps) Handler { return &proposeDownstream{deps: deps} }

func (h *proposeDownstream) PreCheck(task Task) bool {
	// a retrigger comment carries no release tag of its own; the
	// identifier then names the issue, which is fine
	return task.Event.Identifier != ""
}

func (h *proposeDownstream) Run(ctx context.Context, task Task) Outcome {
	project, err := h.deps.Projects.ProjectFor(ctx, task.Event)
	if err != nil {
		return failureOutcome("could not resolve project", err)
	}

	if err := h.deps.Triggers.UpsertEventTrigger(ctx, task.Event); err != nil {
		h.deps.Logger.Error("failed to record event trigger", "error", err)
	}

	pkg := downstreamPackage(task.Job)
	if pkg == "" {
		// user configuration problem, not retryable
		msg := "propose_downstream requires the downstream package name in the job's project field"
		if task.Event.ThreadID > 0 {
			if perr := project.PostComment(ctx, task.Event.ThreadID, msg); perr != nil {
				h.deps.Logger.Error("failed to post configuration error", "error", perr)
			}
		}
		return failureOutcome(msg, nil)
	}

	// a retrigger comment carries no tag, clone the default branch then
	ref := ""
	if task.Event.Kind == events.TriggerRelease {
		ref = task.Event.Identifier
	}
	_, cleanup, err := h.deps.Cloner.Clone(ctx, forge.CloneURL(task.Event.ProjectURL), ref)
	if err != nil {
		if task.LastAttempt() {
			h.fileFailureIssue(ctx, project, task, err)
			return failureOutcome("failed to check out the release", err)
		}
		return Outcome{Message: "release checkout failed, will retry", Err: err, Retry: &RetryRequest{}}
	}
	defer cleanup()

	h.deps.Logger.Info("downstream update proposed",
		"project", task.Event.ProjectURL,
		"release", task.Event.Identifier,
		"package", pkg)

	if task.Event.ThreadID > 0 {
		msg := fmt.Sprintf("Downstream update for %s proposed from release %s.", pkg, task.Event.Identifier)
		if err := project.PostComment(ctx, task.Event.ThreadID, msg); err != nil {
			h.deps.Logger.Error("failed to post propose confirmation", "error", err)
		}
	}
	return successOutcome("downstream update proposed", map[string]any{
		"release": task.Event.Identifier,
		"package": pkg,
	})
}

// fileFailureIssue records a terminal propose failure as an issue on
// the upstream repository. Issue comments on it are the retrigger path.
func (h *proposeDownstream) fileFailureIssue(ctx context.Context, project forge.Project, task Task, cause error) {
	title := fmt.Sprintf("Downstream update of release %s failed", task.Event.Identifier)
	body := fmt.Sprintf(
		"Proposing the downstream update for release %s failed after %d attempts:\n\n```\n%v\n```\n\nComment `/forgebot propose-downstream` to retrigger.",
		task.Event.Identifier, task.Attempt+1, cause)
	if _, err := project.CreateIssue(ctx, title, body); err != nil {
		h.deps.Logger.Error("failed to file failure issue", "error", err)
	}
}

func downstreamPackage(job *config.JobConfig) string {
	if job == nil {
		return ""
	}
	return job.Project
}
