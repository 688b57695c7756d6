package handlers

import (
	"context"

	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/forge"
)

// testingJob schedules a test pipeline. On live forge activity it only
// marks the targets as waiting for a build; the actual pipeline starts
// when the build_end callback arrives with a succeeded build.
type testingJob struct {
	deps Deps
}

func newTesting(deps Deps) Handler { return &testingJob{deps: deps} }

func (h *testingJob) PreCheck(task Task) bool {
	if !branchMatches(task) {
		return false
	}
	// a finished build only feeds tests when it succeeded
	if task.Event.Kind == events.TriggerBuildEnd && task.Event.Status != "success" {
		h.deps.Logger.Debug("build did not succeed, not scheduling tests",
			"status", task.Event.Status, "target", task.Event.Target)
		return false
	}
	return task.Event.CommitSHA != ""
}

func (h *testingJob) Run(ctx context.Context, task Task) Outcome {
	project, err := h.deps.Projects.ProjectFor(ctx, task.Event)
	if err != nil {
		return failureOutcome("could not resolve project", err)
	}

	if err := h.deps.Triggers.UpsertEventTrigger(ctx, task.Event); err != nil {
		h.deps.Logger.Error("failed to record event trigger", "error", err)
	}

	state := forge.StatusPending
	description := "waiting for the RPM build to finish"
	if task.Event.Kind == events.TriggerBuildEnd {
		description = "test pipeline scheduled"
	}

	if task.Event.Kind == events.TriggerBuildEnd && task.Event.Target != "" {
		// report only the target the finished build belongs to
		err = project.SetCommitStatus(ctx, task.Event.CommitSHA, forge.CommitStatusOptions{
			Context:     statusContext(task.Job, task.Event.Target),
			Description: description,
			State:       state,
		})
	} else {
		err = setStatuses(ctx, project, task, state, description)
	}
	if err != nil {
		if task.LastAttempt() {
			reportTerminalFailure(ctx, h.deps.Logger, project, task, err)
			return failureOutcome("failed to report test scheduling", err)
		}
		return Outcome{Message: "status reporting failed, will retry", Err: err, Retry: &RetryRequest{}}
	}

	h.deps.Logger.Info("tests scheduled",
		"project", task.Event.ProjectURL,
		"commit", task.Event.CommitSHA,
		"kind", task.Event.Kind)
	return successOutcome("tests scheduled", map[string]any{
		"commit": task.Event.CommitSHA,
		"target": task.Event.Target,
	})
}
