package handlers

import (
	"context"
	"fmt"

	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/forge"
)

// buildReport translates build system callbacks into commit statuses.
// One instance handles both the start and the end of a build.
type buildReport struct {
	deps Deps
}

func newBuildReport(deps Deps) Handler { return &buildReport{deps: deps} }

func (h *buildReport) PreCheck(task Task) bool {
	return task.Event.CommitSHA != ""
}

func (h *buildReport) Run(ctx context.Context, task Task) Outcome {
	project, err := h.deps.Projects.ProjectFor(ctx, task.Event)
	if err != nil {
		return failureOutcome("could not resolve project", err)
	}

	state, description := buildStateFor(task.Event)
	err = project.SetCommitStatus(ctx, task.Event.CommitSHA, forge.CommitStatusOptions{
		Context:     statusContext(task.Job, task.Event.Target),
		Description: description,
		State:       state,
	})
	if err != nil {
		if task.LastAttempt() {
			return failureOutcome("failed to report build state", err)
		}
		return Outcome{Message: "status reporting failed, will retry", Err: err, Retry: &RetryRequest{}}
	}

	return successOutcome(description, map[string]any{
		"build":  task.Event.Identifier,
		"target": task.Event.Target,
		"state":  string(state),
	})
}

func buildStateFor(data events.EventData) (forge.Status, string) {
	if data.Kind == events.TriggerBuildStart {
		return forge.StatusPending, "RPM build in progress"
	}
	switch data.Status {
	case "success":
		return forge.StatusSuccess, "RPM build succeeded"
	case "failure", "failed":
		return forge.StatusFailure, "RPM build failed"
	default:
		return forge.StatusError, fmt.Sprintf("RPM build ended with %q", data.Status)
	}
}

// testResultsReport translates testing system callbacks into commit
// statuses on the tests context.
type testResultsReport struct {
	deps Deps
}

func newTestResultsReport(deps Deps) Handler { return &testResultsReport{deps: deps} }

func (h *testResultsReport) PreCheck(task Task) bool {
	return task.Event.CommitSHA != ""
}

func (h *testResultsReport) Run(ctx context.Context, task Task) Outcome {
	project, err := h.deps.Projects.ProjectFor(ctx, task.Event)
	if err != nil {
		return failureOutcome("could not resolve project", err)
	}

	state, description := testStateFor(task.Event.Status)
	err = project.SetCommitStatus(ctx, task.Event.CommitSHA, forge.CommitStatusOptions{
		Context:     statusContext(task.Job, task.Event.Target),
		Description: description,
		State:       state,
	})
	if err != nil {
		if task.LastAttempt() {
			return failureOutcome("failed to report test results", err)
		}
		return Outcome{Message: "status reporting failed, will retry", Err: err, Retry: &RetryRequest{}}
	}

	return successOutcome(description, map[string]any{
		"pipeline": task.Event.Identifier,
		"target":   task.Event.Target,
		"state":    string(state),
	})
}

func testStateFor(status string) (forge.Status, string) {
	switch status {
	case "passed", "success":
		return forge.StatusSuccess, "tests passed"
	case "failed", "failure":
		return forge.StatusFailure, "tests failed"
	case "running", "pending":
		return forge.StatusPending, "tests running"
	default:
		return forge.StatusError, fmt.Sprintf("test pipeline ended with %q", status)
	}
}
