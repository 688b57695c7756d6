package handlers

import (
	"context"
	"fmt"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/forge"
)

// statusContext names the commit status one job reports under, with an
// optional build target suffix, e.g. forgebot/copr_build:fedora-rawhide.
func statusContext(job *config.JobConfig, target string) string {
	name := "forgebot/" + string(job.Type)
	if target != "" {
		name += ":" + target
	}
	return name
}

// jobTargets returns the declared build targets, or a single empty
// target meaning "the default one" so callers always have something to
// iterate.
func jobTargets(job *config.JobConfig) []string {
	if job == nil || len(job.Targets) == 0 {
		return []string{""}
	}
	return job.Targets
}

// branchMatches filters commit-triggered jobs pinned to a branch. Jobs
// without a branch constraint accept any branch.
func branchMatches(task Task) bool {
	if task.Job == nil || task.Job.Branch == "" {
		return true
	}
	if task.Job.Trigger != events.JobTriggerCommit {
		return true
	}
	return task.Event.Identifier == task.Job.Branch
}

// setStatuses reports one state on every target of the job. Errors are
// collected so a single failing API call does not hide the others.
func setStatuses(ctx context.Context, project forge.Project, task Task, state forge.Status, description string) error {
	sha := task.Event.CommitSHA
	if sha == "" {
		return nil
	}
	var firstErr error
	for _, target := range jobTargets(task.Job) {
		err := project.SetCommitStatus(ctx, sha, forge.CommitStatusOptions{
			Context:     statusContext(task.Job, target),
			Description: description,
			State:       state,
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("set status %s: %w", statusContext(task.Job, target), err)
		}
	}
	return firstErr
}
