package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
)

func TestStatusContext(t *testing.T) {
	job := &config.JobConfig{Type: config.JobCoprBuild}
	assert.Equal(t, "forgebot/copr_build", statusContext(job, ""))
	assert.Equal(t, "forgebot/copr_build:fedora-rawhide", statusContext(job, "fedora-rawhide"))
}

func TestJobTargets(t *testing.T) {
	assert.Equal(t, []string{""}, jobTargets(nil))
	assert.Equal(t, []string{""}, jobTargets(&config.JobConfig{}))
	assert.Equal(t, []string{"f40", "rawhide"}, jobTargets(&config.JobConfig{Targets: []string{"f40", "rawhide"}}))
}

func TestBranchMatches(t *testing.T) {
	testCases := []struct {
		name string
		task Task
		want bool
	}{
		{
			name: "no job config",
			task: Task{},
			want: true,
		},
		{
			name: "no branch constraint",
			task: Task{Job: &config.JobConfig{Trigger: events.JobTriggerCommit}},
			want: true,
		},
		{
			name: "pull request jobs ignore branch",
			task: Task{
				Job:   &config.JobConfig{Trigger: events.JobTriggerPullRequest, Branch: "main"},
				Event: events.EventData{Identifier: "42"},
			},
			want: true,
		},
		{
			name: "commit job on the pinned branch",
			task: Task{
				Job:   &config.JobConfig{Trigger: events.JobTriggerCommit, Branch: "main"},
				Event: events.EventData{Identifier: "main"},
			},
			want: true,
		},
		{
			name: "commit job on a different branch",
			task: Task{
				Job:   &config.JobConfig{Trigger: events.JobTriggerCommit, Branch: "main"},
				Event: events.EventData{Identifier: "devel"},
			},
			want: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, branchMatches(tc.task))
		})
	}
}
