package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
)

func releaseTask(job *config.JobConfig, maxAttempts int) Task {
	return Task{
		Handler:     ProposeDownstreamHandler,
		Job:         job,
		Event:       events.NewRelease("https://github.com/acme/pkg", "v1.2.0", "alice", "").Snapshot(),
		MaxAttempts: maxAttempts,
	}
}

func TestProposeDownstream_Run_ClonesReleaseTag(t *testing.T) {
	ctrl := gomock.NewController(t)
	deps, _ := testDeps(ctrl)
	cloner := &fakeCloner{path: "/tmp/checkout"}
	deps.Cloner = cloner

	job := &config.JobConfig{Type: config.JobProposeDownstream, Trigger: events.JobTriggerRelease, Project: "mypkg"}
	outcome := newProposeDownstream(deps).Run(context.Background(), releaseTask(job, 3))

	assert.True(t, outcome.Success)
	assert.Equal(t, "https://github.com/acme/pkg.git", cloner.lastURL)
	assert.Equal(t, "v1.2.0", cloner.lastRef)
	assert.True(t, cloner.cleaned)
}

func TestProposeDownstream_Run_MissingPackageIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	deps, _ := testDeps(ctrl)

	job := &config.JobConfig{Type: config.JobProposeDownstream, Trigger: events.JobTriggerRelease}
	outcome := newProposeDownstream(deps).Run(context.Background(), releaseTask(job, 3))

	assert.False(t, outcome.Success)
	assert.Nil(t, outcome.Retry, "a configuration error never retries")
}

func TestProposeDownstream_Run_CloneFailureRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	deps, _ := testDeps(ctrl)
	deps.Cloner = &fakeCloner{err: errors.New("remote hung up")}

	job := &config.JobConfig{Type: config.JobProposeDownstream, Trigger: events.JobTriggerRelease, Project: "mypkg"}
	outcome := newProposeDownstream(deps).Run(context.Background(), releaseTask(job, 3))

	assert.False(t, outcome.Success)
	require.NotNil(t, outcome.Retry)
}

func TestProposeDownstream_Run_LastAttemptFilesIssue(t *testing.T) {
	ctrl := gomock.NewController(t)
	deps, project := testDeps(ctrl)
	deps.Cloner = &fakeCloner{err: errors.New("remote hung up")}

	project.EXPECT().
		CreateIssue(gomock.Any(), "Downstream update of release v1.2.0 failed", gomock.Any()).
		Return(12, nil)

	job := &config.JobConfig{Type: config.JobProposeDownstream, Trigger: events.JobTriggerRelease, Project: "mypkg"}
	task := releaseTask(job, 3)
	task.Attempt = 2

	outcome := newProposeDownstream(deps).Run(context.Background(), task)

	assert.False(t, outcome.Success)
	assert.Nil(t, outcome.Retry)
}

func TestProposeDownstream_Run_RetriggerCommentClonesDefaultBranch(t *testing.T) {
	ctrl := gomock.NewController(t)
	deps, project := testDeps(ctrl)
	cloner := &fakeCloner{path: "/tmp/checkout"}
	deps.Cloner = cloner

	project.EXPECT().PostComment(gomock.Any(), 12, gomock.Any()).Return(nil)

	job := &config.JobConfig{Type: config.JobProposeDownstream, Trigger: events.JobTriggerRelease, Project: "mypkg"}
	task := Task{
		Handler:     ProposeDownstreamHandler,
		Job:         job,
		Event:       events.NewIssueComment("https://github.com/acme/pkg", 12, "alice", "/forgebot propose-downstream").Snapshot(),
		MaxAttempts: 3,
	}
	outcome := newProposeDownstream(deps).Run(context.Background(), task)

	assert.True(t, outcome.Success)
	assert.Equal(t, "", cloner.lastRef, "a retrigger has no tag, the default branch is used")
}
