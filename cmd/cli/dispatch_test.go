package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgebot/forgebot/internal/events"
)

func resetDispatchFlags() {
	dispatchProjectURL = "https://github.com/acme/pkg"
	dispatchNumber = 0
	dispatchSHA = ""
	dispatchActor = ""
	dispatchBranch = ""
	dispatchTag = ""
	dispatchComment = ""
	dispatchBuildID = 0
	dispatchPipelineID = ""
	dispatchTarget = ""
	dispatchStatus = ""
	dispatchTrigger = "pull_request"
	dispatchLabel = ""
	dispatchPackage = ""
}

func TestBuildEvent_BuildEnd(t *testing.T) {
	resetDispatchFlags()
	dispatchBuildID = 42
	dispatchTarget = "fedora-40"
	dispatchStatus = "success"
	dispatchSHA = "abc"

	ev, err := buildEvent("build_end")
	require.NoError(t, err)

	end, ok := ev.(*events.BuildEndEvent)
	require.True(t, ok)
	assert.Equal(t, events.TriggerBuildEnd, end.Kind())
	assert.Equal(t, events.JobTriggerPullRequest, end.JobTrigger())
	assert.Equal(t, "success", end.Status)
	assert.Equal(t, "fedora-40", end.Target)
	assert.Equal(t, "abc", end.CommitSHA())
}

func TestBuildEvent_BuildStartNeedsBuildID(t *testing.T) {
	resetDispatchFlags()

	_, err := buildEvent("build_start")
	assert.Error(t, err)
}

func TestBuildEvent_TestResults(t *testing.T) {
	resetDispatchFlags()
	dispatchPipelineID = "pipeline-7"
	dispatchStatus = "passed"
	dispatchTrigger = "commit"

	ev, err := buildEvent("test_results")
	require.NoError(t, err)

	results, ok := ev.(*events.TestResultsEvent)
	require.True(t, ok)
	assert.Equal(t, events.TriggerTestResults, results.Kind())
	assert.Equal(t, events.JobTriggerCommit, results.JobTrigger())
	assert.Equal(t, "passed", results.Status)
}

func TestBuildEvent_CommitLabel(t *testing.T) {
	resetDispatchFlags()
	dispatchSHA = "abc"
	dispatchLabel = "approved"
	dispatchActor = "alice"

	ev, err := buildEvent("commit_label")
	require.NoError(t, err)

	label, ok := ev.(*events.CommitLabelEvent)
	require.True(t, ok)
	assert.Equal(t, events.TriggerCommitLabel, label.Kind())
	assert.Equal(t, "approved", label.Label)
}

func TestBuildEvent_DistgitCommit(t *testing.T) {
	resetDispatchFlags()
	dispatchBranch = "rawhide"
	dispatchPackage = "pkg"
	dispatchSHA = "abc"

	ev, err := buildEvent("distgit_commit")
	require.NoError(t, err)

	commit, ok := ev.(*events.DistgitCommitEvent)
	require.True(t, ok)
	assert.Equal(t, events.TriggerDistgitCommit, commit.Kind())
	assert.Equal(t, "pkg", commit.Package)
}

func TestBuildEvent_RejectsUnknownTrigger(t *testing.T) {
	resetDispatchFlags()
	dispatchBuildID = 42
	dispatchStatus = "success"
	dispatchTrigger = "lunar_phase"

	_, err := buildEvent("build_end")
	assert.Error(t, err)
}
