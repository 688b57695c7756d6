package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/forgebot/forgebot/internal/allowlist"
	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/handlers"
	"github.com/forgebot/forgebot/internal/metrics"
	"github.com/forgebot/forgebot/mocks"
)

type fakeConfigs struct {
	jobs *config.JobsConfig
	err  error
}

func (f *fakeConfigs) JobsFor(context.Context, events.Event) (*config.JobsConfig, error) {
	return f.jobs, f.err
}

type fakeQueue struct {
	tasks   []handlers.Task
	ran     []handlers.Task
	err     error
	outcome handlers.Outcome
}

func (f *fakeQueue) Submit(task handlers.Task) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeQueue) RunNow(_ context.Context, task handlers.Task) handlers.Outcome {
	f.ran = append(f.ran, task)
	return f.outcome
}

type fakeStatusStore struct {
	statuses map[string]allowlist.Status
}

func (f *fakeStatusStore) GetNamespaceStatus(_ context.Context, namespace string) (allowlist.Status, bool, error) {
	status, ok := f.statuses[namespace]
	return status, ok, nil
}

type fixture struct {
	dispatcher *Dispatcher
	queue      *fakeQueue
	project    *mocks.MockProject
	configs    *fakeConfigs
}

func newFixture(t *testing.T, configs *fakeConfigs, statuses map[string]allowlist.Status) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	project := mocks.NewMockProject(ctrl)
	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ProjectFor(gomock.Any(), gomock.Any()).Return(project, nil).AnyTimes()

	if statuses == nil {
		statuses = map[string]allowlist.Status{"github.com/acme": allowlist.StatusApprovedManually}
	}
	gateCfg := config.GateConfig{CommandPrefix: "/forgebot"}
	gate := allowlist.New(gateCfg, &fakeStatusStore{statuses: statuses}, logger)

	queue := &fakeQueue{}
	deps := handlers.Deps{Logger: logger, Projects: resolver}
	dispatcher := NewDispatcher(
		handlers.NewDefaultRegistry(), gate, configs, resolver, queue,
		deps, metrics.New(), logger, gateCfg, 3,
	)
	return &fixture{dispatcher: dispatcher, queue: queue, project: project, configs: configs}
}

func prJobs(types ...config.JobType) *config.JobsConfig {
	cfg := &config.JobsConfig{}
	for _, t := range types {
		cfg.Jobs = append(cfg.Jobs, config.JobConfig{Type: t, Trigger: events.JobTriggerPullRequest})
	}
	return cfg
}

func TestDispatch_NoConfigIsNeutral(t *testing.T) {
	f := newFixture(t, &fakeConfigs{err: config.ErrJobsConfigNotFound}, nil)

	ev := events.NewPullRequest("https://github.com/acme/pkg", 7, "alice", "abc", "main")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	assert.True(t, result.Neutral)
	assert.Empty(t, f.queue.tasks)
}

func TestDispatch_BrokenConfigReportedOnThread(t *testing.T) {
	parseErr := config.ErrJobsConfigParsing
	f := newFixture(t, &fakeConfigs{err: parseErr}, nil)

	f.project.EXPECT().PostComment(gomock.Any(), 7, gomock.Any()).Return(nil)

	ev := events.NewPullRequestComment("https://github.com/acme/pkg", 7, "alice", "abc", "/forgebot build")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	assert.True(t, result.Neutral)
}

func TestDispatch_CommentWithoutCommandIsNeutral(t *testing.T) {
	f := newFixture(t, &fakeConfigs{jobs: prJobs(config.JobCoprBuild)}, nil)

	ev := events.NewPullRequestComment("https://github.com/acme/pkg", 7, "alice", "abc", "nice work!")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	assert.True(t, result.Neutral)
	assert.Equal(t, "comment carries no command", result.Reason)
}

func TestDispatch_UnknownCommandIsNeutral(t *testing.T) {
	f := newFixture(t, &fakeConfigs{jobs: prJobs(config.JobCoprBuild)}, nil)

	ev := events.NewPullRequestComment("https://github.com/acme/pkg", 7, "alice", "abc", "/forgebot frobnicate")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	assert.True(t, result.Neutral)
	assert.Contains(t, result.Reason, "frobnicate")
}

func TestDispatch_NoMatchingJobsIsNeutral(t *testing.T) {
	// release-only configuration, pull request event
	cfg := &config.JobsConfig{Jobs: []config.JobConfig{
		{Type: config.JobProposeDownstream, Trigger: events.JobTriggerRelease},
	}}
	f := newFixture(t, &fakeConfigs{jobs: cfg}, nil)

	ev := events.NewPullRequest("https://github.com/acme/pkg", 7, "alice", "abc", "main")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	assert.True(t, result.Neutral)
	assert.Equal(t, "no job matches this event", result.Reason)
}

func TestDispatch_SubmitsMatchedJobs(t *testing.T) {
	f := newFixture(t, &fakeConfigs{jobs: prJobs(config.JobCoprBuild)}, nil)

	f.project.EXPECT().CanMergePullRequest(gomock.Any(), "alice").Return(true, nil).AnyTimes()

	ev := events.NewPullRequest("https://github.com/acme/pkg", 7, "alice", "abc", "main")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	assert.False(t, result.Neutral)
	require.Len(t, f.queue.tasks, 1)

	task := f.queue.tasks[0]
	assert.Equal(t, handlers.CoprBuildHandler, task.Handler)
	assert.Equal(t, config.JobCoprBuild, task.Job.Type)
	assert.Equal(t, 3, task.MaxAttempts)

	outcome, ok := result.Jobs["copr_build"]
	require.True(t, ok)
	assert.True(t, outcome.Submitted)
}

func TestDispatch_TestsJobActivatesBuildAndTests(t *testing.T) {
	f := newFixture(t, &fakeConfigs{jobs: prJobs(config.JobTests)}, nil)

	f.project.EXPECT().CanMergePullRequest(gomock.Any(), "alice").Return(true, nil).AnyTimes()

	ev := events.NewPullRequest("https://github.com/acme/pkg", 7, "alice", "abc", "main")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	require.Len(t, f.queue.tasks, 2)
	assert.Equal(t, handlers.CoprBuildHandler, f.queue.tasks[0].Handler)
	assert.Equal(t, handlers.TestingHandler, f.queue.tasks[1].Handler)

	// both handlers ran for the same job type, so the second outcome
	// gets the disambiguated key
	assert.Contains(t, result.Jobs, "tests")
	assert.Contains(t, result.Jobs, "tests/testing")
}

func TestDispatch_GateDenialIsIsolatedPerEvent(t *testing.T) {
	// empty allowlist: the PR event is denied, jobs stay unsubmitted
	// but the dispatch itself succeeds
	f := newFixture(t, &fakeConfigs{jobs: prJobs(config.JobCoprBuild, config.JobUpstreamKojiBuild)},
		map[string]allowlist.Status{})

	f.project.EXPECT().CanMergePullRequest(gomock.Any(), "alice").Return(false, nil).AnyTimes()
	f.project.EXPECT().GetPullRequestAuthor(gomock.Any(), 7).Return("bob", nil).AnyTimes()
	f.project.EXPECT().SetCommitStatus(gomock.Any(), "abc", gomock.Any()).Return(nil).Times(2)

	ev := events.NewPullRequest("https://github.com/acme/pkg", 7, "alice", "abc", "main")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	assert.Empty(t, f.queue.tasks)
	for key, outcome := range result.Jobs {
		assert.False(t, outcome.Submitted, "job %s", key)
		assert.Equal(t, "denied by the access gate", outcome.Reason)
	}
}

func TestDispatch_PreCheckFailureIsRecorded(t *testing.T) {
	f := newFixture(t, &fakeConfigs{jobs: prJobs(config.JobCoprBuild)}, nil)

	f.project.EXPECT().CanMergePullRequest(gomock.Any(), "alice").Return(true, nil).AnyTimes()

	// no commit SHA: the build handler declines
	ev := events.NewPullRequest("https://github.com/acme/pkg", 7, "alice", "", "main")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	assert.Empty(t, f.queue.tasks)
	outcome := result.Jobs["copr_build"]
	assert.Equal(t, "handler eligibility check failed", outcome.Reason)
}

func TestDispatch_FullQueueReportedPerJob(t *testing.T) {
	f := newFixture(t, &fakeConfigs{jobs: prJobs(config.JobCoprBuild)}, nil)
	f.queue.err = errors.New("queue full")

	f.project.EXPECT().CanMergePullRequest(gomock.Any(), "alice").Return(true, nil).AnyTimes()

	ev := events.NewPullRequest("https://github.com/acme/pkg", 7, "alice", "abc", "main")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	outcome := result.Jobs["copr_build"]
	assert.False(t, outcome.Submitted)
	assert.Equal(t, "queue full", outcome.Reason)
}

func TestDispatch_InstallationSkipsConfigAndGate(t *testing.T) {
	// a failing config resolver proves the installation path never
	// consults it
	f := newFixture(t, &fakeConfigs{err: errors.New("must not be called")}, map[string]allowlist.Status{})

	ev := events.NewInstallation("acme", "alice", 99)
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, handlers.InstallationHandler, f.queue.tasks[0].Handler)
	assert.Nil(t, f.queue.tasks[0].Job)
	assert.True(t, result.Jobs[string(handlers.InstallationHandler)].Submitted)
}

func TestDispatch_VerifyIdentityCommandIsStandalone(t *testing.T) {
	f := newFixture(t, &fakeConfigs{err: errors.New("must not be called")}, map[string]allowlist.Status{})

	ev := events.NewPullRequestComment("https://github.com/acme/pkg", 7, "alice", "abc", "/forgebot verify-identity")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, handlers.VerificationHandler, f.queue.tasks[0].Handler)
	assert.True(t, result.Jobs[string(handlers.VerificationHandler)].Submitted)
}

func TestDispatch_CommandRestrictsHandlers(t *testing.T) {
	f := newFixture(t, &fakeConfigs{jobs: prJobs(config.JobCoprBuild, config.JobUpstreamKojiBuild)}, nil)

	f.project.EXPECT().CanMergePullRequest(gomock.Any(), "alice").Return(true, nil).AnyTimes()

	ev := events.NewPullRequestComment("https://github.com/acme/pkg", 7, "alice", "abc", "/forgebot production-build")
	_, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, handlers.KojiBuildHandler, f.queue.tasks[0].Handler)
}

func TestDispatch_CommentResolvesPullRequestHead(t *testing.T) {
	f := newFixture(t, &fakeConfigs{jobs: prJobs(config.JobCoprBuild)}, nil)

	f.project.EXPECT().GetPullRequestHeadSHA(gomock.Any(), 7).Return("abc123", nil)
	f.project.EXPECT().CanMergePullRequest(gomock.Any(), "alice").Return(true, nil).AnyTimes()

	// comment payloads carry no head commit, the dispatcher resolves it
	ev := events.NewPullRequestComment("https://github.com/acme/pkg", 7, "alice", "", "/forgebot build")
	result, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.NoError(t, err)
	require.Len(t, f.queue.tasks, 1)
	task := f.queue.tasks[0]
	assert.Equal(t, handlers.CoprBuildHandler, task.Handler)
	assert.Equal(t, "abc123", task.Event.CommitSHA)
	assert.Equal(t, "abc123", result.Event.CommitSHA)
	assert.True(t, result.Jobs["copr_build"].Submitted)
}

func TestDispatch_CommentHeadResolutionFailureIsAnError(t *testing.T) {
	f := newFixture(t, &fakeConfigs{jobs: prJobs(config.JobCoprBuild)}, nil)

	f.project.EXPECT().GetPullRequestHeadSHA(gomock.Any(), 7).Return("", errors.New("boom"))

	ev := events.NewPullRequestComment("https://github.com/acme/pkg", 7, "alice", "", "/forgebot build")
	_, err := f.dispatcher.Dispatch(context.Background(), ev)

	require.Error(t, err)
	assert.Empty(t, f.queue.tasks)
}

func TestDispatchNow_RunsTasksSynchronously(t *testing.T) {
	f := newFixture(t, &fakeConfigs{jobs: prJobs(config.JobCoprBuild)}, nil)
	f.queue.outcome = handlers.Outcome{Success: true, Message: "build submitted"}

	f.project.EXPECT().CanMergePullRequest(gomock.Any(), "alice").Return(true, nil).AnyTimes()

	ev := events.NewPullRequest("https://github.com/acme/pkg", 7, "alice", "abc", "main")
	result, err := f.dispatcher.DispatchNow(context.Background(), ev)

	require.NoError(t, err)
	assert.Empty(t, f.queue.tasks)
	require.Len(t, f.queue.ran, 1)
	assert.Equal(t, handlers.CoprBuildHandler, f.queue.ran[0].Handler)

	outcome := result.Jobs["copr_build"]
	assert.True(t, outcome.Submitted)
	assert.True(t, outcome.Success)
	assert.Equal(t, "build submitted", outcome.Message)
}

func TestDispatchNow_StandaloneCommandRunsSynchronously(t *testing.T) {
	f := newFixture(t, &fakeConfigs{err: errors.New("must not be called")}, map[string]allowlist.Status{})
	f.queue.outcome = handlers.Outcome{Success: true, Message: "ok"}

	ev := events.NewPullRequestComment("https://github.com/acme/pkg", 7, "alice", "abc", "/forgebot verify-identity")
	result, err := f.dispatcher.DispatchNow(context.Background(), ev)

	require.NoError(t, err)
	assert.Empty(t, f.queue.tasks)
	require.Len(t, f.queue.ran, 1)

	outcome := result.Jobs[string(handlers.VerificationHandler)]
	assert.True(t, outcome.Submitted)
	assert.True(t, outcome.Success)
}
