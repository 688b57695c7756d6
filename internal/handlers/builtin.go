package handlers

import (
	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
)

// DefaultRegistrations is the static handler table of the service. The
// order here is the tie-break order when several handlers react to the
// same event.
func DefaultRegistrations() []Registration {
	return []Registration{
		{
			Kind:     CoprBuildHandler,
			JobTypes: []config.JobType{config.JobCoprBuild},
			// declaring tests implies the build that feeds them
			RequiredFor: []config.JobType{config.JobTests},
			Events: []events.TriggerKind{
				events.TriggerPullRequest,
				events.TriggerPush,
				events.TriggerRelease,
				events.TriggerPRComment,
				events.TriggerIssueComment,
				events.TriggerCommitComment,
				events.TriggerCommitLabel,
			},
			Commands: []string{"build", "copr-build", "rebuild-failed"},
			New:      newCoprBuild,
		},
		{
			Kind:     KojiBuildHandler,
			JobTypes: []config.JobType{config.JobUpstreamKojiBuild},
			// a bodhi update is cut from a finished koji build
			RequiredFor: []config.JobType{config.JobBodhiUpdate},
			Events: []events.TriggerKind{
				events.TriggerPullRequest,
				events.TriggerPush,
				events.TriggerRelease,
				events.TriggerPRComment,
				events.TriggerCommitLabel,
			},
			Commands: []string{"production-build", "upstream-koji-build"},
			New:      newKojiBuild,
		},
		{
			Kind:     TestingHandler,
			JobTypes: []config.JobType{config.JobTests},
			Events: []events.TriggerKind{
				events.TriggerPullRequest,
				events.TriggerPush,
				events.TriggerPRComment,
				events.TriggerBuildEnd,
			},
			// a build command re-runs tests once the new build lands
			Commands: []string{"test", "retest-failed", "build", "copr-build"},
			New:      newTesting,
		},
		{
			Kind:     ProposeDownstreamHandler,
			JobTypes: []config.JobType{config.JobProposeDownstream},
			Events: []events.TriggerKind{
				events.TriggerRelease,
				events.TriggerIssueComment,
			},
			Commands: []string{"propose-downstream", "propose-update"},
			New:      newProposeDownstream,
		},
		{
			Kind:     SyncFromDownstreamHandler,
			JobTypes: []config.JobType{config.JobSyncFromDownstream},
			Events: []events.TriggerKind{
				events.TriggerDistgitCommit,
			},
			New: newSyncFromDownstream,
		},
		{
			Kind:     BuildReportHandler,
			JobTypes: []config.JobType{config.JobCoprBuild, config.JobUpstreamKojiBuild},
			RequiredFor: []config.JobType{
				config.JobTests,
			},
			Events: []events.TriggerKind{
				events.TriggerBuildStart,
				events.TriggerBuildEnd,
			},
			New: newBuildReport,
		},
		{
			Kind:     TestResultsHandler,
			JobTypes: []config.JobType{config.JobTests},
			Events: []events.TriggerKind{
				events.TriggerTestResults,
			},
			New: newTestResultsReport,
		},
		{
			Kind:   InstallationHandler,
			Events: []events.TriggerKind{events.TriggerInstallation},
			New:    newInstallation,
		},
		{
			Kind: VerificationHandler,
			Events: []events.TriggerKind{
				events.TriggerPRComment,
				events.TriggerIssueComment,
			},
			Commands: []string{"verify-identity"},
			New:      newVerification,
		},
	}
}

// NewDefaultRegistry builds the registry the service runs with.
func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultRegistrations()...)
}
