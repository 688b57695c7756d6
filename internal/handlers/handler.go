// Package handlers holds the handler registry and the built-in handler
// implementations. The registry is built once at process start from
// static registrations and is read-only afterwards, so it is safe for
// unsynchronized concurrent reads from every dispatch.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/forge"
)

// Kind names one handler implementation.
type Kind string

const (
	CoprBuildHandler          Kind = "copr-build"
	KojiBuildHandler          Kind = "koji-build"
	TestingHandler            Kind = "testing"
	ProposeDownstreamHandler  Kind = "propose-downstream"
	SyncFromDownstreamHandler Kind = "sync-from-downstream"
	BuildReportHandler        Kind = "build-report"
	TestResultsHandler        Kind = "test-results-report"
	InstallationHandler       Kind = "installation"
	VerificationHandler       Kind = "verification"
)

// Task is one unit of work handed to the execution substrate: a
// handler kind, the job configuration it runs for (nil for handlers
// outside the configuration path), and the event snapshot.
type Task struct {
	Handler Kind              `json:"handler"`
	Job     *config.JobConfig `json:"job,omitempty"`
	Event   events.EventData  `json:"event"`
	// Attempt counts from zero; MaxAttempts bounds retries.
	Attempt     int `json:"attempt"`
	MaxAttempts int `json:"max_attempts"`
}

// LastAttempt reports whether a retry request from this run would be
// refused, so the handler must produce terminal user-visible feedback
// instead.
func (t Task) LastAttempt() bool {
	return t.Attempt >= t.MaxAttempts-1
}

// JobType returns the job type the task runs for, or the handler kind
// for config-less tasks. Used as the result key.
func (t Task) JobType() string {
	if t.Job != nil {
		return string(t.Job.Type)
	}
	return string(t.Handler)
}

// RetryRequest asks the execution substrate to run the task again
// after a delay instead of recording a terminal result.
type RetryRequest struct {
	Delay time.Duration
}

// Outcome is the terminal (or retry-requesting) result of one handler
// run.
type Outcome struct {
	Success bool
	Message string
	Details map[string]any
	// Retry, when set, re-enqueues the task after the delay; ignored
	// on the last attempt.
	Retry *RetryRequest
	Err   error
}

func successOutcome(msg string, details map[string]any) Outcome {
	return Outcome{Success: true, Message: msg, Details: details}
}

func failureOutcome(msg string, err error) Outcome {
	return Outcome{Success: false, Message: msg, Err: err}
}

// Handler is the unit of work performing one job type's automation
// logic. PreCheck is a cheap synchronous eligibility probe run by the
// dispatcher before submission; Run executes on the substrate.
type Handler interface {
	PreCheck(task Task) bool
	Run(ctx context.Context, task Task) Outcome
}

// AllowlistWriter mutates namespace approval state. Satisfied by the
// storage layer.
type AllowlistWriter interface {
	SetNamespaceStatus(ctx context.Context, namespace, status string) error
}

// TriggerRecorder persists the trigger row an event correlates to.
type TriggerRecorder interface {
	UpsertEventTrigger(ctx context.Context, data events.EventData) error
}

// IdentityChecker answers whether a forge login is linked to a known
// identity in the external identity backend.
type IdentityChecker interface {
	IsIdentityLinked(ctx context.Context, login string) (bool, error)
}

// RepoCloner checks out a repository at a ref into a temporary
// directory. cleanup removes the checkout and is safe to call always.
type RepoCloner interface {
	Clone(ctx context.Context, url, ref string) (path string, cleanup func(), err error)
}

// Deps carries the collaborators injected into handler constructors.
// Handlers receive capabilities explicitly instead of reaching for
// globals.
type Deps struct {
	Logger    *slog.Logger
	Projects  forge.Resolver
	Allowlist AllowlistWriter
	Triggers  TriggerRecorder
	Identity  IdentityChecker
	Cloner    RepoCloner
}

// Factory builds one handler instance from the injected dependencies.
type Factory func(deps Deps) Handler
