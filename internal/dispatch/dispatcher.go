// Package dispatch turns a typed event into queued handler tasks. The
// dispatcher owns the decision sequence: repository configuration,
// comment command routing, handler matching, the access gate, and the
// handler's own eligibility check. Everything that passes is submitted
// to the execution queue; everything else ends the event neutrally.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/forgebot/forgebot/internal/allowlist"
	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/forge"
	"github.com/forgebot/forgebot/internal/handlers"
	"github.com/forgebot/forgebot/internal/metrics"
)

// ConfigResolver produces the repository job configuration an event
// points at. Returns config.ErrJobsConfigNotFound when the repository
// does not participate.
type ConfigResolver interface {
	JobsFor(ctx context.Context, ev events.Event) (*config.JobsConfig, error)
}

// Submitter hands tasks to the execution substrate, either queued for
// the worker pool or run synchronously with compressed retry delays.
type Submitter interface {
	Submit(task handlers.Task) error
	RunNow(ctx context.Context, task handlers.Task) handlers.Outcome
}

// JobOutcome records what the dispatcher decided for one matched job.
type JobOutcome struct {
	Handler   handlers.Kind `json:"handler"`
	Submitted bool          `json:"submitted"`
	// Reason explains a non-submission: gate denial, failed
	// eligibility check, or a full queue.
	Reason string `json:"reason,omitempty"`
	// Success and Message report the handler outcome when the task ran
	// synchronously through DispatchNow.
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

// Result is the dispatch decision for one event. A neutral result
// means the event was valid but nothing was there to do; it is not an
// error.
type Result struct {
	Event   events.EventData      `json:"event"`
	Neutral bool                  `json:"neutral,omitempty"`
	Reason  string                `json:"reason,omitempty"`
	Jobs    map[string]JobOutcome `json:"jobs,omitempty"`
}

func neutral(ev events.Event, reason string) Result {
	return Result{Event: ev.Snapshot(), Neutral: true, Reason: reason}
}

// Dispatcher routes events. Safe for concurrent use: all mutable state
// lives in the per-call scope.
type Dispatcher struct {
	registry    *handlers.Registry
	gate        *allowlist.Allowlist
	configs     ConfigResolver
	projects    forge.Resolver
	queue       Submitter
	deps        handlers.Deps
	metrics     *metrics.Metrics
	logger      *slog.Logger
	prefix      string
	maxAttempts int
}

func NewDispatcher(
	registry *handlers.Registry,
	gate *allowlist.Allowlist,
	configs ConfigResolver,
	projects forge.Resolver,
	queue Submitter,
	deps handlers.Deps,
	m *metrics.Metrics,
	logger *slog.Logger,
	gateCfg config.GateConfig,
	maxAttempts int,
) *Dispatcher {
	prefix := gateCfg.CommandPrefix
	if prefix == "" {
		prefix = "/forgebot"
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Dispatcher{
		registry:    registry,
		gate:        gate,
		configs:     configs,
		projects:    projects,
		queue:       queue,
		deps:        deps,
		metrics:     m,
		logger:      logger,
		prefix:      prefix,
		maxAttempts: maxAttempts,
	}
}

// Dispatch runs the full decision sequence for one event. The returned
// error covers infrastructure failures only; user-facing conditions
// (no configuration, unknown command, gate denial) come back as a
// neutral or partially-submitted Result.
func (d *Dispatcher) Dispatch(ctx context.Context, ev events.Event) (Result, error) {
	return d.run(ctx, ev, false)
}

// DispatchNow runs the same decision sequence but executes accepted
// tasks synchronously in registry order, compressing retry delays.
// Used by the CLI, where there is no worker pool to wait on.
func (d *Dispatcher) DispatchNow(ctx context.Context, ev events.Event) (Result, error) {
	return d.run(ctx, ev, true)
}

func (d *Dispatcher) run(ctx context.Context, ev events.Event, sync bool) (Result, error) {
	logger := d.logger.With("event_kind", ev.Kind(), "project", ev.ProjectURL(), "identifier", ev.Identifier())
	logger.Info("dispatching event")

	// installations have no repository configuration to consult
	if _, ok := ev.(*events.InstallationEvent); ok {
		return d.submitStandalone(ctx, ev, handlers.InstallationHandler, sync, logger)
	}

	// comment events restrict the handler set to the parsed command
	var allowed []handlers.Kind
	if comment, ok := ev.(events.CommentEvent); ok {
		cmd, _, found := handlers.CommandFromComment(comment.Comment(), d.prefix)
		if !found {
			d.countEvent(ev, "no_command")
			return neutral(ev, "comment carries no command"), nil
		}
		allowed = d.registry.HandlersForCommand(cmd)
		if len(allowed) == 0 {
			logger.Info("unrecognized command", "command", cmd)
			d.countEvent(ev, "unknown_command")
			return neutral(ev, fmt.Sprintf("unrecognized command %q", cmd)), nil
		}
		// commands like verify-identity run without a job
		// configuration and skip the gate entirely
		if kind, ok := d.standaloneKind(allowed); ok {
			return d.submitStandalone(ctx, ev, kind, sync, logger)
		}
	}

	jobsConfig, err := d.configs.JobsFor(ctx, ev)
	switch {
	case errors.Is(err, config.ErrJobsConfigNotFound):
		d.countEvent(ev, "no_config")
		return neutral(ev, "repository has no job configuration"), nil
	case errors.Is(err, config.ErrJobsConfigParsing):
		d.reportConfigError(ctx, ev, err, logger)
		d.countEvent(ev, "config_error")
		return neutral(ev, err.Error()), nil
	case err != nil:
		return Result{Event: ev.Snapshot()}, fmt.Errorf("resolve job configuration: %w", err)
	}

	kinds := d.registry.HandlersForEvent(ev, jobsConfig, allowed)
	if len(kinds) == 0 {
		d.countEvent(ev, "no_handlers")
		return neutral(ev, "no job matches this event"), nil
	}

	project, err := d.projects.ProjectFor(ctx, ev.Snapshot())
	if err != nil {
		return Result{Event: ev.Snapshot()}, fmt.Errorf("resolve project: %w", err)
	}

	// comment payloads do not carry the pull request's head commit;
	// resolve it before handlers need a commit to report on
	if pc, ok := ev.(*events.PullRequestCommentEvent); ok && pc.CommitSHA() == "" {
		sha, err := project.GetPullRequestHeadSHA(ctx, pc.Number)
		if err != nil {
			return Result{Event: ev.Snapshot()}, fmt.Errorf("resolve pull request head: %w", err)
		}
		ev = pc.WithHeadSHA(sha)
	}

	check := d.gate.ForEvent(ev, project)

	result := Result{Event: ev.Snapshot(), Jobs: make(map[string]JobOutcome)}
	for _, kind := range kinds {
		handler, ok := d.registry.Build(kind, d.deps)
		if !ok {
			continue
		}
		for _, job := range d.registry.ConfigsForHandler(kind, ev, jobsConfig) {
			outcome := d.dispatchJob(ctx, ev, check, kind, handler, job, sync, logger)
			result.Jobs[d.resultKey(result.Jobs, kind, job)] = outcome
		}
	}

	d.countEvent(ev, "dispatched")
	return result, nil
}

// dispatchJob runs the gate and the handler's eligibility check for one
// job, then submits. A denial of one job never blocks the others.
func (d *Dispatcher) dispatchJob(ctx context.Context, ev events.Event, check *allowlist.Check, kind handlers.Kind, handler handlers.Handler, job *config.JobConfig, sync bool, logger *slog.Logger) JobOutcome {
	if !check.Allowed(ctx, job) {
		logger.Info("gate denied job", "handler", kind, "job", job.Type)
		d.metrics.GateDenials.Inc()
		return JobOutcome{Handler: kind, Reason: "denied by the access gate"}
	}

	task := handlers.Task{
		Handler:     kind,
		Job:         job,
		Event:       ev.Snapshot(),
		MaxAttempts: d.maxAttempts,
	}
	if !handler.PreCheck(task) {
		logger.Debug("handler declined the task", "handler", kind, "job", job.Type)
		return JobOutcome{Handler: kind, Reason: "handler eligibility check failed"}
	}

	if sync {
		outcome := d.queue.RunNow(ctx, task)
		d.metrics.TasksSubmitted.WithLabelValues(string(kind)).Inc()
		return JobOutcome{Handler: kind, Submitted: true, Success: outcome.Success, Message: outcome.Message}
	}

	if err := d.queue.Submit(task); err != nil {
		logger.Error("task submission failed", "handler", kind, "error", err)
		return JobOutcome{Handler: kind, Reason: err.Error()}
	}
	d.metrics.TasksSubmitted.WithLabelValues(string(kind)).Inc()
	return JobOutcome{Handler: kind, Submitted: true}
}

// submitStandalone submits a task for a handler operating outside the
// configuration and gate path.
func (d *Dispatcher) submitStandalone(ctx context.Context, ev events.Event, kind handlers.Kind, sync bool, logger *slog.Logger) (Result, error) {
	handler, ok := d.registry.Build(kind, d.deps)
	if !ok {
		return neutral(ev, "handler not registered"), nil
	}
	task := handlers.Task{Handler: kind, Event: ev.Snapshot(), MaxAttempts: d.maxAttempts}
	if !handler.PreCheck(task) {
		d.countEvent(ev, "precheck_failed")
		return neutral(ev, "handler eligibility check failed"), nil
	}
	if sync {
		outcome := d.queue.RunNow(ctx, task)
		d.metrics.TasksSubmitted.WithLabelValues(string(kind)).Inc()
		d.countEvent(ev, "dispatched")
		return Result{
			Event: ev.Snapshot(),
			Jobs: map[string]JobOutcome{string(kind): {
				Handler: kind, Submitted: true, Success: outcome.Success, Message: outcome.Message,
			}},
		}, nil
	}
	if err := d.queue.Submit(task); err != nil {
		logger.Error("task submission failed", "handler", kind, "error", err)
		return Result{Event: ev.Snapshot()}, fmt.Errorf("submit %s task: %w", kind, err)
	}
	d.metrics.TasksSubmitted.WithLabelValues(string(kind)).Inc()
	d.countEvent(ev, "dispatched")
	return Result{
		Event: ev.Snapshot(),
		Jobs:  map[string]JobOutcome{string(kind): {Handler: kind, Submitted: true}},
	}, nil
}

// standaloneKind picks a command handler that runs without any job
// configuration, when the command maps to one.
func (d *Dispatcher) standaloneKind(kinds []handlers.Kind) (handlers.Kind, bool) {
	for _, kind := range kinds {
		if d.registry.Standalone(kind) {
			return kind, true
		}
	}
	return "", false
}

// resultKey keys outcomes by job type, falling back to job type plus
// handler kind when two handlers report on the same type.
func (d *Dispatcher) resultKey(jobs map[string]JobOutcome, kind handlers.Kind, job *config.JobConfig) string {
	key := string(job.Type)
	if _, taken := jobs[key]; taken {
		key = fmt.Sprintf("%s/%s", job.Type, kind)
	}
	return key
}

// reportConfigError tells the user their configuration file is broken.
// Only comment threads get a response; a malformed file on a push has
// no good place to report to.
func (d *Dispatcher) reportConfigError(ctx context.Context, ev events.Event, cause error, logger *slog.Logger) {
	comment, ok := ev.(events.CommentEvent)
	if !ok || comment.ThreadID() <= 0 {
		logger.Info("broken job configuration", "error", cause)
		return
	}
	project, err := d.projects.ProjectFor(ctx, ev.Snapshot())
	if err != nil {
		logger.Error("cannot resolve project to report configuration error", "error", err)
		return
	}
	msg := fmt.Sprintf("Failed to parse %s:\n```\n%v\n```", config.JobsFileName, cause)
	if err := project.PostComment(ctx, comment.ThreadID(), msg); err != nil {
		logger.Error("failed to report configuration error", "error", err)
	}
}

func (d *Dispatcher) countEvent(ev events.Event, decision string) {
	d.metrics.EventsProcessed.WithLabelValues(string(ev.Kind()), decision).Inc()
}
