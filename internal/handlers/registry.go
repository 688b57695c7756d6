package handlers

import (
	"fmt"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
)

// Registration declares one handler: the job types it implements, the
// job types that implicitly require it, the event kinds it reacts to,
// and the comment commands that can invoke it.
type Registration struct {
	Kind Kind
	// JobTypes the handler is the implementation for; a job declaring
	// one of these activates the handler directly.
	JobTypes []config.JobType
	// RequiredFor lists job types that need this handler to run even
	// though the user did not configure its own job type (configuring
	// tests implicitly requires the build handler).
	RequiredFor []config.JobType
	// Events are the trigger kinds the handler supports.
	Events []events.TriggerKind
	// Commands are the normalized comment command tokens mapped to
	// this handler.
	Commands []string
	New      Factory
}

// Registry is the process-wide lookup structure mapping job types,
// event kinds and comment commands to handlers. Built once, then only
// read.
type Registry struct {
	byKind     map[Kind]Registration
	order      []Kind
	jobTypeTo  map[config.JobType][]Kind
	requiredTo map[config.JobType][]Kind
	supported  map[Kind]map[events.TriggerKind]struct{}
	commandTo  map[string][]Kind
}

// NewRegistry builds the lookup tables from static registrations.
// Registering the same kind twice is a programming error and panics at
// init time rather than misrouting at dispatch time.
func NewRegistry(regs ...Registration) *Registry {
	r := &Registry{
		byKind:     make(map[Kind]Registration, len(regs)),
		jobTypeTo:  make(map[config.JobType][]Kind),
		requiredTo: make(map[config.JobType][]Kind),
		supported:  make(map[Kind]map[events.TriggerKind]struct{}, len(regs)),
		commandTo:  make(map[string][]Kind),
	}
	for _, reg := range regs {
		if _, dup := r.byKind[reg.Kind]; dup {
			panic(fmt.Sprintf("handler %q registered twice", reg.Kind))
		}
		if reg.New == nil {
			panic(fmt.Sprintf("handler %q registered without a factory", reg.Kind))
		}
		r.byKind[reg.Kind] = reg
		r.order = append(r.order, reg.Kind)

		for _, jt := range reg.JobTypes {
			r.jobTypeTo[jt] = append(r.jobTypeTo[jt], reg.Kind)
		}
		for _, jt := range reg.RequiredFor {
			r.requiredTo[jt] = append(r.requiredTo[jt], reg.Kind)
		}
		kinds := make(map[events.TriggerKind]struct{}, len(reg.Events))
		for _, k := range reg.Events {
			kinds[k] = struct{}{}
		}
		r.supported[reg.Kind] = kinds
		for _, c := range reg.Commands {
			c = NormalizeCommand(c)
			r.commandTo[c] = append(r.commandTo[c], reg.Kind)
		}
	}
	return r
}

// Build instantiates the handler of the given kind with the injected
// dependencies. Returns false for unknown kinds.
func (r *Registry) Build(kind Kind, deps Deps) (Handler, bool) {
	reg, ok := r.byKind[kind]
	if !ok {
		return nil, false
	}
	return reg.New(deps), true
}

// HandlersForCommand returns the handlers mapped to a normalized
// comment command token.
func (r *Registry) HandlersForCommand(token string) []Kind {
	return r.commandTo[NormalizeCommand(token)]
}

// Supports reports whether a handler reacts to the given event kind.
func (r *Registry) Supports(kind Kind, ev events.TriggerKind) bool {
	_, ok := r.supported[kind][ev]
	return ok
}

// Standalone reports whether a handler operates outside the job
// configuration path: it implements no job type and is required by
// none, so it runs without a matched job.
func (r *Registry) Standalone(kind Kind) bool {
	reg, ok := r.byKind[kind]
	return ok && len(reg.JobTypes) == 0 && len(reg.RequiredFor) == 0
}

// manualRetriggerKinds are the event kinds allowed to activate jobs
// declared with manual_trigger: explicit user commands and result
// callbacks, never automatic forge activity.
var manualRetriggerKinds = map[events.TriggerKind]struct{}{
	events.TriggerPRComment:     {},
	events.TriggerIssueComment:  {},
	events.TriggerCommitComment: {},
	events.TriggerBuildStart:    {},
	events.TriggerBuildEnd:      {},
	events.TriggerTestResults:   {},
}

// JobsMatchingEvent returns the declared jobs activated by the event's
// job trigger, deduplicated, in declaration order.
func (r *Registry) JobsMatchingEvent(ev events.Event, jobs *config.JobsConfig) []*config.JobConfig {
	if jobs == nil || ev.JobTrigger() == "" {
		return nil
	}
	var matching []*config.JobConfig
	for i := range jobs.Jobs {
		job := &jobs.Jobs[i]
		if job.Trigger != ev.JobTrigger() {
			continue
		}
		if job.ManualTrigger {
			if _, ok := manualRetriggerKinds[ev.Kind()]; !ok {
				continue
			}
		}
		matching = append(matching, job)
	}
	return matching
}

// HandlersForEvent resolves every handler that must run for the event:
// handlers whose job type is explicitly configured for a trigger
// matching the event, plus handlers implicitly required by a
// configured job type. Both paths filter on the event kinds the
// handler supports, and comment events additionally restrict the set
// to the handlers mapped to the parsed command (allowed; nil means
// unrestricted). The result preserves registration order.
func (r *Registry) HandlersForEvent(ev events.Event, jobs *config.JobsConfig, allowed []Kind) []Kind {
	matching := r.JobsMatchingEvent(ev, jobs)
	if len(matching) == 0 {
		return nil
	}

	allowedSet := map[Kind]struct{}(nil)
	if allowed != nil {
		allowedSet = make(map[Kind]struct{}, len(allowed))
		for _, k := range allowed {
			allowedSet[k] = struct{}{}
		}
	}

	selected := make(map[Kind]struct{})
	for _, job := range matching {
		for _, kind := range append(r.jobTypeTo[job.Type], r.requiredTo[job.Type]...) {
			if !r.Supports(kind, ev.Kind()) {
				continue
			}
			if allowedSet != nil {
				if _, ok := allowedSet[kind]; !ok {
					continue
				}
			}
			selected[kind] = struct{}{}
		}
	}

	var out []Kind
	for _, kind := range r.order {
		if _, ok := selected[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}

// ConfigsForHandler returns the job configurations relevant to the
// handler for this event, in declaration order. When the explicit path
// yields nothing, the jobs that merely require the handler are picked
// instead: for the build handler, the tests config counts because tests
// require the build.
func (r *Registry) ConfigsForHandler(kind Kind, ev events.Event, jobs *config.JobsConfig) []*config.JobConfig {
	matching := r.JobsMatchingEvent(ev, jobs)

	var explicit []*config.JobConfig
	for _, job := range matching {
		if containsKind(r.jobTypeTo[job.Type], kind) {
			explicit = append(explicit, job)
		}
	}
	if len(explicit) > 0 {
		return explicit
	}

	var required []*config.JobConfig
	for _, job := range matching {
		if containsKind(r.requiredTo[job.Type], kind) {
			required = append(required, job)
		}
	}
	return required
}

func containsKind(kinds []Kind, kind Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
