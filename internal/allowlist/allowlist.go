// Package allowlist implements the access gate consulted before any
// handler runs. A namespace (a forge host, organization, or single
// repository) is waiting, approved, or denied; approval of a parent
// namespace covers its children, denial anywhere in the chain wins.
package allowlist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/forge"
)

// Status of one namespace row.
type Status string

const (
	StatusWaiting               Status = "waiting"
	StatusApprovedManually      Status = "approved_manually"
	StatusApprovedAutomatically Status = "approved_automatically"
	StatusDenied                Status = "denied"
)

// Approved reports whether the status counts as an allow decision.
func (s Status) Approved() bool {
	return s == StatusApprovedManually || s == StatusApprovedAutomatically
}

// StatusStore is the persistence the gate reads namespace state from.
// Satisfied by the storage layer.
type StatusStore interface {
	// GetNamespaceStatus returns the status of the exact namespace;
	// found is false when no row exists.
	GetNamespaceStatus(ctx context.Context, namespace string) (status Status, found bool, err error)
}

// Allowlist is the access gate. It owns the policy; reporting side
// effects go through the forge.Project handle of the event being
// checked.
type Allowlist struct {
	cfg    config.GateConfig
	store  StatusStore
	logger *slog.Logger
}

func New(cfg config.GateConfig, store StatusStore, logger *slog.Logger) *Allowlist {
	return &Allowlist{cfg: cfg, store: store, logger: logger}
}

// IsNamespaceOrParentApproved walks the namespace chain from the most
// specific entry upwards and returns the first non-waiting decision.
func (a *Allowlist) IsNamespaceOrParentApproved(ctx context.Context, namespace string) (bool, error) {
	for ns := namespace; ns != ""; ns = parentNamespace(ns) {
		status, found, err := a.store.GetNamespaceStatus(ctx, ns)
		if err != nil {
			return false, err
		}
		if found && status != StatusWaiting {
			return status.Approved(), nil
		}
	}
	a.logger.Info("no approved entry found", "namespace", namespace)
	return false, nil
}

// IsNamespaceOrParentDenied reports whether the namespace or any parent
// is explicitly denied.
func (a *Allowlist) IsNamespaceOrParentDenied(ctx context.Context, namespace string) (bool, error) {
	for ns := namespace; ns != ""; ns = parentNamespace(ns) {
		status, found, err := a.store.GetNamespaceStatus(ctx, ns)
		if err != nil {
			return false, err
		}
		if found && status == StatusDenied {
			a.logger.Info("namespace denied", "namespace", namespace, "denied_entry", ns)
			return true, nil
		}
	}
	return false, nil
}

// IsDenied checks the exact namespace only, used for user namespaces
// where the parent is the whole forge host.
func (a *Allowlist) IsDenied(ctx context.Context, namespace string) (bool, error) {
	status, found, err := a.store.GetNamespaceStatus(ctx, namespace)
	if err != nil {
		return false, err
	}
	return found && status == StatusDenied, nil
}

func parentNamespace(ns string) string {
	ns = strings.TrimSuffix(ns, ".git")
	i := strings.LastIndex(ns, "/")
	if i < 0 {
		return ""
	}
	return ns[:i]
}

// ForEvent opens a gate session for one dispatch. The session caches
// per-event decisions (admin bypass, project namespace lookups) so
// they run once per event no matter how many job configs are checked.
func (a *Allowlist) ForEvent(ev events.Event, project forge.Project) *Check {
	return &Check{allowlist: a, event: ev, project: project}
}

// Check is the per-dispatch gate session. The allow/deny policy is a
// property of the event, so it is evaluated once and cached; only the
// denial statuses are per job configuration.
type Check struct {
	allowlist *Allowlist
	event     events.Event
	project   forge.Project

	adminOnce sync.Once
	isAdmin   bool

	decided  bool
	allowed  bool
	denial   string
	statused map[*config.JobConfig]bool
}

// adminBypass is evaluated once per event, not once per job, to avoid
// redundant identity lookups.
func (c *Check) adminBypass() bool {
	c.adminOnce.Do(func() {
		actor := c.event.Actor()
		if actor == "" {
			return
		}
		for _, admin := range c.allowlist.cfg.Admins {
			if admin == actor {
				c.isAdmin = true
				return
			}
		}
	})
	return c.isAdmin
}

// Allowed runs the allow/deny policy for one job configuration and
// reports a denial back to the originating thread or commit. The
// underlying decision is made at most once per event; calling Allowed
// with further distinct job configurations only extends the denial
// statuses to them.
func (c *Check) Allowed(ctx context.Context, job *config.JobConfig) bool {
	if !c.decided {
		c.decided = true
		c.allowed = c.decide(ctx)
	}
	if !c.allowed && c.denial != "" && job != nil {
		c.denyStatus(ctx, job)
	}
	return c.allowed
}

func (c *Check) decide(ctx context.Context) bool {
	ev := c.event

	switch ev.Kind() {
	case events.TriggerBuildStart, events.TriggerBuildEnd, events.TriggerTestResults,
		events.TriggerInstallation, events.TriggerDistgitCommit, events.TriggerCommitLabel:
		// not initiated by an outside actor, nothing to gate
		c.allowlist.logger.Debug("event kind does not require an allowlist check", "kind", ev.Kind())
		return true
	}

	if c.adminBypass() {
		c.allowlist.logger.Debug("actor is a configured administrator", "actor", ev.Actor())
		return true
	}

	switch e := ev.(type) {
	case *events.PushEvent, *events.ReleaseEvent:
		return c.checkProjectOnly(ctx)
	case *events.PullRequestEvent:
		return c.checkPullRequest(ctx, e.Number, false)
	case *events.PullRequestCommentEvent:
		return c.checkPullRequest(ctx, e.Number, true)
	case *events.IssueCommentEvent, *events.CommitCommentEvent:
		return c.checkCommenter(ctx)
	default:
		c.allowlist.logger.Warn("no allowlist rule for event kind, denying", "kind", ev.Kind())
		return false
	}
}

// checkProjectOnly gates push and release events: only the project
// namespace matters because there is no thread actor to hold
// responsible. Denials are reported as a commit comment.
func (c *Check) checkProjectOnly(ctx context.Context) bool {
	ev := c.event
	namespace, err := forge.Namespace(ev.ProjectURL())
	if err != nil {
		c.allowlist.logger.Error("cannot derive namespace", "project_url", ev.ProjectURL(), "error", err)
		return false
	}

	if denied, err := c.allowlist.IsNamespaceOrParentDenied(ctx, namespace); err != nil || denied {
		if denied {
			c.reportCommit(ctx, fmt.Sprintf("%s or a parent namespace is denied.", namespace))
		}
		return false
	}
	if approved, err := c.allowlist.IsNamespaceOrParentApproved(ctx, namespace); err == nil && approved {
		return true
	}

	c.reportCommit(ctx, fmt.Sprintf("Project %s is not on our allowlist. Ask an instance administrator for approval.", namespace))
	return false
}

// checkPullRequest gates PR and PR-comment events: the project
// namespace must be approved and the actor must either have write
// access or be the PR author. Denials on comments go back to the
// thread; denials on PR updates become a neutral status on every job
// that would have run, so the rejection stays visible without a
// comment.
func (c *Check) checkPullRequest(ctx context.Context, prNumber int, isComment bool) bool {
	ev := c.event
	actor := ev.Actor()
	if actor == "" {
		c.allowlist.logger.Error("event has no actor to check", "kind", ev.Kind())
		return false
	}

	namespace, err := forge.Namespace(ev.ProjectURL())
	if err != nil {
		c.allowlist.logger.Error("cannot derive namespace", "project_url", ev.ProjectURL(), "error", err)
		return false
	}
	userNamespace, _ := forge.UserNamespace(ev.ProjectURL(), actor)

	var msg string
	if denied, _ := c.allowlist.IsDenied(ctx, userNamespace); denied {
		msg = fmt.Sprintf("User %s is denied.", actor)
	} else if denied, _ := c.allowlist.IsNamespaceOrParentDenied(ctx, namespace); denied {
		msg = fmt.Sprintf("%s or a parent namespace is denied.", namespace)
	} else {
		namespaceApproved, err := c.allowlist.IsNamespaceOrParentApproved(ctx, namespace)
		if err != nil {
			return false
		}
		userApproved := c.actorMayTrigger(ctx, actor, prNumber)
		if namespaceApproved && userApproved {
			return true
		}
		if !namespaceApproved {
			msg = fmt.Sprintf("Project %s is not on our allowlist. Ask an instance administrator for approval.", namespace)
		} else {
			msg = fmt.Sprintf("Account %s has no write access and is not the author of the pull request.", actor)
		}
	}

	c.allowlist.logger.Debug("allowlist denial", "actor", actor, "reason", msg)
	if isComment {
		if err := c.project.PostComment(ctx, prNumber, msg); err != nil {
			c.allowlist.logger.Error("failed to post rejection comment", "error", err)
		}
	} else {
		c.denial = msg
	}
	return false
}

func (c *Check) actorMayTrigger(ctx context.Context, actor string, prNumber int) bool {
	canMerge, err := c.project.CanMergePullRequest(ctx, actor)
	if err == nil && canMerge {
		return true
	}
	author, err := c.project.GetPullRequestAuthor(ctx, prNumber)
	return err == nil && author == actor
}

// checkCommenter gates issue and commit comments: project namespace
// approval plus actor write access. Denials are posted back to the
// thread.
func (c *Check) checkCommenter(ctx context.Context) bool {
	ev := c.event
	actor := ev.Actor()
	if actor == "" {
		return false
	}

	namespace, err := forge.Namespace(ev.ProjectURL())
	if err != nil {
		return false
	}
	userNamespace, _ := forge.UserNamespace(ev.ProjectURL(), actor)

	var msg string
	if denied, _ := c.allowlist.IsDenied(ctx, userNamespace); denied {
		msg = fmt.Sprintf("User %s is denied.", actor)
	} else if denied, _ := c.allowlist.IsNamespaceOrParentDenied(ctx, namespace); denied {
		msg = fmt.Sprintf("%s or a parent namespace is denied.", namespace)
	} else {
		namespaceApproved, err := c.allowlist.IsNamespaceOrParentApproved(ctx, namespace)
		if err != nil {
			return false
		}
		canMerge, _ := c.project.CanMergePullRequest(ctx, actor)
		if namespaceApproved && canMerge {
			return true
		}
		if !namespaceApproved {
			msg = fmt.Sprintf("Project %s is not on our allowlist. Ask an instance administrator for approval.", namespace)
		} else {
			msg = fmt.Sprintf("Account %s has no write access.", actor)
		}
	}

	c.allowlist.logger.Debug("allowlist denial", "actor", actor, "reason", msg)
	c.reportThread(ctx, msg)
	return false
}

func (c *Check) reportThread(ctx context.Context, msg string) {
	comment, ok := c.event.(events.CommentEvent)
	if !ok {
		return
	}
	var err error
	if comment.ThreadID() > 0 {
		err = c.project.PostComment(ctx, comment.ThreadID(), msg)
	} else if sha := c.event.CommitSHA(); sha != "" {
		err = c.project.PostCommitComment(ctx, sha, msg)
	}
	if err != nil {
		c.allowlist.logger.Error("failed to post rejection comment", "error", err)
	}
}

func (c *Check) reportCommit(ctx context.Context, msg string) {
	sha := c.event.CommitSHA()
	if sha == "" {
		return
	}
	if err := c.project.PostCommitComment(ctx, sha, msg); err != nil {
		c.allowlist.logger.Error("failed to post rejection commit comment", "error", err)
	}
}

// denyStatus sets a neutral status for one job configuration the
// denial affects, at most once per distinct configuration.
func (c *Check) denyStatus(ctx context.Context, job *config.JobConfig) {
	sha := c.event.CommitSHA()
	if sha == "" {
		return
	}
	if c.statused == nil {
		c.statused = make(map[*config.JobConfig]bool)
	}
	if c.statused[job] {
		return
	}
	c.statused[job] = true
	err := c.project.SetCommitStatus(ctx, sha, forge.CommitStatusOptions{
		Context:     "forgebot/" + string(job.Type),
		Description: c.denial,
		State:       forge.StatusNeutral,
	})
	if err != nil {
		c.allowlist.logger.Error("failed to set denial status", "job", job.Type, "error", err)
	}
}
