package handlers

import (
	"context"
	"fmt"

	"github.com/forgebot/forgebot/internal/forge"
)

// verification answers the verify-identity comment command: it asks the
// identity backend whether the commenter's login is linked, approves the
// commenter's user namespace on success, and responds on the thread. It
// runs without a job configuration and bypasses the access gate, since
// the whole point is helping users who are not approved yet.
type verification struct {
	deps Deps
}

func newVerification(deps Deps) Handler { return &verification{deps: deps} }

func (h *verification) PreCheck(task Task) bool {
	return task.Event.Actor != "" && task.Event.ThreadID > 0
}

func (h *verification) Run(ctx context.Context, task Task) Outcome {
	project, err := h.deps.Projects.ProjectFor(ctx, task.Event)
	if err != nil {
		return failureOutcome("could not resolve project", err)
	}

	linked, err := h.deps.Identity.IsIdentityLinked(ctx, task.Event.Actor)
	if err != nil {
		if task.LastAttempt() {
			reportTerminalFailure(ctx, h.deps.Logger, project, task, err)
			return failureOutcome("identity backend unavailable", err)
		}
		return Outcome{Message: "identity backend unavailable, will retry", Err: err, Retry: &RetryRequest{}}
	}

	var msg string
	if linked {
		namespace, nsErr := forge.UserNamespace(task.Event.ProjectURL, task.Event.Actor)
		if nsErr != nil {
			return failureOutcome("could not derive user namespace", nsErr)
		}
		if err := h.deps.Allowlist.SetNamespaceStatus(ctx, namespace, "approved_automatically"); err != nil {
			if task.LastAttempt() {
				reportTerminalFailure(ctx, h.deps.Logger, project, task, err)
				return failureOutcome("failed to approve namespace", err)
			}
			return Outcome{Message: "approving namespace failed, will retry", Err: err, Retry: &RetryRequest{}}
		}
		msg = fmt.Sprintf("Account %s is linked to a known identity, namespace %s is approved.", task.Event.Actor, namespace)
	} else {
		msg = fmt.Sprintf("Account %s is not linked to any known identity.", task.Event.Actor)
	}
	if err := project.PostComment(ctx, task.Event.ThreadID, msg); err != nil {
		return failureOutcome("failed to post verification result", err)
	}

	return successOutcome(msg, map[string]any{"actor": task.Event.Actor, "linked": linked})
}
