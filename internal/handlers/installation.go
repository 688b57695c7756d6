package handlers

import (
	"context"
	"fmt"
)

// installation reacts to the app being installed on an account: the
// account's namespace is recorded as waiting so an administrator can
// approve or deny it. Installations never carry a job configuration.
type installation struct {
	deps Deps
}

func newInstallation(deps Deps) Handler { return &installation{deps: deps} }

func (h *installation) PreCheck(task Task) bool {
	return task.Event.Identifier != ""
}

func (h *installation) Run(ctx context.Context, task Task) Outcome {
	// the identifier is the account the app was installed on; the
	// namespace covers everything under it on the forge
	namespace := "github.com/" + task.Event.Identifier
	if err := h.deps.Allowlist.SetNamespaceStatus(ctx, namespace, "waiting"); err != nil {
		if task.LastAttempt() {
			return failureOutcome("failed to record installation", err)
		}
		return Outcome{Message: "recording installation failed, will retry", Err: err, Retry: &RetryRequest{}}
	}

	h.deps.Logger.Info("installation recorded",
		"account", task.Event.Identifier,
		"sender", task.Event.Actor,
		"namespace", namespace)
	return successOutcome(
		fmt.Sprintf("namespace %s is waiting for approval", namespace),
		map[string]any{"namespace": namespace, "sender": task.Event.Actor},
	)
}
