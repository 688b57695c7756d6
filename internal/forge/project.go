// Package forge abstracts the operations the service needs from a code
// hosting project: posting comments, setting commit statuses, and
// answering permission questions. The dispatch core talks to this
// interface only; the GitHub implementation lives next to it.
package forge

import (
	"context"

	"github.com/forgebot/forgebot/internal/events"
)

// Status is the state reported on a commit.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusError   Status = "error"
	// StatusNeutral marks checks that did not run, e.g. rejected by the
	// access gate. GitHub's commit status API has no neutral state, so
	// the implementation maps it.
	StatusNeutral Status = "neutral"
)

// CommitStatusOptions describes one commit status update.
type CommitStatusOptions struct {
	Context     string
	Description string
	State       Status
	TargetURL   string
}

// Project is a handle on one repository of a forge.
//
//go:generate mockgen -destination=../../mocks/mock_forge.go -package=mocks . Project,Resolver
type Project interface {
	// PostComment responds on a PR or issue thread.
	PostComment(ctx context.Context, threadID int, body string) error
	// PostCommitComment responds directly on a commit, used when there
	// is no thread to respond on.
	PostCommitComment(ctx context.Context, sha, body string) error
	SetCommitStatus(ctx context.Context, sha string, opts CommitStatusOptions) error
	CanMergePullRequest(ctx context.Context, login string) (bool, error)
	GetPullRequestAuthor(ctx context.Context, number int) (string, error)
	// GetPullRequestHeadSHA resolves the current head commit of a pull
	// request. Comment webhooks do not carry it, so comment-triggered
	// dispatches look it up before anything needs a commit to report on.
	GetPullRequestHeadSHA(ctx context.Context, number int) (string, error)
	// HasCommit reports whether the given commit is visible in the
	// repository yet; sync handlers poll it while waiting on mirrors.
	HasCommit(ctx context.Context, sha string) (bool, error)
	CreateIssue(ctx context.Context, title, body string) (int, error)
}

// Resolver produces a Project handle for the repository an event
// points at.
type Resolver interface {
	ProjectFor(ctx context.Context, data events.EventData) (Project, error)
}
