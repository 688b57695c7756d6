// Package events defines the closed set of typed events the service
// reacts to. Every inbound notification, whatever its source, is
// normalized into one of these variants before it reaches the
// dispatcher. The set is sealed: new variants require a change here,
// and every switch over events is expected to be exhaustive.
package events

import (
	"fmt"
	"strconv"
)

// TriggerKind is the category of an inbound event.
type TriggerKind string

const (
	TriggerPullRequest   TriggerKind = "pull_request"
	TriggerPush          TriggerKind = "push"
	TriggerRelease       TriggerKind = "release"
	TriggerIssueComment  TriggerKind = "issue_comment"
	TriggerPRComment     TriggerKind = "pr_comment"
	TriggerCommitComment TriggerKind = "commit_comment"
	TriggerInstallation  TriggerKind = "installation"
	TriggerBuildStart    TriggerKind = "build_start"
	TriggerBuildEnd      TriggerKind = "build_end"
	TriggerTestResults   TriggerKind = "test_results"
	TriggerCommitLabel   TriggerKind = "commit_label"
	TriggerDistgitCommit TriggerKind = "distgit_commit"
)

// JobTrigger is the trigger category a job configuration declares.
// It is intentionally distinct from TriggerKind: a pr_comment event
// activates pull_request-triggered jobs, an issue comment retriggers
// release-triggered jobs, and result events inherit the trigger of the
// run they report on.
type JobTrigger string

const (
	JobTriggerPullRequest JobTrigger = "pull_request"
	JobTriggerCommit      JobTrigger = "commit"
	JobTriggerRelease     JobTrigger = "release"
)

// Event is the common envelope of every typed event. Implementations
// are immutable after construction and live in this package only.
type Event interface {
	Kind() TriggerKind
	// JobTrigger reports which job-config trigger this event activates.
	// Empty for variants that never match a configured job
	// (e.g. installation events).
	JobTrigger() JobTrigger
	ProjectURL() string
	// Identifier is a short string used for logging and correlation:
	// a PR number, branch name, tag, or build id.
	Identifier() string
	// Actor is the login of the user who caused the event, when known.
	Actor() string
	CommitSHA() string
	// TriggerKey returns the opaque key identifying the persisted
	// trigger row this event correlates to. ok is false for variants
	// with no persisted correlation.
	TriggerKey() (key string, ok bool)
	// Snapshot produces the serializable subset of the event carried
	// in task payloads and results.
	Snapshot() EventData

	sealed()
}

// CommentEvent is implemented by the comment-bearing variants.
type CommentEvent interface {
	Event
	Comment() string
	// ThreadID identifies the thread a response belongs on:
	// the PR number, issue number, or 0 for commit comments.
	ThreadID() int
}

// EventData is the serializable snapshot of an event. It is what task
// payloads, persisted results, and handlers see; the full Event value
// never leaves the dispatch call.
type EventData struct {
	Kind       TriggerKind `json:"kind"`
	JobTrigger JobTrigger  `json:"job_trigger,omitempty"`
	ProjectURL string      `json:"project_url,omitempty"`
	Identifier string      `json:"identifier,omitempty"`
	Actor      string      `json:"actor,omitempty"`
	CommitSHA  string      `json:"commit_sha,omitempty"`
	TriggerKey string      `json:"trigger_key,omitempty"`
	Comment    string      `json:"comment,omitempty"`
	ThreadID   int         `json:"thread_id,omitempty"`
	// Status and Target carry the reported state and chroot/target for
	// build/test result events.
	Status string `json:"status,omitempty"`
	Target string `json:"target,omitempty"`
}

// base carries the shared envelope fields. Variants embed it and the
// sealed marker keeps the variant set closed to this package.
type base struct {
	kind       TriggerKind
	jobTrigger JobTrigger
	projectURL string
	identifier string
	actor      string
	commitSHA  string
	triggerKey string
}

func (b *base) Kind() TriggerKind      { return b.kind }
func (b *base) JobTrigger() JobTrigger { return b.jobTrigger }
func (b *base) ProjectURL() string     { return b.projectURL }
func (b *base) Identifier() string     { return b.identifier }
func (b *base) Actor() string          { return b.actor }
func (b *base) CommitSHA() string      { return b.commitSHA }
func (b *base) sealed()                {}

func (b *base) TriggerKey() (string, bool) {
	return b.triggerKey, b.triggerKey != ""
}

func (b *base) Snapshot() EventData {
	return EventData{
		Kind:       b.kind,
		JobTrigger: b.jobTrigger,
		ProjectURL: b.projectURL,
		Identifier: b.identifier,
		Actor:      b.actor,
		CommitSHA:  b.commitSHA,
		TriggerKey: b.triggerKey,
	}
}

// PullRequestEvent is a pull request being opened, reopened or updated.
type PullRequestEvent struct {
	base
	Number       int
	TargetBranch string
}

func NewPullRequest(projectURL string, number int, actor, headSHA, targetBranch string) *PullRequestEvent {
	return &PullRequestEvent{
		base: base{
			kind:       TriggerPullRequest,
			jobTrigger: JobTriggerPullRequest,
			projectURL: projectURL,
			identifier: strconv.Itoa(number),
			actor:      actor,
			commitSHA:  headSHA,
			triggerKey: fmt.Sprintf("pr/%s/%d", projectURL, number),
		},
		Number:       number,
		TargetBranch: targetBranch,
	}
}

// PullRequestCommentEvent is a new comment on a pull request.
type PullRequestCommentEvent struct {
	base
	Number  int
	Body    string
	HeadSHA string
}

func NewPullRequestComment(projectURL string, number int, actor, headSHA, body string) *PullRequestCommentEvent {
	return &PullRequestCommentEvent{
		base: base{
			kind:       TriggerPRComment,
			jobTrigger: JobTriggerPullRequest,
			projectURL: projectURL,
			identifier: strconv.Itoa(number),
			actor:      actor,
			commitSHA:  headSHA,
			triggerKey: fmt.Sprintf("pr/%s/%d", projectURL, number),
		},
		Number:  number,
		Body:    body,
		HeadSHA: headSHA,
	}
}

// WithHeadSHA returns a copy of the event carrying the pull request's
// head commit. Comment payloads do not include it, so the dispatcher
// resolves it through the forge before handlers need a commit to
// report on.
func (e *PullRequestCommentEvent) WithHeadSHA(sha string) *PullRequestCommentEvent {
	clone := *e
	clone.commitSHA = sha
	clone.HeadSHA = sha
	return &clone
}

func (e *PullRequestCommentEvent) Comment() string { return e.Body }
func (e *PullRequestCommentEvent) ThreadID() int   { return e.Number }

func (e *PullRequestCommentEvent) Snapshot() EventData {
	d := e.base.Snapshot()
	d.Comment = e.Body
	d.ThreadID = e.Number
	return d
}

// IssueCommentEvent is a new comment on a plain issue. Issue comments
// retrigger release-triggered jobs: the service files an issue when a
// release-time job fails, and the retrigger command arrives there.
type IssueCommentEvent struct {
	base
	IssueID int
	Body    string
}

func NewIssueComment(projectURL string, issueID int, actor, body string) *IssueCommentEvent {
	return &IssueCommentEvent{
		base: base{
			kind:       TriggerIssueComment,
			jobTrigger: JobTriggerRelease,
			projectURL: projectURL,
			identifier: strconv.Itoa(issueID),
			actor:      actor,
			triggerKey: fmt.Sprintf("issue/%s/%d", projectURL, issueID),
		},
		IssueID: issueID,
		Body:    body,
	}
}

func (e *IssueCommentEvent) Comment() string { return e.Body }
func (e *IssueCommentEvent) ThreadID() int   { return e.IssueID }

func (e *IssueCommentEvent) Snapshot() EventData {
	d := e.base.Snapshot()
	d.Comment = e.Body
	d.ThreadID = e.IssueID
	return d
}

// CommitCommentEvent is a comment attached directly to a commit.
type CommitCommentEvent struct {
	base
	Body string
}

func NewCommitComment(projectURL, sha, actor, body string) *CommitCommentEvent {
	return &CommitCommentEvent{
		base: base{
			kind:       TriggerCommitComment,
			jobTrigger: JobTriggerCommit,
			projectURL: projectURL,
			identifier: sha,
			actor:      actor,
			commitSHA:  sha,
		},
		Body: body,
	}
}

func (e *CommitCommentEvent) Comment() string { return e.Body }
func (e *CommitCommentEvent) ThreadID() int   { return 0 }

func (e *CommitCommentEvent) Snapshot() EventData {
	d := e.base.Snapshot()
	d.Comment = e.Body
	return d
}

// PushEvent is a push to a branch.
type PushEvent struct {
	base
	Branch string
}

func NewPush(projectURL, branch, actor, sha string) *PushEvent {
	return &PushEvent{
		base: base{
			kind:       TriggerPush,
			jobTrigger: JobTriggerCommit,
			projectURL: projectURL,
			identifier: branch,
			actor:      actor,
			commitSHA:  sha,
			triggerKey: fmt.Sprintf("branch/%s/%s", projectURL, branch),
		},
		Branch: branch,
	}
}

// ReleaseEvent is a published release or tag.
type ReleaseEvent struct {
	base
	Tag string
}

func NewRelease(projectURL, tag, actor, sha string) *ReleaseEvent {
	return &ReleaseEvent{
		base: base{
			kind:       TriggerRelease,
			jobTrigger: JobTriggerRelease,
			projectURL: projectURL,
			identifier: tag,
			actor:      actor,
			commitSHA:  sha,
			triggerKey: fmt.Sprintf("release/%s/%s", projectURL, tag),
		},
		Tag: tag,
	}
}

// InstallationEvent is the app being installed on an account. There is
// no repository configuration to match against, so it never carries a
// job trigger.
type InstallationEvent struct {
	base
	Account        string
	Sender         string
	InstallationID int64
}

func NewInstallation(account, sender string, installationID int64) *InstallationEvent {
	return &InstallationEvent{
		base: base{
			kind:       TriggerInstallation,
			identifier: account,
			actor:      sender,
		},
		Account:        account,
		Sender:         sender,
		InstallationID: installationID,
	}
}

// BuildStartEvent reports that a build for an earlier dispatch started.
// It inherits the job trigger of the run it reports on.
type BuildStartEvent struct {
	base
	BuildID int64
	Target  string
}

func NewBuildStart(projectURL string, buildID int64, target string, origin JobTrigger, sha string) *BuildStartEvent {
	return &BuildStartEvent{
		base: base{
			kind:       TriggerBuildStart,
			jobTrigger: origin,
			projectURL: projectURL,
			identifier: strconv.FormatInt(buildID, 10),
			commitSHA:  sha,
			triggerKey: fmt.Sprintf("build/%d", buildID),
		},
		BuildID: buildID,
		Target:  target,
	}
}

func (e *BuildStartEvent) Snapshot() EventData {
	d := e.base.Snapshot()
	d.Target = e.Target
	return d
}

// BuildEndEvent reports a finished build together with its result.
type BuildEndEvent struct {
	base
	BuildID int64
	Target  string
	Status  string
}

func NewBuildEnd(projectURL string, buildID int64, target, status string, origin JobTrigger, sha string) *BuildEndEvent {
	return &BuildEndEvent{
		base: base{
			kind:       TriggerBuildEnd,
			jobTrigger: origin,
			projectURL: projectURL,
			identifier: strconv.FormatInt(buildID, 10),
			commitSHA:  sha,
			triggerKey: fmt.Sprintf("build/%d", buildID),
		},
		BuildID: buildID,
		Target:  target,
		Status:  status,
	}
}

func (e *BuildEndEvent) Snapshot() EventData {
	d := e.base.Snapshot()
	d.Status = e.Status
	d.Target = e.Target
	return d
}

// TestResultsEvent is a callback from the testing system.
type TestResultsEvent struct {
	base
	PipelineID string
	Target     string
	Status     string
}

func NewTestResults(projectURL, pipelineID, target, status string, origin JobTrigger, sha string) *TestResultsEvent {
	return &TestResultsEvent{
		base: base{
			kind:       TriggerTestResults,
			jobTrigger: origin,
			projectURL: projectURL,
			identifier: pipelineID,
			commitSHA:  sha,
			triggerKey: fmt.Sprintf("pipeline/%s", pipelineID),
		},
		PipelineID: pipelineID,
		Target:     target,
		Status:     status,
	}
}

func (e *TestResultsEvent) Snapshot() EventData {
	d := e.base.Snapshot()
	d.Status = e.Status
	d.Target = e.Target
	return d
}

// CommitLabelEvent is a label change on a commit in the source forge.
type CommitLabelEvent struct {
	base
	Label string
}

func NewCommitLabel(projectURL, sha, label, actor string) *CommitLabelEvent {
	return &CommitLabelEvent{
		base: base{
			kind:       TriggerCommitLabel,
			jobTrigger: JobTriggerCommit,
			projectURL: projectURL,
			identifier: sha,
			actor:      actor,
			commitSHA:  sha,
		},
		Label: label,
	}
}

// DistgitCommitEvent is a push to a downstream distribution repository.
type DistgitCommitEvent struct {
	base
	Branch  string
	Package string
}

func NewDistgitCommit(projectURL, branch, pkg, sha string) *DistgitCommitEvent {
	return &DistgitCommitEvent{
		base: base{
			kind:       TriggerDistgitCommit,
			jobTrigger: JobTriggerCommit,
			projectURL: projectURL,
			identifier: branch,
			commitSHA:  sha,
			triggerKey: fmt.Sprintf("branch/%s/%s", projectURL, branch),
		},
		Branch:  branch,
		Package: pkg,
	}
}
