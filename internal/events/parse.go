package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v73/github"
)

// ErrUnsupported is returned for webhook payloads the service does not
// react to. Callers acknowledge and drop these.
var ErrUnsupported = errors.New("unsupported webhook event")

// ParseWebhook normalizes a parsed go-github webhook payload into a
// typed event. It is the anti-corruption layer between the forge's
// payload shapes and the dispatcher: it validates that the payload
// carries everything a dispatch needs and drops everything else.
func ParseWebhook(payload any) (Event, error) {
	switch e := payload.(type) {
	case *github.PullRequestEvent:
		return parsePullRequest(e)
	case *github.PushEvent:
		return parsePush(e)
	case *github.ReleaseEvent:
		return parseRelease(e)
	case *github.IssueCommentEvent:
		return parseIssueComment(e)
	case *github.CommitCommentEvent:
		return parseCommitComment(e)
	case *github.InstallationEvent:
		return parseInstallation(e)
	default:
		return nil, ErrUnsupported
	}
}

func parsePullRequest(e *github.PullRequestEvent) (Event, error) {
	switch e.GetAction() {
	case "opened", "reopened", "synchronize":
	default:
		return nil, fmt.Errorf("%w: pull request action %q", ErrUnsupported, e.GetAction())
	}

	pr := e.GetPullRequest()
	repo := e.GetRepo()
	if repo.GetHTMLURL() == "" || pr.GetNumber() <= 0 {
		return nil, errors.New("pull request payload is missing repository or number")
	}
	if pr.GetHead().GetSHA() == "" {
		return nil, errors.New("pull request payload is missing the head SHA")
	}

	return NewPullRequest(
		repo.GetHTMLURL(),
		pr.GetNumber(),
		e.GetSender().GetLogin(),
		pr.GetHead().GetSHA(),
		pr.GetBase().GetRef(),
	), nil
}

func parsePush(e *github.PushEvent) (Event, error) {
	repo := e.GetRepo()
	if repo.GetHTMLURL() == "" {
		return nil, errors.New("push payload is missing the repository")
	}
	branch := strings.TrimPrefix(e.GetRef(), "refs/heads/")
	if branch == e.GetRef() {
		// tag pushes arrive as release events, nothing to do here
		return nil, fmt.Errorf("%w: push to %q", ErrUnsupported, e.GetRef())
	}

	return NewPush(
		repo.GetHTMLURL(),
		branch,
		e.GetSender().GetLogin(),
		e.GetAfter(),
	), nil
}

func parseRelease(e *github.ReleaseEvent) (Event, error) {
	if e.GetAction() != "published" {
		return nil, fmt.Errorf("%w: release action %q", ErrUnsupported, e.GetAction())
	}
	repo := e.GetRepo()
	rel := e.GetRelease()
	if repo.GetHTMLURL() == "" || rel.GetTagName() == "" {
		return nil, errors.New("release payload is missing repository or tag")
	}

	return NewRelease(
		repo.GetHTMLURL(),
		rel.GetTagName(),
		e.GetSender().GetLogin(),
		"",
	), nil
}

func parseIssueComment(e *github.IssueCommentEvent) (Event, error) {
	if e.GetAction() != "created" {
		return nil, fmt.Errorf("%w: comment action %q", ErrUnsupported, e.GetAction())
	}
	repo := e.GetRepo()
	if repo.GetHTMLURL() == "" {
		return nil, errors.New("comment payload is missing the repository")
	}
	actor := e.GetComment().GetUser().GetLogin()
	if actor == "" {
		return nil, errors.New("comment payload is missing the commenter")
	}
	body := e.GetComment().GetBody()
	number := e.GetIssue().GetNumber()
	if number <= 0 {
		return nil, fmt.Errorf("invalid issue number: %d", number)
	}

	if e.GetIssue().IsPullRequest() {
		return NewPullRequestComment(repo.GetHTMLURL(), number, actor, "", body), nil
	}
	return NewIssueComment(repo.GetHTMLURL(), number, actor, body), nil
}

func parseCommitComment(e *github.CommitCommentEvent) (Event, error) {
	repo := e.GetRepo()
	c := e.GetComment()
	if repo.GetHTMLURL() == "" || c.GetCommitID() == "" {
		return nil, errors.New("commit comment payload is missing repository or commit")
	}

	return NewCommitComment(
		repo.GetHTMLURL(),
		c.GetCommitID(),
		c.GetUser().GetLogin(),
		c.GetBody(),
	), nil
}

func parseInstallation(e *github.InstallationEvent) (Event, error) {
	if e.GetAction() != "created" {
		return nil, fmt.Errorf("%w: installation action %q", ErrUnsupported, e.GetAction())
	}
	inst := e.GetInstallation()
	if inst.GetAccount().GetLogin() == "" || inst.GetID() == 0 {
		return nil, errors.New("installation payload is missing account or id")
	}

	return NewInstallation(
		inst.GetAccount().GetLogin(),
		e.GetSender().GetLogin(),
		inst.GetID(),
	), nil
}
