package events

import (
	"testing"

	"github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repoPayload() *github.Repository {
	return &github.Repository{HTMLURL: github.Ptr("https://github.com/acme/pkg")}
}

func TestParseWebhook_PullRequest(t *testing.T) {
	payload := &github.PullRequestEvent{
		Action: github.Ptr("opened"),
		Repo:   repoPayload(),
		Sender: &github.User{Login: github.Ptr("alice")},
		PullRequest: &github.PullRequest{
			Number: github.Ptr(7),
			Head:   &github.PullRequestBranch{SHA: github.Ptr("abc123")},
			Base:   &github.PullRequestBranch{Ref: github.Ptr("main")},
		},
	}

	ev, err := ParseWebhook(payload)
	require.NoError(t, err)

	pr, ok := ev.(*PullRequestEvent)
	require.True(t, ok)
	assert.Equal(t, TriggerPullRequest, pr.Kind())
	assert.Equal(t, JobTriggerPullRequest, pr.JobTrigger())
	assert.Equal(t, 7, pr.Number)
	assert.Equal(t, "alice", pr.Actor())
	assert.Equal(t, "abc123", pr.CommitSHA())
	assert.Equal(t, "main", pr.TargetBranch)
}

func TestParseWebhook_PullRequestIgnoredActions(t *testing.T) {
	payload := &github.PullRequestEvent{
		Action: github.Ptr("labeled"),
		Repo:   repoPayload(),
	}
	_, err := ParseWebhook(payload)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestParseWebhook_Push(t *testing.T) {
	payload := &github.PushEvent{
		Ref:    github.Ptr("refs/heads/main"),
		After:  github.Ptr("abc123"),
		Repo:   &github.PushEventRepository{HTMLURL: github.Ptr("https://github.com/acme/pkg")},
		Sender: &github.User{Login: github.Ptr("alice")},
	}

	ev, err := ParseWebhook(payload)
	require.NoError(t, err)

	push, ok := ev.(*PushEvent)
	require.True(t, ok)
	assert.Equal(t, "main", push.Branch)
	assert.Equal(t, JobTriggerCommit, push.JobTrigger())
	assert.Equal(t, "abc123", push.CommitSHA())
}

func TestParseWebhook_TagPushUnsupported(t *testing.T) {
	payload := &github.PushEvent{
		Ref:  github.Ptr("refs/tags/v1.0.0"),
		Repo: &github.PushEventRepository{HTMLURL: github.Ptr("https://github.com/acme/pkg")},
	}
	_, err := ParseWebhook(payload)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestParseWebhook_Release(t *testing.T) {
	payload := &github.ReleaseEvent{
		Action:  github.Ptr("published"),
		Repo:    repoPayload(),
		Sender:  &github.User{Login: github.Ptr("alice")},
		Release: &github.RepositoryRelease{TagName: github.Ptr("v1.0.0")},
	}

	ev, err := ParseWebhook(payload)
	require.NoError(t, err)

	rel, ok := ev.(*ReleaseEvent)
	require.True(t, ok)
	assert.Equal(t, "v1.0.0", rel.Tag)
	assert.Equal(t, JobTriggerRelease, rel.JobTrigger())
}

func TestParseWebhook_IssueCommentRoutesByThreadType(t *testing.T) {
	comment := &github.IssueComment{
		User: &github.User{Login: github.Ptr("alice")},
		Body: github.Ptr("/forgebot build"),
	}

	onPR := &github.IssueCommentEvent{
		Action:  github.Ptr("created"),
		Repo:    repoPayload(),
		Comment: comment,
		Issue: &github.Issue{
			Number:           github.Ptr(7),
			PullRequestLinks: &github.PullRequestLinks{URL: github.Ptr("https://api.github.com/repos/acme/pkg/pulls/7")},
		},
	}
	ev, err := ParseWebhook(onPR)
	require.NoError(t, err)
	prComment, ok := ev.(*PullRequestCommentEvent)
	require.True(t, ok, "comments on pull requests become PR comment events")
	assert.Equal(t, 7, prComment.ThreadID())
	assert.Equal(t, "/forgebot build", prComment.Comment())

	// the payload has no head commit, it is resolved later
	assert.Empty(t, prComment.CommitSHA())
	enriched := prComment.WithHeadSHA("abc123")
	assert.Equal(t, "abc123", enriched.CommitSHA())
	assert.Equal(t, "abc123", enriched.Snapshot().CommitSHA)
	assert.Empty(t, prComment.CommitSHA(), "the original event stays unchanged")

	onIssue := &github.IssueCommentEvent{
		Action:  github.Ptr("created"),
		Repo:    repoPayload(),
		Comment: comment,
		Issue:   &github.Issue{Number: github.Ptr(3)},
	}
	ev, err = ParseWebhook(onIssue)
	require.NoError(t, err)
	issueComment, ok := ev.(*IssueCommentEvent)
	require.True(t, ok)
	assert.Equal(t, 3, issueComment.ThreadID())
	assert.Equal(t, JobTriggerRelease, issueComment.JobTrigger())
}

func TestParseWebhook_EditedCommentUnsupported(t *testing.T) {
	payload := &github.IssueCommentEvent{
		Action: github.Ptr("edited"),
		Repo:   repoPayload(),
	}
	_, err := ParseWebhook(payload)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestParseWebhook_CommitComment(t *testing.T) {
	payload := &github.CommitCommentEvent{
		Repo: repoPayload(),
		Comment: &github.RepositoryComment{
			CommitID: github.Ptr("abc123"),
			User:     &github.User{Login: github.Ptr("alice")},
			Body:     github.Ptr("/forgebot rebuild-failed"),
		},
	}

	ev, err := ParseWebhook(payload)
	require.NoError(t, err)

	cc, ok := ev.(*CommitCommentEvent)
	require.True(t, ok)
	assert.Equal(t, "abc123", cc.CommitSHA())
	assert.Equal(t, 0, cc.ThreadID())
}

func TestParseWebhook_Installation(t *testing.T) {
	payload := &github.InstallationEvent{
		Action: github.Ptr("created"),
		Sender: &github.User{Login: github.Ptr("alice")},
		Installation: &github.Installation{
			ID:      github.Ptr(int64(99)),
			Account: &github.User{Login: github.Ptr("acme")},
		},
	}

	ev, err := ParseWebhook(payload)
	require.NoError(t, err)

	inst, ok := ev.(*InstallationEvent)
	require.True(t, ok)
	assert.Equal(t, "acme", inst.Account)
	assert.Equal(t, int64(99), inst.InstallationID)
	assert.Equal(t, JobTrigger(""), inst.JobTrigger())
}

func TestParseWebhook_UnknownPayload(t *testing.T) {
	_, err := ParseWebhook(&github.WatchEvent{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestEventTriggerKeys(t *testing.T) {
	pr := NewPullRequest("https://github.com/acme/pkg", 7, "alice", "abc", "main")
	key, ok := pr.TriggerKey()
	assert.True(t, ok)
	assert.Equal(t, "pr/https://github.com/acme/pkg/7", key)

	inst := NewInstallation("acme", "alice", 99)
	_, ok = inst.TriggerKey()
	assert.False(t, ok, "installations have no persisted trigger")
}
