package forge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/forgebot/forgebot/internal/config"
	"github.com/forgebot/forgebot/internal/events"
)

// githubProject implements Project on top of the official go-github
// client, scoped to one owner/repo pair.
type githubProject struct {
	client *github.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// NewGitHubProject wraps a go-github client as a Project handle.
func NewGitHubProject(client *github.Client, owner, repo string, logger *slog.Logger) Project {
	return &githubProject{client: client, owner: owner, repo: repo, logger: logger}
}

func (g *githubProject) PostComment(ctx context.Context, threadID int, body string) error {
	comment := &github.IssueComment{Body: &body}
	_, _, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, threadID, comment)
	if err != nil {
		g.logger.Error("failed to create comment", "owner", g.owner, "repo", g.repo, "thread", threadID, "error", err)
	}
	return err
}

func (g *githubProject) PostCommitComment(ctx context.Context, sha, body string) error {
	comment := &github.RepositoryComment{Body: &body}
	_, _, err := g.client.Repositories.CreateComment(ctx, g.owner, g.repo, sha, comment)
	if err != nil {
		g.logger.Error("failed to create commit comment", "owner", g.owner, "repo", g.repo, "sha", sha, "error", err)
	}
	return err
}

func (g *githubProject) SetCommitStatus(ctx context.Context, sha string, opts CommitStatusOptions) error {
	state := string(opts.State)
	if opts.State == StatusNeutral {
		// the commit status API has no neutral state
		state = string(StatusError)
	}
	status := &github.RepoStatus{
		State:       github.Ptr(state),
		Context:     github.Ptr(opts.Context),
		Description: github.Ptr(opts.Description),
	}
	if opts.TargetURL != "" {
		status.TargetURL = github.Ptr(opts.TargetURL)
	}
	_, _, err := g.client.Repositories.CreateStatus(ctx, g.owner, g.repo, sha, status)
	if err != nil {
		g.logger.Error("failed to set commit status", "owner", g.owner, "repo", g.repo, "sha", sha, "context", opts.Context, "error", err)
	}
	return err
}

func (g *githubProject) CanMergePullRequest(ctx context.Context, login string) (bool, error) {
	perm, _, err := g.client.Repositories.GetPermissionLevel(ctx, g.owner, g.repo, login)
	if err != nil {
		g.logger.Error("failed to get permission level", "owner", g.owner, "repo", g.repo, "login", login, "error", err)
		return false, err
	}
	switch perm.GetPermission() {
	case "admin", "write":
		return true, nil
	default:
		return false, nil
	}
}

func (g *githubProject) GetPullRequestAuthor(ctx context.Context, number int) (string, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", g.owner, "repo", g.repo, "pr", number, "error", err)
		return "", err
	}
	return pr.GetUser().GetLogin(), nil
}

func (g *githubProject) GetPullRequestHeadSHA(ctx context.Context, number int) (string, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", g.owner, "repo", g.repo, "pr", number, "error", err)
		return "", err
	}
	return pr.GetHead().GetSHA(), nil
}

func (g *githubProject) HasCommit(ctx context.Context, sha string) (bool, error) {
	_, resp, err := g.client.Repositories.GetCommit(ctx, g.owner, g.repo, sha, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *githubProject) CreateIssue(ctx context.Context, title, body string) (int, error) {
	issue, _, err := g.client.Issues.Create(ctx, g.owner, g.repo, &github.IssueRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
	})
	if err != nil {
		g.logger.Error("failed to create issue", "owner", g.owner, "repo", g.repo, "error", err)
		return 0, err
	}
	return issue.GetNumber(), nil
}

// appResolver builds installation-authenticated Project handles from
// the GitHub App credentials.
type appResolver struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewAppResolver returns a Resolver that authenticates as the GitHub
// App installation owning the event's repository.
func NewAppResolver(cfg *config.Config, logger *slog.Logger) Resolver {
	return &appResolver{cfg: cfg, logger: logger}
}

func (r *appResolver) ProjectFor(ctx context.Context, data events.EventData) (Project, error) {
	_, owner, repo, err := SplitProjectURL(data.ProjectURL)
	if err != nil {
		return nil, err
	}

	privateKey, err := os.ReadFile(r.cfg.GitHub.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", r.cfg.GitHub.PrivateKeyPath, err)
	}

	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, r.cfg.GitHub.AppID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport})

	installation, _, err := appClient.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("app is not installed on %s/%s: %w", owner, repo, err)
	}

	transport := ghinstallation.NewFromAppsTransport(appTransport, installation.GetID())
	client := github.NewClient(&http.Client{Transport: transport})

	return NewGitHubProject(client, owner, repo, r.logger), nil
}

// NewPATResolver returns a Resolver authenticated with a personal
// access token. Used by the CLI where no app installation is available.
func NewPATResolver(token string, logger *slog.Logger) Resolver {
	return &patResolver{token: token, logger: logger}
}

type patResolver struct {
	token  string
	logger *slog.Logger
}

func (r *patResolver) ProjectFor(ctx context.Context, data events.EventData) (Project, error) {
	_, owner, repo, err := SplitProjectURL(data.ProjectURL)
	if err != nil {
		return nil, err
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: r.token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	return NewGitHubProject(client, owner, repo, r.logger), nil
}
