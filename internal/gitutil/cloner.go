// Package gitutil checks repositories out for the pieces of the
// service that need file contents: the job configuration resolver and
// the handlers preparing downstream updates.
package gitutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Client clones repositories into throwaway directories.
type Client struct {
	Logger *slog.Logger
	// Token authenticates clones of private repositories; empty for
	// anonymous access.
	Token string
}

// NewClient returns a new Client instance.
func NewClient(logger *slog.Logger, token string) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{Logger: logger, Token: token}
}

// Clone checks the repository out at ref into a fresh temporary
// directory. An empty ref means the remote HEAD. cleanup removes the
// checkout and is safe to call even on error.
func (c *Client) Clone(ctx context.Context, repoURL, ref string) (string, func(), error) {
	path, err := os.MkdirTemp("", "forgebot-clone-*")
	if err != nil {
		return "", func() {}, fmt.Errorf("create clone directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(path); err != nil {
			c.Logger.Error("failed to remove clone directory", "path", path, "error", err)
		}
	}

	c.Logger.Info("cloning repository", "url", repoURL, "ref", ref, "path", path)
	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:  c.authenticatedURL(repoURL),
		Tags: git.AllTags,
	})
	if err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("clone %s: %w", repoURL, err)
	}

	if ref != "" {
		if err := checkout(repo, ref); err != nil {
			cleanup()
			return "", func() {}, err
		}
	}
	return path, cleanup, nil
}

// checkout moves the worktree to the commit the ref resolves to. The
// ref may be a SHA, a tag, or a branch name.
func checkout(repo *git.Repository, ref string) error {
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return fmt.Errorf("resolve ref %q: %w", ref, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return fmt.Errorf("checkout %s: %w", hash, err)
	}
	return nil
}

// authenticatedURL injects the token for private clones over https.
func (c *Client) authenticatedURL(repoURL string) string {
	if c.Token == "" {
		return repoURL
	}
	const prefix = "https://"
	if len(repoURL) <= len(prefix) || repoURL[:len(prefix)] != prefix {
		return repoURL
	}
	return fmt.Sprintf("%sx-access-token:%s@%s", prefix, c.Token, repoURL[len(prefix):])
}
