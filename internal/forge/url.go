package forge

import (
	"fmt"
	"regexp"
	"strings"
)

var projectURLRegex = regexp.MustCompile(`^(?:https?://)?([^/]+)/([^/]+)/([^/]+?)(?:\.git)?/?$`)

// SplitProjectURL parses a project web URL into host, owner and repo.
// Supported format: https://{host}/{owner}/{repo}
func SplitProjectURL(url string) (host, owner, repo string, err error) {
	matches := projectURLRegex.FindStringSubmatch(strings.TrimSpace(url))
	if len(matches) != 4 {
		return "", "", "", fmt.Errorf("invalid project URL format: %s", url)
	}
	return matches[1], matches[2], matches[3], nil
}

// Namespace converts a project URL into the allowlist namespace form:
// host/owner/repo.git. The .git suffix keeps repository entries
// distinguishable from namespace entries during the parent walk.
func Namespace(projectURL string) (string, error) {
	host, owner, repo, err := SplitProjectURL(projectURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s.git", host, owner, repo), nil
}

// UserNamespace is the allowlist namespace of a single user on the
// forge the project lives on.
func UserNamespace(projectURL, login string) (string, error) {
	host, _, _, err := SplitProjectURL(projectURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s", host, login), nil
}

// CloneURL derives the anonymous clone URL from a project web URL.
func CloneURL(projectURL string) string {
	url := strings.TrimSuffix(strings.TrimSpace(projectURL), "/")
	if strings.HasSuffix(url, ".git") {
		return url
	}
	return url + ".git"
}
