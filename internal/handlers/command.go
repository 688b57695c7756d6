package handlers

import "strings"

// NormalizeCommand canonicalizes a comment command token: lowercase,
// trimmed, with underscores folded to hyphens so `copr_build` and
// `copr-build` resolve to the same handler.
func NormalizeCommand(token string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(token)), "_", "-")
}

// CommandFromComment extracts the first bot command from a comment
// body. Commands open a line with the configured prefix followed by
// the command token and optional arguments:
//
//	/forgebot copr-build
//	/forgebot test --all
//
// Only the first command line counts; the rest of the comment is free
// text.
func CommandFromComment(body, prefix string) (cmd string, args []string, ok bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", nil, false
	}

	for _, line := range strings.Split(body, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if fields[0] != prefix {
			continue
		}
		args := fields[2:]
		if len(args) == 0 {
			args = nil
		}
		return NormalizeCommand(fields[1]), args, true
	}

	return "", nil, false
}
