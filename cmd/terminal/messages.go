package main

import (
	"github.com/forgebot/forgebot/internal/allowlist"
	"github.com/forgebot/forgebot/internal/app"
	"github.com/forgebot/forgebot/internal/storage"
)

// appInitializedMsg is sent once the application and its database
// connection are ready, or failed to come up.
type appInitializedMsg struct {
	app     *app.App
	cleanup func()
	err     error
}

type resultsLoadedMsg struct {
	results []storage.TaskResult
	err     error
}

type namespacesLoadedMsg struct {
	entries []storage.NamespaceEntry
	err     error
}

type statusSetMsg struct {
	namespace string
	status    allowlist.Status
	err       error
}

type detailRenderedMsg struct {
	id       int64
	rendered string
	err      error
}

type errorMsg struct {
	err error
}
