package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/forgebot/forgebot/internal/allowlist"
	"github.com/forgebot/forgebot/internal/app"
	"github.com/forgebot/forgebot/internal/storage"
	"github.com/forgebot/forgebot/internal/wire"
)

func initializeAppCmd() tea.Cmd {
	return func() tea.Msg {
		application, cleanup, err := wire.InitializeApp(context.Background())
		return appInitializedMsg{app: application, cleanup: cleanup, err: err}
	}
}

func loadResultsCmd(a *app.App, limit int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		results, err := a.Store.RecentTaskResults(ctx, limit)
		return resultsLoadedMsg{results: results, err: err}
	}
}

func loadNamespacesCmd(a *app.App) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		entries, err := a.Store.ListNamespaces(ctx)
		return namespacesLoadedMsg{entries: entries, err: err}
	}
}

func setStatusCmd(a *app.App, namespace string, status allowlist.Status) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := a.Store.SetNamespaceStatus(ctx, namespace, string(status))
		return statusSetMsg{namespace: namespace, status: status, err: err}
	}
}

// renderDetailCmd renders a single task result as markdown so the
// event snapshot and handler details read well in the viewport.
func renderDetailCmd(result storage.TaskResult, width int) tea.Cmd {
	return func() tea.Msg {
		rendered, err := renderResultMarkdown(result, width)
		return detailRenderedMsg{id: result.ID, rendered: rendered, err: err}
	}
}

func renderResultMarkdown(result storage.TaskResult, width int) (string, error) {
	var b strings.Builder

	outcome := "failure"
	if result.Success {
		outcome = "success"
	}

	fmt.Fprintf(&b, "# Task #%d\n\n", result.ID)
	fmt.Fprintf(&b, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Handler | `%s` |\n", result.Handler)
	fmt.Fprintf(&b, "| Job type | `%s` |\n", result.JobType)
	fmt.Fprintf(&b, "| Trigger | `%s` |\n", result.TriggerKey)
	fmt.Fprintf(&b, "| Outcome | %s |\n", outcome)
	fmt.Fprintf(&b, "| Attempt | %d |\n", result.Attempt)
	fmt.Fprintf(&b, "| Recorded | %s |\n", result.CreatedAt.Format(time.RFC3339))

	if result.Message != "" {
		fmt.Fprintf(&b, "\n## Message\n\n%s\n", result.Message)
	}

	if event, err := result.EventData(); err == nil && event.Kind != "" {
		if pretty, err := json.MarshalIndent(event, "", "  "); err == nil {
			fmt.Fprintf(&b, "\n## Event\n\n```json\n%s\n```\n", pretty)
		}
	}

	if len(result.Details) > 0 {
		fmt.Fprintf(&b, "\n## Details\n\n```json\n%s\n```\n", result.Details)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	return renderer.Render(b.String())
}
