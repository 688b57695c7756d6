package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/forgebot/forgebot/internal/allowlist"
	"github.com/forgebot/forgebot/internal/app"
	"github.com/forgebot/forgebot/internal/storage"
)

const asciiLogo = `
╔══════════════════════════════════════════════════════════════════╗
║                                                                  ║
║   ███████╗ ██████╗ ██████╗  ██████╗ ███████╗██████╗  ██████╗ ████████╗
║   ██╔════╝██╔═══██╗██╔══██╗██╔════╝ ██╔════╝██╔══██╗██╔═══██╗╚══██╔══╝
║   █████╗  ██║   ██║██████╔╝██║  ███╗█████╗  ██████╔╝██║   ██║   ██║
║   ██╔══╝  ██║   ██║██╔══██╗██║   ██║██╔══╝  ██╔══██╗██║   ██║   ██║
║   ██║     ╚██████╔╝██║  ██║╚██████╔╝███████╗██████╔╝╚██████╔╝   ██║
║   ╚═╝      ╚═════╝ ╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═════╝  ╚═════╝    ╚═╝
║                                                                  ║
║                    EVENT DISPATCH OPERATIONS CONSOLE             ║
║                                                                  ║
╚══════════════════════════════════════════════════════════════════╝
`

const defaultResultLimit = 25

type model struct {
	styles styles
	app    *app.App

	viewport  viewport.Model
	textarea  textarea.Model
	spinner   spinner.Model
	isLoading bool

	results    []storage.TaskResult
	namespaces []storage.NamespaceEntry
	history    []string
}

func initialModel(theme ThemeName) *model {
	styles := GetTheme(theme)
	ta := textarea.New()
	ta.Placeholder = "Enter command, e.g. /results"
	ta.Focus()
	ta.Prompt = styles.prompt.Render("► ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))

	return &model{
		styles:    styles,
		textarea:  ta,
		spinner:   sp,
		isLoading: true,
		history:   []string{styles.ascii.Render(asciiLogo), "", "⚙ CONNECTING TO FORGEBOT BACKEND..."},
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(initializeAppCmd(), m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.spinner, spCmd = m.spinner.Update(msg)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			m.textarea.Reset()
			return m, m.processCommand(input)
		}

	case appInitializedMsg:
		m.isLoading = false
		if msg.err != nil {
			fmt.Fprintf(os.Stderr, "ERROR initializing app: %v\n", msg.err)
			m.appendHistory("", m.styles.error.Render(msg.err.Error()))
			return m, nil
		}
		m.app = msg.app
		m.appendHistory("", m.styles.success.Render("✓ BACKEND ONLINE"))
		m.isLoading = true
		return m, tea.Batch(m.spinner.Tick, loadResultsCmd(m.app, defaultResultLimit))

	case resultsLoadedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.appendHistory("", m.styles.error.Render("Could not load task results: "+msg.err.Error()))
			return m, nil
		}
		m.results = msg.results
		m.appendHistory("", m.renderResultsList())
		m.appendHistory("", "Type /help for commands.")
		return m, nil

	case namespacesLoadedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.appendHistory("", m.styles.error.Render("Could not load allowlist: "+msg.err.Error()))
			return m, nil
		}
		m.namespaces = msg.entries
		m.appendHistory("", m.renderNamespaceList())
		return m, nil

	case statusSetMsg:
		m.isLoading = false
		if msg.err != nil {
			m.appendHistory("", m.styles.error.Render("Could not update allowlist: "+msg.err.Error()))
			return m, nil
		}
		m.appendHistory("", m.styles.success.Render(fmt.Sprintf("✓ %s is now %s", msg.namespace, msg.status)))
		m.isLoading = true
		return m, tea.Batch(m.spinner.Tick, loadNamespacesCmd(m.app))

	case detailRenderedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.appendHistory("", m.styles.error.Render("Could not render task: "+msg.err.Error()))
			return m, nil
		}
		m.appendHistory("", msg.rendered)
		return m, nil

	case errorMsg:
		m.isLoading = false
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", msg.err)
		m.appendHistory("", m.styles.error.Render("⚠ "+msg.err.Error()))
		return m, nil

	case tea.WindowSizeMsg:
		m.styles.header.Width(msg.Width - 4)
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 10
		m.textarea.SetWidth(msg.Width - 10)
		m.viewport.SetContent(strings.Join(m.history, "\n"))
	}

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m *model) View() string {
	if m.app == nil {
		return fmt.Sprintf("\n  %s BOOTING CONSOLE...\n\n", m.spinner.View())
	}

	var statusParts []string
	statusParts = append(statusParts, fmt.Sprintf("TASKS: %d", len(m.results)))
	if failed := m.failedCount(); failed > 0 {
		statusParts = append(statusParts, m.styles.error.Render(fmt.Sprintf("● %d FAILED", failed)))
	} else {
		statusParts = append(statusParts, m.styles.success.Render("● ALL GREEN"))
	}
	statusParts = append(statusParts, fmt.Sprintf("NAMESPACES: %d", len(m.namespaces)))

	status := m.styles.inactive.Render(strings.Join(statusParts, " │ "))

	var loadingIndicator string
	if m.isLoading {
		loadingIndicator = " " + m.spinner.View() + " " + m.styles.success.Render("WORKING...")
	}

	return m.styles.app.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.styles.viewport.Render(m.viewport.View()),
			"",
			m.styles.footer.Render(
				lipgloss.JoinHorizontal(lipgloss.Left,
					m.textarea.View(),
					loadingIndicator,
				),
			),
			status,
		),
	)
}

func (m *model) appendHistory(lines ...string) {
	m.history = append(m.history, lines...)
	m.viewport.SetContent(strings.Join(m.history, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) failedCount() int {
	var n int
	for _, r := range m.results {
		if !r.Success {
			n++
		}
	}
	return n
}

func (m *model) renderResultsList() string {
	if len(m.results) == 0 {
		return m.styles.inactive.Render("No task results recorded yet.")
	}

	var b strings.Builder
	b.WriteString(m.styles.success.Render("RECENT TASKS:"))
	for _, r := range m.results {
		mark := m.styles.success.Render("✓")
		if !r.Success {
			mark = m.styles.error.Render("✗")
		}
		line := fmt.Sprintf("\n  %s #%-5d %-24s %-20s attempt %d  %s",
			mark, r.ID, r.Handler, r.JobType, r.Attempt+1, r.CreatedAt.Format("2006-01-02 15:04"))
		b.WriteString(line)
		if r.Message != "" {
			b.WriteString("\n        " + m.styles.inactive.Render(truncate(r.Message, 80)))
		}
	}
	b.WriteString("\n\n" + m.styles.inactive.Render("Use '/show [id]' for the full record."))
	return b.String()
}

func (m *model) renderNamespaceList() string {
	if len(m.namespaces) == 0 {
		return m.styles.inactive.Render("The allowlist is empty. Use '/approve [namespace]' to add one.")
	}

	var b strings.Builder
	b.WriteString(m.styles.success.Render("ALLOWLIST:"))
	for _, e := range m.namespaces {
		st := allowlist.Status(e.Status)
		status := m.styles.warning.Render(e.Status)
		switch {
		case st.Approved():
			status = m.styles.success.Render(e.Status)
		case st == allowlist.StatusDenied:
			status = m.styles.error.Render(e.Status)
		}
		b.WriteString(fmt.Sprintf("\n  %-50s [%s]", e.Namespace, status))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func (m *model) processCommand(input string) tea.Cmd {
	m.appendHistory(m.styles.prompt.Render("► ") + input)

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	command := parts[0]
	args := parts[1:]

	switch command {
	case "/results", "/ls":
		limit := defaultResultLimit
		if len(args) == 1 {
			if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
				limit = n
			}
		}
		m.isLoading = true
		return tea.Batch(m.spinner.Tick, loadResultsCmd(m.app, limit))

	case "/show":
		if len(args) != 1 {
			m.appendHistory(m.styles.error.Render("USAGE: /show [id]"))
			return nil
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			m.appendHistory(m.styles.error.Render("USAGE: /show [id]"))
			return nil
		}
		for _, r := range m.results {
			if r.ID == id {
				m.isLoading = true
				return tea.Batch(m.spinner.Tick, renderDetailCmd(r, m.viewport.Width))
			}
		}
		m.appendHistory(m.styles.error.Render(fmt.Sprintf("Task #%d is not in the current list. Run /results first.", id)))
		return nil

	case "/allowlist", "/al":
		m.isLoading = true
		return tea.Batch(m.spinner.Tick, loadNamespacesCmd(m.app))

	case "/approve":
		if len(args) != 1 {
			m.appendHistory(m.styles.error.Render("USAGE: /approve [namespace]"))
			return nil
		}
		m.isLoading = true
		return tea.Batch(m.spinner.Tick, setStatusCmd(m.app, args[0], allowlist.StatusApprovedManually))

	case "/deny":
		if len(args) != 1 {
			m.appendHistory(m.styles.error.Render("USAGE: /deny [namespace]"))
			return nil
		}
		m.isLoading = true
		return tea.Batch(m.spinner.Tick, setStatusCmd(m.app, args[0], allowlist.StatusDenied))

	case "/help", "/h":
		helpText := m.styles.success.Render("AVAILABLE COMMANDS:") + `

  /results [n], /ls    List the most recent task results (default ` + strconv.Itoa(defaultResultLimit) + `).
  /show [id]           Show the full record of one task, event snapshot included.
  /allowlist, /al      List allowlist namespaces and their statuses.
  /approve [namespace] Approve a namespace for job execution.
  /deny [namespace]    Deny a namespace.
  /help                Show this help message.
  /exit, /quit         Exit the console.`
		m.appendHistory("", helpText)
		return nil

	case "/exit", "/quit":
		return tea.Quit

	default:
		m.appendHistory("", m.styles.error.Render(fmt.Sprintf("UNKNOWN COMMAND: %s", command)), m.styles.inactive.Render("Type /help for assistance."))
		return nil
	}
}
