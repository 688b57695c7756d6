package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forgebot/forgebot/internal/allowlist"
	"github.com/forgebot/forgebot/internal/wire"
)

var allowlistCmd = &cobra.Command{
	Use:   "allowlist",
	Short: "Manage namespace approval",
}

var allowlistApproveCmd = &cobra.Command{
	Use:   "approve <namespace>",
	Short: "Approve a namespace (e.g. github.com/some-org or github.com/org/repo.git)",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setNamespaceStatus(args[0], allowlist.StatusApprovedManually)
	},
}

var allowlistDenyCmd = &cobra.Command{
	Use:   "deny <namespace>",
	Short: "Deny a namespace",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setNamespaceStatus(args[0], allowlist.StatusDenied)
	},
}

var allowlistWaitingCmd = &cobra.Command{
	Use:   "waiting <namespace>",
	Short: "Reset a namespace back to waiting",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return setNamespaceStatus(args[0], allowlist.StatusWaiting)
	},
}

var allowlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all namespaces and their status",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx := context.Background()

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		entries, err := app.Store.ListNamespaces(ctx)
		if err != nil {
			return fmt.Errorf("failed to list namespaces: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("The allowlist is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAMESPACE\tSTATUS\tUPDATED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				e.Namespace,
				colorStatus(allowlist.Status(e.Status)),
				e.UpdatedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func setNamespaceStatus(namespace string, status allowlist.Status) error {
	ctx := context.Background()

	app, cleanup, err := wire.InitializeApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize app services: %w", err)
	}
	defer cleanup()

	if err := app.Store.SetNamespaceStatus(ctx, namespace, string(status)); err != nil {
		return fmt.Errorf("failed to update namespace: %w", err)
	}
	fmt.Printf("%s is now %s\n", namespace, colorStatus(status))
	return nil
}

func colorStatus(status allowlist.Status) string {
	switch status {
	case allowlist.StatusApprovedManually, allowlist.StatusApprovedAutomatically:
		return color.GreenString(string(status))
	case allowlist.StatusDenied:
		return color.RedString(string(status))
	default:
		return color.YellowString(string(status))
	}
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	allowlistCmd.AddCommand(allowlistApproveCmd, allowlistDenyCmd, allowlistWaitingCmd, allowlistListCmd)
	rootCmd.AddCommand(allowlistCmd)
}
