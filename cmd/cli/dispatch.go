package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forgebot/forgebot/internal/events"
	"github.com/forgebot/forgebot/internal/wire"
)

var (
	dispatchProjectURL string
	dispatchNumber     int
	dispatchSHA        string
	dispatchActor      string
	dispatchBranch     string
	dispatchTag        string
	dispatchComment    string
	dispatchBuildID    int64
	dispatchPipelineID string
	dispatchTarget     string
	dispatchStatus     string
	dispatchTrigger    string
	dispatchLabel      string
	dispatchPackage    string
)

// dispatchCmd drives the same pipeline a webhook would, from the
// terminal. Useful for re-running an event that got lost, testing a
// repository's configuration, or feeding in build/test callbacks that
// have no webhook of their own.
var dispatchCmd = &cobra.Command{
	Use:   "dispatch <kind>",
	Short: "Dispatch a synthetic event",
	Long: `Dispatch a synthetic event through the same pipeline a webhook takes.

Supported kinds: pull_request, push, release, pr_comment, build_start,
build_end, test_results, commit_label, distgit_commit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		ctx := context.Background()

		event, err := buildEvent(args[0])
		if err != nil {
			return err
		}

		app, cleanup, err := wire.InitializeApp(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		// synchronous mode: handlers run in-process with retry delays
		// compressed, so nothing is left pending when we exit
		result, err := app.Dispatcher.DispatchNow(ctx, event)
		if err != nil {
			return fmt.Errorf("dispatch failed: %w", err)
		}

		if result.Neutral {
			fmt.Println(color.YellowString("neutral: %s", result.Reason))
			return nil
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	},
}

func buildEvent(kind string) (events.Event, error) {
	if dispatchProjectURL == "" {
		return nil, fmt.Errorf("--project-url is required")
	}
	switch kind {
	case "pull_request":
		if dispatchNumber <= 0 || dispatchSHA == "" {
			return nil, fmt.Errorf("pull_request needs --number and --sha")
		}
		return events.NewPullRequest(dispatchProjectURL, dispatchNumber, dispatchActor, dispatchSHA, dispatchBranch), nil
	case "push":
		if dispatchBranch == "" || dispatchSHA == "" {
			return nil, fmt.Errorf("push needs --branch and --sha")
		}
		return events.NewPush(dispatchProjectURL, dispatchBranch, dispatchActor, dispatchSHA), nil
	case "release":
		if dispatchTag == "" {
			return nil, fmt.Errorf("release needs --tag")
		}
		return events.NewRelease(dispatchProjectURL, dispatchTag, dispatchActor, dispatchSHA), nil
	case "pr_comment":
		if dispatchNumber <= 0 || dispatchComment == "" {
			return nil, fmt.Errorf("pr_comment needs --number and --comment")
		}
		return events.NewPullRequestComment(dispatchProjectURL, dispatchNumber, dispatchActor, dispatchSHA, dispatchComment), nil
	case "build_start":
		if dispatchBuildID <= 0 {
			return nil, fmt.Errorf("build_start needs --build-id")
		}
		origin, err := originTrigger()
		if err != nil {
			return nil, err
		}
		return events.NewBuildStart(dispatchProjectURL, dispatchBuildID, dispatchTarget, origin, dispatchSHA), nil
	case "build_end":
		if dispatchBuildID <= 0 || dispatchStatus == "" {
			return nil, fmt.Errorf("build_end needs --build-id and --status")
		}
		origin, err := originTrigger()
		if err != nil {
			return nil, err
		}
		return events.NewBuildEnd(dispatchProjectURL, dispatchBuildID, dispatchTarget, dispatchStatus, origin, dispatchSHA), nil
	case "test_results":
		if dispatchPipelineID == "" || dispatchStatus == "" {
			return nil, fmt.Errorf("test_results needs --pipeline-id and --status")
		}
		origin, err := originTrigger()
		if err != nil {
			return nil, err
		}
		return events.NewTestResults(dispatchProjectURL, dispatchPipelineID, dispatchTarget, dispatchStatus, origin, dispatchSHA), nil
	case "commit_label":
		if dispatchSHA == "" || dispatchLabel == "" {
			return nil, fmt.Errorf("commit_label needs --sha and --label")
		}
		return events.NewCommitLabel(dispatchProjectURL, dispatchSHA, dispatchLabel, dispatchActor), nil
	case "distgit_commit":
		if dispatchBranch == "" {
			return nil, fmt.Errorf("distgit_commit needs --branch")
		}
		return events.NewDistgitCommit(dispatchProjectURL, dispatchBranch, dispatchPackage, dispatchSHA), nil
	default:
		return nil, fmt.Errorf("unsupported event kind %q", kind)
	}
}

// originTrigger maps the --trigger flag to the job trigger the result
// event inherits from the run it reports on.
func originTrigger() (events.JobTrigger, error) {
	switch dispatchTrigger {
	case "", "pull_request":
		return events.JobTriggerPullRequest, nil
	case "commit":
		return events.JobTriggerCommit, nil
	case "release":
		return events.JobTriggerRelease, nil
	default:
		return "", fmt.Errorf("unsupported trigger %q", dispatchTrigger)
	}
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	dispatchCmd.Flags().StringVar(&dispatchProjectURL, "project-url", "", "Project web URL")
	dispatchCmd.Flags().IntVar(&dispatchNumber, "number", 0, "Pull request or issue number")
	dispatchCmd.Flags().StringVar(&dispatchSHA, "sha", "", "Commit SHA")
	dispatchCmd.Flags().StringVar(&dispatchActor, "actor", "", "Login of the acting user")
	dispatchCmd.Flags().StringVar(&dispatchBranch, "branch", "", "Branch name")
	dispatchCmd.Flags().StringVar(&dispatchTag, "tag", "", "Release tag")
	dispatchCmd.Flags().StringVar(&dispatchComment, "comment", "", "Comment body")
	dispatchCmd.Flags().Int64Var(&dispatchBuildID, "build-id", 0, "Build identifier for build callbacks")
	dispatchCmd.Flags().StringVar(&dispatchPipelineID, "pipeline-id", "", "Test pipeline identifier")
	dispatchCmd.Flags().StringVar(&dispatchTarget, "target", "", "Build or test target")
	dispatchCmd.Flags().StringVar(&dispatchStatus, "status", "", "Reported build or test status")
	dispatchCmd.Flags().StringVar(&dispatchTrigger, "trigger", "pull_request", "Job trigger the result event reports on (pull_request, commit, release)")
	dispatchCmd.Flags().StringVar(&dispatchLabel, "label", "", "Commit label")
	dispatchCmd.Flags().StringVar(&dispatchPackage, "package", "", "Downstream package name")
	rootCmd.AddCommand(dispatchCmd)
}
