package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
	"github.com/mschirtzinger/git-ai-sync/internal/ui"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

var statusCmd = &cobra.Command{
	Use:     "status [path]",
	GroupID: "setup",
	Short:   "Show sync state of a repository",
	Long: `Show the repository, branch, working tree state, local changes, how far the
branch is ahead of or behind its upstream, and recent commits.

The --since flag accepts natural language:
  git-ai-sync status --since "2 hours ago"
  git-ai-sync status --since yesterday`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().String("since", "", "only list commits newer than this (e.g. \"3 days ago\")")
	statusCmd.Flags().Int("limit", 5, "maximum number of recent commits to list")

	rootCmd.AddCommand(statusCmd)
}

// parseSince turns a phrase like "2 hours ago" into a time before now.
func parseSince(phrase string, now time.Time) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(phrase, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: %w", phrase, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("invalid --since %q: no date found", phrase)
	}
	return r.Time, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	since, _ := cmd.Flags().GetString("since")
	maxCommits, _ := cmd.Flags().GetInt("limit")

	logRange := vcs.LogRange{Limit: maxCommits}
	if since != "" {
		t, err := parseSince(since, time.Now())
		if err != nil {
			return err
		}
		logRange.Since = t
	}

	repo, err := openRepo(ctx, pathArg(args))
	if err != nil {
		return err
	}

	branch, err := repo.CurrentBranch(ctx)
	if err != nil {
		return err
	}

	state, err := resolver.Classify(ctx, repo)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s\n", ui.RenderBold("Repository:"), repo.Root())
	fmt.Fprintf(out, "%s %s\n", ui.RenderBold("Branch:    "), branchLabel(branch))
	fmt.Fprintf(out, "%s %s\n", ui.RenderBold("State:     "), renderState(state))

	if repo.HasRemote(ctx) {
		div, err := repo.AheadBehind(ctx)
		if err != nil {
			return err
		}
		if div.HasUpstream {
			fmt.Fprintf(out, "%s %d ahead, %d behind\n", ui.RenderBold("Upstream:  "), div.Ahead, div.Behind)
		} else {
			fmt.Fprintf(out, "%s %s\n", ui.RenderBold("Upstream:  "), ui.RenderMuted("none (set on first push)"))
		}
	} else {
		fmt.Fprintf(out, "%s %s\n", ui.RenderBold("Remote:    "), ui.RenderFail("none configured"))
	}

	changes, err := repo.ChangedFilesShort(ctx)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Fprintf(out, "%s %s\n", ui.RenderBold("Changes:   "), ui.RenderMuted("none"))
	} else {
		fmt.Fprintf(out, "%s %d file(s)\n", ui.RenderBold("Changes:   "), len(changes))
		for _, line := range limit(changes, maxChangesShown) {
			fmt.Fprintf(out, "  %s\n", line)
		}
		if n := len(changes) - maxChangesShown; n > 0 {
			fmt.Fprintf(out, "  %s\n", ui.RenderMuted(fmt.Sprintf("... and %d more", n)))
		}
	}

	if state.InProgress() {
		mode, _ := state.Mode()
		fmt.Fprintf(out, "\n%s a %s is in progress. Run 'git-ai-sync resolve' to finish it with AI,\n", ui.RenderWarn("!"), mode)
		fmt.Fprintf(out, "  or 'git %s --abort' to undo it.\n", mode)
	}

	commits, err := repo.CommitLog(ctx, logRange)
	if err != nil {
		return err
	}
	if len(commits) > 0 {
		fmt.Fprintf(out, "\n%s\n", ui.RenderBold("Recent commits:"))
		for _, c := range commits {
			fmt.Fprintf(out, "  %s %s %s\n",
				ui.RenderMuted(c.ShortHash()), c.Subject, ui.RenderMuted(c.When.Format(time.DateTime)))
		}
	}
	return nil
}

// branchLabel names the checked-out branch. CurrentBranch reports a
// detached HEAD as an empty name.
func branchLabel(branch string) string {
	if branch == "" {
		return ui.RenderWarn("(detached HEAD)")
	}
	return branch
}

func renderState(s resolver.State) string {
	switch s {
	case resolver.StateClean:
		return ui.RenderPass(s.String())
	case resolver.StateDirty:
		return ui.RenderAccent(s.String())
	case resolver.StateRebaseConflict, resolver.StateMergeConflict:
		return ui.RenderFail(s.String())
	default:
		return ui.RenderWarn(s.String())
	}
}
