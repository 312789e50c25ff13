package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/git-ai-sync/internal/ai"
	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:     "resolve [path]",
	GroupID: "sync",
	Short:   "Resolve a stopped rebase or merge with AI, then push",
	Long: `Resolve the conflicts of a rebase or merge that is stopped in the repository,
continue the operation, and push the result.

Use this after a manual 'git pull' or 'git merge' stopped on conflicts. If the
model cannot resolve every file, the operation is aborted and the branch is
restored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if !cfg.HasAPIKey() {
		return fmt.Errorf("%w: resolve needs an Anthropic API key", ai.ErrNoAPIKey)
	}

	s, err := openSession(ctx, pathArg(args))
	if err != nil {
		return err
	}
	defer s.Close()

	state, err := resolver.Classify(ctx, s.repo)
	if err != nil {
		return err
	}
	if !state.InProgress() {
		return fmt.Errorf("no rebase or merge in progress (state: %s)", state)
	}

	mode, _ := state.Mode()
	fmt.Fprintf(cmd.OutOrStdout(), "Resolving %s in %s\n", mode, s.repo.Root())
	return runCycle(ctx, cmd, s)
}
