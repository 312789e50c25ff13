package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	reposync "github.com/mschirtzinger/git-ai-sync/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:     "sync [path]",
	GroupID: "sync",
	Short:   "Run a single sync cycle",
	Long: `Run one sync cycle now, without waiting for the tree to be quiet:
commit local changes, pull with rebase (resolving conflicts with AI), and push.

Exits non-zero when the cycle fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx, pathArg(args))
	if err != nil {
		return err
	}
	defer s.Close()

	return runCycle(ctx, cmd, s)
}

// runCycle runs one cycle and prints its report. A failed cycle is
// returned as an error.
func runCycle(ctx context.Context, cmd *cobra.Command, s *session) error {
	changes, err := s.repo.ChangedFilesShort(ctx)
	if err != nil {
		logger.Debug("failed to list changes", "error", err)
	}

	rep := s.controller.RunCycle(ctx)
	if rep.Has(reposync.NoOp) {
		fmt.Fprintln(cmd.OutOrStdout(), "Already in sync")
		return nil
	}
	printReport(cmd.OutOrStdout(), rep, changes)

	if rep.Failed() {
		return fmt.Errorf("sync cycle failed (%s): %w", rep.Summary(), rep.Err())
	}
	return nil
}
