package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/git-ai-sync/internal/config"
	"github.com/mschirtzinger/git-ai-sync/internal/daemon"
	"github.com/mschirtzinger/git-ai-sync/internal/dashboard"
	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
	reposync "github.com/mschirtzinger/git-ai-sync/internal/sync"
	"github.com/mschirtzinger/git-ai-sync/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch [path]",
	GroupID: "sync",
	Short:   "Continuously commit, pull and push a working copy",
	Long: `Watch a repository and keep it in sync with its remote.

Every interval the working tree is checked. Once it has been quiet for the
quiet period (default: the interval), local changes are committed, upstream
changes are pulled with rebase, conflicts are resolved with AI, and the result
is pushed.

A rebase or merge left stopped by an earlier run is resumed on the first tick.

Example usage:
  git-ai-sync watch                        # Watch the current repository
  git-ai-sync watch ~/notes --interval 60  # Tick every minute
  git-ai-sync watch --dashboard-port 8080  # Stream outcomes over WebSocket

Connect a WebSocket client to the dashboard:
  ws://127.0.0.1:8080/ws`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Int("interval", config.DefaultInterval, "seconds between ticks")
	watchCmd.Flags().Int("quiet-period", 0, "seconds the tree must be unchanged before syncing (default: interval)")
	watchCmd.Flags().Int("dashboard-port", 0, "serve the outcome dashboard on this port (0 disables)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := openSession(ctx, pathArg(args))
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()

	// Lines of `git status --short` seen on the tick that starts a cycle.
	// Both callbacks run on the loop goroutine.
	var pending []string

	dcfg := daemon.Config{
		Interval:   cfg.IntervalDuration(),
		Quiet:      cfg.QuietDuration(),
		WatchFiles: true,
		Logger:     logger,
		OnTick: func(t daemon.Tick) {
			pending = nil
			if t.Skipped || t.StateErr != nil || t.State != resolver.StateDirty {
				return
			}
			lines, err := s.repo.ChangedFilesShort(context.WithoutCancel(ctx))
			if err != nil {
				logger.Debug("failed to list changes", "error", err)
				return
			}
			pending = lines
		},
		OnCycle: func(rep reposync.Report) {
			printReport(out, rep, pending)
		},
	}

	var server *dashboard.Server
	if cfg.DashboardPort > 0 {
		server = dashboard.NewServer(dashboard.Config{Port: cfg.DashboardPort, Logger: logger})
		dcfg.Dashboard = server
	}

	d, err := daemon.New(s.controller, dcfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Watching %s (every %s, quiet %s)\n",
		ui.RenderBold(s.repo.Root()), cfg.IntervalDuration(), cfg.QuietDuration())
	if s.resolver == nil {
		fmt.Fprintln(out, ui.RenderWarn("No API key set: conflicts will be aborted, not resolved"))
	}
	if server != nil {
		fmt.Fprintf(out, "Dashboard: http://127.0.0.1:%d  (ws://127.0.0.1:%d/ws)\n", cfg.DashboardPort, cfg.DashboardPort)
	}
	fmt.Fprintln(out, ui.RenderMuted("Press Ctrl+C to stop..."))

	if err := d.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nStopped")
	return nil
}
