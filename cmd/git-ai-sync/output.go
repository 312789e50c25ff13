package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	reposync "github.com/mschirtzinger/git-ai-sync/internal/sync"
	"github.com/mschirtzinger/git-ai-sync/internal/ui"
)

// Limits on what a cycle summary lists.
const (
	maxPulledShown  = 3
	maxChangesShown = 5
)

// printReport writes a human summary of a cycle. changes are the
// `git status --short` lines captured before the cycle committed them.
// No-op cycles print nothing.
func printReport(w io.Writer, rep reposync.Report, changes []string) {
	if rep.Has(reposync.NoOp) {
		return
	}

	stamp := ui.RenderMuted(rep.Finished.Format(time.TimeOnly))
	switch {
	case rep.Fatal():
		fmt.Fprintf(w, "%s %s %s\n", stamp, ui.RenderFail("✗"), rep.Summary())
	case rep.Failed():
		fmt.Fprintf(w, "%s %s %s\n", stamp, ui.RenderWarn("!"), rep.Summary())
	default:
		fmt.Fprintf(w, "%s %s %s\n", stamp, ui.RenderPass("✓"), rep.Summary())
	}

	if rep.Has(reposync.Committed) {
		lines := changes
		if len(lines) == 0 {
			lines = rep.Changes
		}
		for _, line := range limit(lines, maxChangesShown) {
			fmt.Fprintf(w, "  %s %s\n", ui.RenderAccent("↑"), line)
		}
		if n := len(lines) - maxChangesShown; n > 0 {
			fmt.Fprintf(w, "  %s\n", ui.RenderMuted(fmt.Sprintf("... and %d more", n)))
		}
	}

	for _, c := range limit(rep.Pulled, maxPulledShown) {
		fmt.Fprintf(w, "  %s %s %s\n", ui.RenderAccent("↓"), ui.RenderMuted(c.ShortHash()), c.Subject)
	}
	if n := len(rep.Pulled) - maxPulledShown; n > 0 {
		fmt.Fprintf(w, "  %s\n", ui.RenderMuted(fmt.Sprintf("... and %d more", n)))
	}

	if rep.Episode != nil {
		fmt.Fprintf(w, "  %s resolved %s in %d round(s)\n",
			ui.RenderPass("⚡"), strings.Join(rep.Episode.Files, ", "), rep.Episode.Rounds)
	}

	if err := rep.Err(); err != nil {
		fmt.Fprintf(w, "  %s\n", ui.RenderFail(err.Error()))
		if rep.Has(reposync.ConflictUnresolved) {
			fmt.Fprintf(w, "  %s\n", ui.RenderMuted("the operation was aborted and your branch is unchanged"))
		}
	}
}

func limit[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
