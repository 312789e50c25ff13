package ai

import (
	"fmt"
	"strings"

	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
)

const systemPrompt = `You resolve git merge conflicts in a repository that is kept in sync automatically between several machines. Usually the files are notes or documents edited by one person on different devices.

Resolution strategy:
1. Preserve the meaningful changes from BOTH sides.
2. When both sides changed the same value, prefer the more recent one (look at timestamps in the content and at the commit history).
3. When both sides added content, keep both additions in a sensible order.
4. Keep the document structure intact: frontmatter, headings, lists, code blocks.
5. Never drop content unless one side clearly deleted it on purpose.
6. The result must not contain any conflict markers (<<<<<<<, |||||||, =======, >>>>>>>).

Reply with a single JSON object and nothing else:
{"files": [{"path": "<path exactly as given>", "resolved_content": "<complete file content>", "deleted": false}]}

Include every file you were given exactly once. Set "deleted" to true (and omit resolved_content) only when the file should be removed.`

// buildPrompt renders the user message for one conflict round.
func buildPrompt(req resolver.Request) string {
	var b strings.Builder

	switch req.Mode {
	case resolver.Rebase:
		b.WriteString("A rebase stopped on conflicts. In the markers below, the first side (after <<<<<<<) is the upstream version already on the remote; the second side (before >>>>>>>) is the local commit being replayed.\n\n")
	case resolver.Merge:
		b.WriteString("A merge stopped on conflicts. In the markers below, the first side (after <<<<<<<) is the local branch; the second side (before >>>>>>>) is the branch being merged in.\n\n")
	}

	if len(req.RecentCommits) > 0 {
		b.WriteString("Recent commits, newest first:\n")
		for _, c := range req.RecentCommits {
			when := ""
			if !c.When.IsZero() {
				when = " " + c.When.UTC().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(&b, "- %s%s %s\n", c.ShortHash(), when, c.Subject)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Conflicted files (%d):\n", len(req.Files))
	for _, f := range req.Files {
		fmt.Fprintf(&b, "\n=== FILE: %s", f.Path)
		switch {
		case f.Missing:
			b.WriteString(" (deleted on one side; decide whether it should exist)")
		case len(f.Hunks) > 0:
			fmt.Fprintf(&b, " (%d conflicted region(s))", len(f.Hunks))
		}
		b.WriteString(" ===\n")
		b.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== END FILE: %s ===\n", f.Path)
	}

	return b.String()
}
