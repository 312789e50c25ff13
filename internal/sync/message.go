package sync

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

// DefaultCommitPrefix starts every automatic commit subject.
const DefaultCommitPrefix = "auto"

// maxSubjectFiles is how many paths the subject names before summarizing.
const maxSubjectFiles = 3

// CommitMessage builds the auto-commit message. The result depends only on
// the prefix and the set of changes, never on time or ordering:
//
//	auto: update notes.md
//	auto: update 3 files (a.md, b.md, c.md)
//	auto: update 5 files (a.md, b.md, c.md, +2 more)
//
// The body lists every path with its status letter.
func CommitMessage(prefix string, changes vcs.ChangeSet) string {
	if prefix == "" {
		prefix = DefaultCommitPrefix
	}

	sorted := slices.Clone(changes)
	slices.SortFunc(sorted, func(a, b vcs.FileStatus) int {
		return strings.Compare(a.Path, b.Path)
	})
	sorted = slices.CompactFunc(sorted, func(a, b vcs.FileStatus) bool {
		return a.Path == b.Path
	})

	var b strings.Builder
	switch n := len(sorted); {
	case n == 0:
		fmt.Fprintf(&b, "%s: sync", prefix)
	case n == 1:
		fmt.Fprintf(&b, "%s: update %s", prefix, sorted[0].Path)
	default:
		names := make([]string, 0, maxSubjectFiles+1)
		for i := 0; i < n && i < maxSubjectFiles; i++ {
			names = append(names, sorted[i].Path)
		}
		if n > maxSubjectFiles {
			names = append(names, fmt.Sprintf("+%d more", n-maxSubjectFiles))
		}
		fmt.Fprintf(&b, "%s: update %d files (%s)", prefix, n, strings.Join(names, ", "))
	}

	if len(sorted) > 1 {
		b.WriteString("\n\n")
		for _, f := range sorted {
			code := f.Code()
			if code == vcs.StatusUntracked {
				code = vcs.StatusAdded
			}
			fmt.Fprintf(&b, "%s %s\n", code, f.Path)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
