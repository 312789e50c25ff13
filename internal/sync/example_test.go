package sync_test

import (
	"fmt"

	reposync "github.com/mschirtzinger/git-ai-sync/internal/sync"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

func ExampleCommitMessage() {
	changes := vcs.ChangeSet{
		{Path: "journal/2026-03-01.md", Status: vcs.StatusUntracked, StagedCode: vcs.StatusUnmodified},
		{Path: "todo.md", Status: vcs.StatusModified, StagedCode: vcs.StatusUnmodified},
	}
	fmt.Println(reposync.CommitMessage("auto", changes))
	// Output:
	// auto: update 2 files (journal/2026-03-01.md, todo.md)
	//
	// A journal/2026-03-01.md
	// M todo.md
}
