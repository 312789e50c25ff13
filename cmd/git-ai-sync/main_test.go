package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mschirtzinger/git-ai-sync/internal/resolver"
	reposync "github.com/mschirtzinger/git-ai-sync/internal/sync"
	"github.com/mschirtzinger/git-ai-sync/internal/vcs"
)

func TestPrintReport(t *testing.T) {
	finished := time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)
	pulled := []vcs.CommitInfo{
		{Hash: "aaaaaaaaaa", Subject: "first"},
		{Hash: "bbbbbbbbbb", Subject: "second"},
		{Hash: "cccccccccc", Subject: "third"},
		{Hash: "dddddddddd", Subject: "fourth"},
	}

	tests := []struct {
		name     string
		rep      reposync.Report
		changes  []string
		contains []string
		absent   []string
	}{
		{
			name: "no-op prints nothing",
			rep:  reposync.Report{Outcomes: []reposync.Outcome{{Kind: reposync.NoOp}}},
		},
		{
			name: "committed and pushed",
			rep: reposync.Report{
				Finished: finished,
				Outcomes: []reposync.Outcome{{Kind: reposync.Committed}, {Kind: reposync.PulledClean}, {Kind: reposync.Pushed}},
				Changes:  []string{"notes.md"},
			},
			changes:  []string{" M notes.md", "?? a.md", "?? b.md", "?? c.md", "?? d.md", "?? e.md", "?? f.md"},
			contains: []string{"09:30:00", "committed, pulled_clean, pushed", " M notes.md", "?? d.md", "... and 2 more"},
			absent:   []string{"?? e.md"},
		},
		{
			name: "falls back to committed paths",
			rep: reposync.Report{
				Finished: finished,
				Outcomes: []reposync.Outcome{{Kind: reposync.Committed}, {Kind: reposync.PulledClean}},
				Changes:  []string{"todo.txt"},
			},
			contains: []string{"todo.txt"},
		},
		{
			name: "pulled commits capped",
			rep: reposync.Report{
				Finished: finished,
				Outcomes: []reposync.Outcome{{Kind: reposync.PulledClean}},
				Pulled:   pulled,
			},
			contains: []string{"aaaaaaa first", "ccccccc third", "... and 1 more"},
			absent:   []string{"fourth"},
		},
		{
			name: "resolved episode",
			rep: reposync.Report{
				Finished: finished,
				Outcomes: []reposync.Outcome{{Kind: reposync.ConflictResolved}, {Kind: reposync.Pushed}},
				Episode:  &resolver.Episode{Mode: resolver.Rebase, Rounds: 1, Files: []string{"notes.md"}},
			},
			contains: []string{"resolved notes.md in 1 round(s)"},
		},
		{
			name: "unresolved conflict",
			rep: reposync.Report{
				Finished: finished,
				Outcomes: []reposync.Outcome{{
					Kind:      reposync.ConflictUnresolved,
					ErrorKind: reposync.KindUnresolved,
					Err:       resolver.ErrUnresolved,
				}},
			},
			contains: []string{"conflict_unresolved", "branch is unchanged"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printReport(&buf, tt.rep, tt.changes)
			out := buf.String()

			if len(tt.contains) == 0 && out != "" {
				t.Errorf("printReport() = %q, want no output", out)
			}
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.absent {
				if strings.Contains(out, s) {
					t.Errorf("output contains %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	got, err := parseSince("2 hours ago", now)
	if err != nil {
		t.Fatalf("parseSince() error = %v", err)
	}
	if want := now.Add(-2 * time.Hour); !got.Equal(want) {
		t.Errorf("parseSince(2 hours ago) = %v, want %v", got, want)
	}

	if _, err := parseSince("whenever", now); err == nil {
		t.Error("parseSince(whenever) error = nil, want error")
	}
}

func TestIntValidators(t *testing.T) {
	tests := []struct {
		in          string
		positive    bool
		nonNegative bool
	}{
		{"30", true, true},
		{" 5 ", true, true},
		{"0", false, true},
		{"-1", false, false},
		{"abc", false, false},
	}
	for _, tt := range tests {
		if got := positiveInt(tt.in) == nil; got != tt.positive {
			t.Errorf("positiveInt(%q) ok = %v, want %v", tt.in, got, tt.positive)
		}
		if got := nonNegativeInt(tt.in) == nil; got != tt.nonNegative {
			t.Errorf("nonNegativeInt(%q) ok = %v, want %v", tt.in, got, tt.nonNegative)
		}
	}
}

func TestPathArg(t *testing.T) {
	if got := pathArg(nil); got != "." {
		t.Errorf("pathArg(nil) = %q, want .", got)
	}
	if got := pathArg([]string{"/tmp/notes"}); got != "/tmp/notes" {
		t.Errorf("pathArg() = %q", got)
	}
}

func TestOpenRepoOutsideRepository(t *testing.T) {
	_, err := openRepo(t.Context(), t.TempDir())
	if err == nil {
		t.Fatal("openRepo() error = nil, want error")
	}
	if !errors.Is(err, vcs.ErrNotInVCS) && !errors.Is(err, vcs.ErrGitNotFound) {
		t.Errorf("openRepo() error = %v, want ErrNotInVCS", err)
	}
}

func TestBranchLabel(t *testing.T) {
	if got := branchLabel("main"); got != "main" {
		t.Errorf("branchLabel(main) = %q", got)
	}
	if got := branchLabel(""); !strings.Contains(got, "(detached HEAD)") {
		t.Errorf("branchLabel(\"\") = %q, want detached HEAD", got)
	}
}

func TestStatusDetachedHead(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
		}
	}
	git("init")
	git("config", "user.name", "Test User")
	git("config", "user.email", "test@example.com")
	git("config", "commit.gpgsign", "false")
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	git("add", "-A")
	git("commit", "-m", "initial")
	git("checkout", "--detach")

	var buf bytes.Buffer
	statusCmd.SetOut(&buf)
	statusCmd.SetContext(t.Context())
	t.Cleanup(func() { statusCmd.SetOut(nil) })

	if err := runStatus(statusCmd, []string{dir}); err != nil {
		t.Fatalf("runStatus() error = %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "(detached HEAD)") {
		t.Errorf("status output missing detached HEAD:\n%s", out)
	}
}
