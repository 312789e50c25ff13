package vcs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// MinGitVersion is the oldest git whose rebase/merge plumbing the adapter
// has been verified against. `merge --continue` arrived in 2.12 and
// `branch --show-current` in 2.22.
const MinGitVersion = "v2.22.0"

// FindRepoRoot walks up from path until it finds a directory containing
// .git (a directory, or a file for worktrees and submodules).
//
// Returns ErrNotInVCS if the filesystem root is reached first.
func FindRepoRoot(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	current := absPath
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root without finding a repository
			return "", ErrNotInVCS
		}
		current = parent
	}
}

// LookPath verifies that git is installed.
func LookPath() (string, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return "", ErrGitNotFound
	}
	return p, nil
}

// GitVersion returns the installed git version in semver form, e.g.
// "v2.39.2" for "git version 2.39.2 (Apple Git-143)".
func GitVersion(ctx context.Context) (string, error) {
	out, err := ExecChecked(ctx, "", "--version")
	if err != nil {
		return "", err
	}
	v := NormalizeVersion(TrimOutput(out))
	if v == "" {
		return "", fmt.Errorf("unrecognized git version output %q", TrimOutput(out))
	}
	return v, nil
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// NormalizeVersion extracts a semver string from git's version banner.
// Returns "" when no version number is present.
func NormalizeVersion(s string) string {
	s = strings.TrimPrefix(s, "git version ")
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	v := fmt.Sprintf("v%s.%s.%s", m[1], m[2], patch)
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// CheckGitVersion returns ErrGitTooOld when version is below MinGitVersion.
func CheckGitVersion(version string) error {
	if semver.Compare(version, MinGitVersion) < 0 {
		return fmt.Errorf("%w: have %s, need %s or newer", ErrGitTooOld, version, MinGitVersion)
	}
	return nil
}
