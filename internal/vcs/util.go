package vcs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ===================
// Command Execution Utilities
// ===================

// Output is the captured result of a finished git subprocess.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Combined returns stdout followed by stderr, which is where git prints
// most of its human readable diagnostics.
func (o Output) Combined() string {
	return string(o.Stdout) + string(o.Stderr)
}

// Exec runs git in workDir and captures both streams. A nonzero exit is
// NOT returned as an error; callers inspect ExitCode and decide whether it
// is an expected state. The returned error is non-nil only when git could
// not be started at all.
//
// Example:
//
//	out, err := Exec(ctx, repoRoot, nil, "status", "--porcelain")
func Exec(ctx context.Context, workDir string, env []string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = workDir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return out, ErrGitNotFound
		}
		return out, &GitError{Command: args, ExitCode: -1, Stderr: stderr.String(), Err: err}
	}

	return out, nil
}

// ExecChecked runs git and turns any nonzero exit into *GitError.
func ExecChecked(ctx context.Context, workDir string, args ...string) ([]byte, error) {
	out, err := Exec(ctx, workDir, nil, args...)
	if err != nil {
		return nil, err
	}
	if out.ExitCode != 0 {
		return nil, NewGitError(args, out)
	}
	return out.Stdout, nil
}

// NewGitError builds a GitError from a finished command. When stderr is
// empty, stdout is used instead since some git commands report failures
// there.
func NewGitError(args []string, out Output) *GitError {
	stderr := string(out.Stderr)
	if strings.TrimSpace(stderr) == "" {
		stderr = string(out.Stdout)
	}
	return &GitError{Command: args, ExitCode: out.ExitCode, Stderr: stderr}
}

// ===================
// Output Parsing Utilities
// ===================

// ParseLines splits command output into non-empty lines.
// Leading whitespace is preserved since status output is column based.
func ParseLines(output []byte) []string {
	if len(output) == 0 {
		return nil
	}

	lines := strings.Split(string(output), "\n")
	result := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line != "" {
			result = append(result, line)
		}
	}

	return result
}

// TrimOutput trims whitespace and trailing newlines from command output.
func TrimOutput(output []byte) string {
	return strings.TrimSpace(string(output))
}

// ===================
// Path Utilities
// ===================

// IsSubPath returns true if target is inside base directory.
func IsSubPath(base, target string) bool {
	base = filepath.Clean(base)
	target = filepath.Clean(target)

	relPath, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}

	// If relative path starts with "..", it's outside base
	return relPath != ".." && !strings.HasPrefix(relPath, ".."+string(filepath.Separator))
}
