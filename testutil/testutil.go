// Package testutil provides git repository fixtures shared by tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireGit skips the test if git is not available
func RequireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// SetGitIdentity makes every git process started by the test (including
// ones started by code under test) commit with a fixed identity and ignore
// user and system configuration.
func SetGitIdentity(t *testing.T) {
	t.Helper()

	t.Setenv("GIT_AUTHOR_NAME", "Test User")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test User")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
}

// RunGitCommand runs a git command in the given directory and returns its
// trimmed stdout
func RunGitCommand(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		t.Fatalf("Failed to run git %s: %v\n%s", strings.Join(args, " "), err, stderr)
	}
	return strings.TrimSpace(string(output))
}

// Upstream is a bare repository playing the remote, plus a seed clone used
// to author commits and push branches to it.
type Upstream struct {
	Bare string
	Seed string
}

// NewUpstream creates a bare repository whose master branch holds a single
// initial commit.
func NewUpstream(t *testing.T) *Upstream {
	t.Helper()
	RequireGit(t)
	SetGitIdentity(t)

	root := t.TempDir()
	u := &Upstream{
		Bare: filepath.Join(root, "upstream.git"),
		Seed: filepath.Join(root, "seed"),
	}

	require.NoError(t, os.MkdirAll(u.Bare, 0755))
	RunGitCommand(t, u.Bare, "init", "--bare")
	RunGitCommand(t, u.Bare, "symbolic-ref", "HEAD", "refs/heads/master")

	require.NoError(t, os.MkdirAll(u.Seed, 0755))
	RunGitCommand(t, u.Seed, "init")
	RunGitCommand(t, u.Seed, "checkout", "-B", "master")
	RunGitCommand(t, u.Seed, "remote", "add", "origin", u.Bare)
	u.Commit(t, "README.md", "# Test Project\n", "Initial commit")
	u.Push(t, "master")
	return u
}

// Checkout switches the seed clone to branch, creating it from start when
// start is not empty.
func (u *Upstream) Checkout(t *testing.T, branch, start string) {
	t.Helper()
	if start == "" {
		RunGitCommand(t, u.Seed, "checkout", branch)
		return
	}
	RunGitCommand(t, u.Seed, "checkout", "-B", branch, start)
}

// Commit writes filename in the seed clone, commits it, and returns the hash.
func (u *Upstream) Commit(t *testing.T, filename, content, message string) string {
	t.Helper()

	path := filepath.Join(u.Seed, filename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	RunGitCommand(t, u.Seed, "add", filename)
	RunGitCommand(t, u.Seed, "commit", "-m", message)
	return RunGitCommand(t, u.Seed, "rev-parse", "HEAD")
}

// Push force-pushes the seed's branch to the bare repository.
func (u *Upstream) Push(t *testing.T, branch string) {
	t.Helper()
	RunGitCommand(t, u.Seed, "push", "--force", "origin", branch+":"+branch)
}

// DeleteBranch removes branch from the bare repository.
func (u *Upstream) DeleteBranch(t *testing.T, branch string) {
	t.Helper()
	RunGitCommand(t, u.Seed, "push", "origin", "--delete", branch)
}

// Log returns the subjects on ref in the bare repository, newest first.
func (u *Upstream) Log(t *testing.T, ref string) []string {
	t.Helper()
	out := RunGitCommand(t, u.Bare, "log", "--format=%s", ref)
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}
