package cmd

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/gcpd/config"
	"github.com/grovetools/gcpd/internal/daemon/hub"
	"github.com/grovetools/gcpd/internal/daemon/server"
	"github.com/grovetools/gcpd/internal/daemon/store"
	"github.com/grovetools/gcpd/internal/daemon/terminal"
	"github.com/grovetools/gcpd/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingChecker struct{ n atomic.Int32 }

func (c *countingChecker) RequestCheck() { c.n.Add(1) }

type liveDaemon struct {
	addr    string
	store   *store.Store
	hub     *hub.Hub
	checker *countingChecker
}

// startDaemon serves a hub over httptest without a controller loop.
func startDaemon(t *testing.T) *liveDaemon {
	t.Helper()
	st := store.New("staging", "master")
	st.SyncInventory([]string{"feature-a", "feature-b"})
	st.SetBranchCommits("feature-a", []models.Commit{{Hash: "aaaaaaaaaaaa", Message: "Add a"}})

	checker := &countingChecker{}
	h := hub.New(st, terminal.New(terminal.Options{}))
	h.SetController(checker)
	srv := server.New(h, checker, server.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &liveDaemon{
		addr:    strings.TrimPrefix(ts.URL, "http://"),
		store:   st,
		hub:     h,
		checker: checker,
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestStatusCommand(t *testing.T) {
	d := startDaemon(t)

	out, _, err := execute(t, "status", "--addr", d.addr)
	require.NoError(t, err)
	assert.Contains(t, out, "staging")
	assert.Contains(t, out, "feature-a")
	assert.Contains(t, out, "1 ahead")
	assert.Contains(t, out, "[ ] feature-b")

	out, _, err = execute(t, "status", "--addr", d.addr, "--json")
	require.NoError(t, err)
	var state models.State
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, "staging", state.TargetBranch.Name)
	assert.Len(t, state.Branches, 2)
}

func TestStatusUnreachable(t *testing.T) {
	_, _, err := execute(t, "status", "--addr", "127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach gcpd")
}

func TestRecheckCommand(t *testing.T) {
	d := startDaemon(t)

	out, _, err := execute(t, "recheck", "--addr", d.addr)
	require.NoError(t, err)
	assert.Contains(t, out, "Recheck requested")
	assert.Equal(t, int32(1), d.checker.n.Load())
}

func TestToggleCommand(t *testing.T) {
	d := startDaemon(t)

	out, _, err := execute(t, "toggle", "feature-b", "--addr", d.addr)
	require.NoError(t, err)
	assert.Contains(t, out, "Branch feature-b activated")

	state := d.hub.Snapshot()
	active, found := branchActive(state, "feature-b")
	assert.True(t, found)
	assert.True(t, active)

	out, _, err = execute(t, "toggle", "feature-b", "--addr", d.addr)
	require.NoError(t, err)
	assert.Contains(t, out, "Branch feature-b deactivated")

	// A toggle and a new connection each request a pass.
	assert.Eventually(t, func() bool { return d.checker.n.Load() >= 4 }, 2*time.Second, 10*time.Millisecond)
}

func TestToggleUnknownBranch(t *testing.T) {
	d := startDaemon(t)

	_, _, err := execute(t, "toggle", "nope", "--addr", d.addr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the inventory")
}

func TestApplyServeFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Branch = "from-file"
	cfg.Remote = "upstream"

	serveCmd := NewServeCmd()
	require.NoError(t, serveCmd.ParseFlags([]string{
		"-g", "/srv/mirror",
		"--base-branch", "main",
		"--run-command", "make deploy",
		"-p", "4000",
		"--poll-interval", "1m",
	}))
	applyServeFlags(serveCmd.Flags(), cfg)

	assert.Equal(t, "/srv/mirror", cfg.Repository)
	assert.Equal(t, "from-file", cfg.Branch, "unset flags keep file values")
	assert.Equal(t, "upstream", cfg.Remote, "flag defaults do not override the file")
	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, "make deploy", cfg.PostPushCommand)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.PollEvery())
}

func TestServeRequiresBranch(t *testing.T) {
	t.Setenv("GCPD_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	_, _, err := execute(t, "serve", "-g", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "branch")
}

func TestNewDaemonReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gcpd.yml")
	require.NoError(t, os.WriteFile(path, []byte("repository: repo\nbranch: staging\n"), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	d, err := newDaemon(cfg)
	require.NoError(t, err)
	assert.Empty(t, d.pipeline.PostPushCommand())

	require.NoError(t, os.WriteFile(path, []byte("repository: repo\nbranch: staging\npost_push_command: make deploy\n"), 0644))
	require.NoError(t, d.reload(path))
	assert.Equal(t, "make deploy", d.pipeline.PostPushCommand())

	require.NoError(t, os.WriteFile(path, []byte("repository: repo\nbranch: staging\nbranches:\n  include: ['[a-']\n"), 0644))
	assert.Error(t, d.reload(path))
	assert.Equal(t, "make deploy", d.pipeline.PostPushCommand(), "a rejected reload changes nothing")
}

func TestRenderState(t *testing.T) {
	msg := "cherry-pick failed"
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cmdName := "git"
	state := models.State{
		BaseBranch: models.BaseBranch{Name: "master", Commit: models.Commit{Hash: "0123456789abcdef", Message: "Base"}},
		TargetBranch: models.TargetBranch{
			Name:      "staging",
			Error:     &msg,
			Commits:   []models.Commit{{Hash: "0123456789abcdef", Message: "Base"}},
			UpdatedAt: &now,
		},
		Branches: []models.Branch{{Name: "feature", Active: true, Commits: []models.Commit{{Hash: "ff", Message: "F"}}}},
		Terminal: models.TerminalState{Command: &cmdName, Args: []string{"push", "--force"}},
	}

	out := renderState(state)
	assert.Contains(t, out, "master 01234567 Base")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, msg)
	assert.Contains(t, out, "[x] feature")
	assert.Contains(t, out, "running git push --force")
}

func TestPathsCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GCPD_HOME", home)

	out, _, err := execute(t, "paths", "--branch", "feature/x")
	require.NoError(t, err)
	var got PathsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, filepath.Join(home, "config"), got.ConfigDir)
	assert.Equal(t, filepath.Join(home, "state", "run", "feature__x.pid"), got.PidFile)
	assert.Empty(t, got.MirrorDir)
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gcpd.yml")
	require.NoError(t, os.WriteFile(path, []byte("repository: repo\nbranch: staging\n"), 0644))

	out, _, err := execute(t, "config", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	out, _, err = execute(t, "config", "show", path)
	require.NoError(t, err)
	assert.Contains(t, out, "branch: staging")
	assert.Contains(t, out, "base_branch: master")

	out, _, err = execute(t, "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "post_push_command")

	require.NoError(t, os.WriteFile(path, []byte("repository: repo\n"), 0644))
	_, _, err = execute(t, "config", "validate", path)
	assert.Error(t, err)
}
