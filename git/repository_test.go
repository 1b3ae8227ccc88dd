package git

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/grovetools/gcpd/errors"
	"github.com/grovetools/gcpd/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMirror(t *testing.T, u *testutil.Upstream) (*Client, MirrorOptions) {
	t.Helper()
	client := NewClient(filepath.Join(t.TempDir(), "mirror"))
	opts := MirrorOptions{URL: u.Bare, Remote: "origin", Base: "master"}
	require.NoError(t, client.EnsureMirror(context.Background(), opts))
	return client, opts
}

func TestEnsureMirror(t *testing.T) {
	ctx := context.Background()

	t.Run("missing directory without url", func(t *testing.T) {
		testutil.RequireGit(t)
		client := NewClient(filepath.Join(t.TempDir(), "absent"))
		err := client.EnsureMirror(ctx, MirrorOptions{Remote: "origin", Base: "master"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeQueryFailed))
	})

	t.Run("clones then fast-forwards", func(t *testing.T) {
		u := testutil.NewUpstream(t)
		client, opts := newMirror(t, u)

		tip, err := client.Tip(ctx, RemoteRef("origin", "master"))
		require.NoError(t, err)
		assert.Equal(t, "Initial commit", tip.Message)

		second := u.Commit(t, "two.txt", "2", "Second commit")
		u.Push(t, "master")

		require.NoError(t, client.EnsureMirror(ctx, opts))
		tip, err = client.Tip(ctx, RemoteRef("origin", "master"))
		require.NoError(t, err)
		assert.Equal(t, second, tip.Hash)

		local := testutil.RunGitCommand(t, client.Dir(), "rev-parse", "HEAD")
		assert.Equal(t, second, local, "local base branch should be reset to the remote tip")
	})

	t.Run("rejects unsafe remote", func(t *testing.T) {
		client := NewClient(t.TempDir())
		err := client.EnsureMirror(ctx, MirrorOptions{Remote: "--upload-pack=x", Base: "master"})
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	})
}

func TestBranchesAndCherry(t *testing.T) {
	ctx := context.Background()
	u := testutil.NewUpstream(t)

	u.Checkout(t, "feature-a", "master")
	c1 := u.Commit(t, "a1.txt", "a1", "Feature A one")
	c2 := u.Commit(t, "a2.txt", "a2", "Feature A two")
	u.Push(t, "feature-a")

	u.Checkout(t, "fix/typo", "master")
	u.Commit(t, "typo.txt", "fixed", "Fix typo")
	u.Push(t, "fix/typo")

	client, opts := newMirror(t, u)

	refs, err := client.ListBranches(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"master", "feature-a", "fix/typo"}, RemoteBranchNames(refs, "origin"))

	ahead, err := client.AheadOfBase(ctx, RemoteRef("origin", "master"), RemoteRef("origin", "feature-a"))
	require.NoError(t, err)
	require.Len(t, ahead, 2)
	assert.Equal(t, c1, ahead[0].Hash, "earliest deviation first")
	assert.Equal(t, c2, ahead[1].Hash)
	assert.Equal(t, "Feature A two", ahead[1].Message)

	ahead, err = client.AheadOfBase(ctx, RemoteRef("origin", "master"), RemoteRef("origin", "master"))
	require.NoError(t, err)
	assert.Empty(t, ahead)

	t.Run("commits applied to base drop out", func(t *testing.T) {
		u.Checkout(t, "master", "")
		testutil.RunGitCommand(t, u.Seed, "cherry-pick", c1)
		u.Push(t, "master")
		require.NoError(t, client.EnsureMirror(ctx, opts))

		ahead, err := client.AheadOfBase(ctx, RemoteRef("origin", "master"), RemoteRef("origin", "feature-a"))
		require.NoError(t, err)
		require.Len(t, ahead, 1)
		assert.Equal(t, c2, ahead[0].Hash)
	})

	t.Run("deleted branches are pruned", func(t *testing.T) {
		u.DeleteBranch(t, "fix/typo")
		require.NoError(t, client.Fetch(ctx, "origin"))

		refs, err := client.ListBranches(ctx)
		require.NoError(t, err)
		assert.NotContains(t, RemoteBranchNames(refs, "origin"), "fix/typo")
	})

	t.Run("unknown ref is a query failure", func(t *testing.T) {
		_, err := client.AheadOfBase(ctx, RemoteRef("origin", "master"), RemoteRef("origin", "nope"))
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeQueryFailed, errors.GetCode(err))
	})

	t.Run("remotes", func(t *testing.T) {
		remotes, err := client.GetRemotes(ctx)
		require.NoError(t, err)
		origin, err := FindRemote(remotes, "origin")
		require.NoError(t, err)
		assert.Equal(t, u.Bare, origin.FetchURL)
	})
}

func TestConcurrentQueriesAreSerialized(t *testing.T) {
	ctx := context.Background()
	u := testutil.NewUpstream(t)
	client, _ := newMirror(t, u)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = client.Tip(ctx, RemoteRef("origin", "master"))
			} else {
				errs[i] = client.Fetch(ctx, "origin")
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "call %d", i)
	}
}

func TestCanceledContextFailsBeforeRunning(t *testing.T) {
	testutil.RequireGit(t)
	client := NewClient(t.TempDir())

	// Hold the handle so the next caller has to wait.
	require.NoError(t, client.handle.Acquire(context.Background(), 1))
	defer client.handle.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetRemotes(ctx)
	assert.True(t, errors.Is(err, errors.ErrCodeQueryFailed))
}
