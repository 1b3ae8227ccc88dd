// Package controller runs reconciliation passes that bring the target
// branch in line with the base branch plus every active branch.
package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grovetools/gcpd/errors"
	"github.com/grovetools/gcpd/git"
	"github.com/grovetools/gcpd/internal/daemon/store"
	"github.com/grovetools/gcpd/logging"
	"github.com/grovetools/gcpd/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Materializer rebuilds the target branch from a commit sequence.
type Materializer interface {
	Materialize(ctx context.Context, pushURL string, commits []models.Commit) error
}

// Broadcaster publishes state and errors to observers.
type Broadcaster interface {
	BroadcastState()
	BroadcastError(message string)
}

// Options configures a Controller.
type Options struct {
	// URL is cloned when the mirror does not exist yet.
	URL          string
	Remote       string
	BaseBranch   string
	TargetBranch string
	Include      []string
	Exclude      []string
}

// Controller serializes reconciliation passes. Requests made while a pass
// runs collapse into a single follow-up pass.
type Controller struct {
	repo        git.Repository
	store       *store.Store
	pipeline    Materializer
	broadcaster Broadcaster
	opts        Options
	logger      *logrus.Entry
	now         func() time.Time

	wake   chan struct{}
	passes atomic.Uint64

	filterMu sync.RWMutex
	filter   *branchFilter
}

// New creates a Controller. Passes only run once Run has been started.
func New(repo git.Repository, st *store.Store, pipeline Materializer, broadcaster Broadcaster, opts Options) (*Controller, error) {
	filter, err := newBranchFilter(opts.Include, opts.Exclude)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid branch filter")
	}
	return &Controller{
		repo:        repo,
		store:       st,
		pipeline:    pipeline,
		broadcaster: broadcaster,
		opts:        opts,
		logger:      logging.NewLogger("controller"),
		now:         time.Now,
		wake:        make(chan struct{}, 1),
		filter:      filter,
	}, nil
}

// RequestCheck asks for a reconciliation pass. It never blocks.
func (c *Controller) RequestCheck() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// SetBranchFilter replaces the include and exclude patterns used by
// subsequent passes.
func (c *Controller) SetBranchFilter(include, exclude []string) error {
	filter, err := newBranchFilter(include, exclude)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid branch filter")
	}
	c.filterMu.Lock()
	c.filter = filter
	c.filterMu.Unlock()
	return nil
}

// Passes returns the number of passes started so far.
func (c *Controller) Passes() uint64 {
	return c.passes.Load()
}

// Run executes requested passes until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("Reconciliation loop started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Reconciliation loop stopped")
			return ctx.Err()
		case <-c.wake:
			if err := c.pass(ctx); err != nil && ctx.Err() == nil {
				c.logger.WithError(err).WithField("code", errors.GetCode(err)).Warn("Reconciliation pass failed")
			}
		}
	}
}

func (c *Controller) pass(ctx context.Context) error {
	n := c.passes.Add(1)
	logger := c.logger.WithField("pass", n)
	start := time.Now()
	logger.Debug("Starting reconciliation pass")

	remote, err := c.refresh(ctx)
	if err != nil {
		c.broadcaster.BroadcastError(err.Error())
		return err
	}
	c.broadcaster.BroadcastState()

	target := c.store.TargetCommits()
	if models.SameHashes(target, c.store.Target().Commits) {
		c.store.ClearTargetError()
		c.broadcaster.BroadcastState()
		logger.WithField("duration", time.Since(start)).Debug("Target branch up to date")
		return nil
	}

	pushURL := remote.PushURL
	if pushURL == "" {
		pushURL = remote.FetchURL
	}

	logger.WithField("commits", len(target)).Info("Rebuilding target branch")
	c.store.BeginProcessing()
	c.broadcaster.BroadcastState()

	if err := c.pipeline.Materialize(ctx, pushURL, target); err != nil {
		c.store.FailTarget(err.Error())
		c.broadcaster.BroadcastState()
		c.broadcaster.BroadcastError(err.Error())
		return err
	}

	c.store.CompleteTarget(target, c.now())
	c.broadcaster.BroadcastState()
	logger.WithField("duration", time.Since(start)).Info("Target branch rebuilt")
	return nil
}

// refresh updates the mirror and records the base tip, the branch inventory
// and every branch's ahead-of-base commits.
func (c *Controller) refresh(ctx context.Context) (git.Remote, error) {
	err := c.repo.EnsureMirror(ctx, git.MirrorOptions{
		URL:    c.opts.URL,
		Remote: c.opts.Remote,
		Base:   c.opts.BaseBranch,
	})
	if err != nil {
		return git.Remote{}, err
	}

	remotes, err := c.repo.GetRemotes(ctx)
	if err != nil {
		return git.Remote{}, err
	}
	remote, err := git.FindRemote(remotes, c.opts.Remote)
	if err != nil {
		return git.Remote{}, err
	}

	baseRef := git.RemoteRef(remote.Name, c.opts.BaseBranch)
	tip, err := c.repo.Tip(ctx, baseRef)
	if err != nil {
		return git.Remote{}, err
	}
	c.store.SetBaseCommit(tip)

	refs, err := c.repo.ListBranches(ctx)
	if err != nil {
		return git.Remote{}, err
	}
	names := c.inventoryNames(git.RemoteBranchNames(refs, remote.Name))
	if diff := c.store.SyncInventory(names); diff.Changed() {
		c.logger.WithFields(logrus.Fields{
			"added":   diff.Added,
			"removed": diff.Removed,
		}).Info("Branch inventory changed")
	}

	ahead := make([][]models.Commit, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			commits, err := c.repo.AheadOfBase(gctx, baseRef, git.RemoteRef(remote.Name, name))
			if err != nil {
				return err
			}
			ahead[i] = commits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return git.Remote{}, err
	}
	for i, name := range names {
		c.store.SetBranchCommits(name, ahead[i])
	}

	return remote, nil
}

// inventoryNames drops the base and target branches and applies the
// branch filter.
func (c *Controller) inventoryNames(names []string) []string {
	c.filterMu.RLock()
	filter := c.filter
	c.filterMu.RUnlock()

	kept := make([]string, 0, len(names))
	for _, name := range names {
		if name == c.opts.BaseBranch || name == c.opts.TargetBranch {
			continue
		}
		if filter.keep(name) {
			kept = append(kept, name)
		}
	}
	return kept
}
