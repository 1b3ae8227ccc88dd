// Package pipeline rebuilds the target branch from a commit sequence in a
// throwaway clone of the local mirror.
package pipeline

import (
	"context"
	"os"
	"sync"

	"github.com/google/shlex"
	"github.com/grovetools/gcpd/errors"
	"github.com/grovetools/gcpd/logging"
	"github.com/grovetools/gcpd/pkg/models"
	"github.com/sirupsen/logrus"
)

// Step names used in failure messages.
const (
	StepClone      = "clone"
	StepCherryPick = "cherry-pick"
	StepPush       = "push"
	StepPostPush   = "post-push command"
)

// Runner executes one external process and waits for it.
type Runner interface {
	Run(ctx context.Context, name string, args []string, dir string) error
}

// Options configures a Pipeline.
type Options struct {
	// MirrorDir is the local mirror cloned at the start of every run.
	MirrorDir    string
	BaseBranch   string
	TargetBranch string
	// TempDir is the parent of per-run clones; empty uses the OS default.
	TempDir         string
	PostPushCommand string
	// GitBinary defaults to "git".
	GitBinary string
}

// Pipeline materializes commit sequences onto the target branch.
type Pipeline struct {
	runner Runner
	opts   Options
	logger *logrus.Entry

	mu       sync.RWMutex
	postPush string
}

// New creates a Pipeline that runs every step through runner.
func New(runner Runner, opts Options) *Pipeline {
	if opts.GitBinary == "" {
		opts.GitBinary = "git"
	}
	return &Pipeline{
		runner:   runner,
		opts:     opts,
		logger:   logging.NewLogger("pipeline"),
		postPush: opts.PostPushCommand,
	}
}

// SetPostPushCommand replaces the command run after a successful push.
// An empty string disables it.
func (p *Pipeline) SetPostPushCommand(cmd string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.postPush = cmd
}

// PostPushCommand returns the configured post-push command.
func (p *Pipeline) PostPushCommand() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.postPush
}

// Materialize clones the base branch, cherry-picks every commit after the
// first, force-pushes the result to pushURL and runs the post-push command.
// The temporary clone is always removed; failing to remove it fails the run.
func (p *Pipeline) Materialize(ctx context.Context, pushURL string, commits []models.Commit) (err error) {
	postPush := p.PostPushCommand()
	var postArgs []string
	if postPush != "" {
		postArgs, err = shlex.Split(postPush)
		if err != nil {
			return errors.StepFailed(StepPostPush, err)
		}
	}

	workDir, err := os.MkdirTemp(p.opts.TempDir, "gcpd-")
	if err != nil {
		return errors.StepFailed(StepClone, err)
	}

	logger := p.logger.WithFields(logrus.Fields{
		"dir":     workDir,
		"commits": len(commits),
		"target":  p.opts.TargetBranch,
	})
	logger.Info("Materializing target branch")

	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			logger.WithError(rmErr).Error("Failed to remove temporary clone")
			if err == nil {
				err = errors.CleanupFailed(workDir, rmErr)
			}
		}
	}()

	git := p.opts.GitBinary
	if err := p.runner.Run(ctx, git,
		[]string{"clone", "--branch", p.opts.BaseBranch, p.opts.MirrorDir, workDir}, workDir); err != nil {
		return errors.StepFailed(StepClone, err)
	}

	if len(commits) > 1 {
		args := append([]string{"cherry-pick", "-x"}, models.Hashes(commits[1:])...)
		if err := p.runner.Run(ctx, git, args, workDir); err != nil {
			return errors.StepFailed(StepCherryPick, err)
		}
	}

	if err := p.runner.Run(ctx, git,
		[]string{"push", "--force", pushURL, "HEAD:refs/heads/" + p.opts.TargetBranch}, workDir); err != nil {
		return errors.StepFailed(StepPush, err)
	}

	if len(postArgs) > 0 {
		if err := p.runner.Run(ctx, postArgs[0], postArgs[1:], workDir); err != nil {
			return errors.StepFailed(StepPostPush, err)
		}
	}

	logger.Info("Target branch pushed")
	return nil
}
