// Package git wraps the git command line for the queries gcpd runs against
// its local mirror. Every call made through one Client is serialized: git is
// not safe to run concurrently against the same working copy.
package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/grovetools/gcpd/command"
	"github.com/grovetools/gcpd/errors"
	"github.com/grovetools/gcpd/logging"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Client implements Repository using the git CLI
type Client struct {
	dir        string
	cmdBuilder *command.SafeBuilder
	handle     *semaphore.Weighted
	logger     *logrus.Entry
}

// Ensure it implements the interface
var _ Repository = (*Client)(nil)

// NewClient creates a client for the repository at dir.
func NewClient(dir string) *Client {
	return NewClientWithBuilder(dir, command.NewSafeBuilder())
}

// NewClientWithBuilder creates a client that builds commands with cmdBuilder.
func NewClientWithBuilder(dir string, cmdBuilder *command.SafeBuilder) *Client {
	return &Client{
		dir:        dir,
		cmdBuilder: cmdBuilder,
		handle:     semaphore.NewWeighted(1),
		logger:     logging.NewLogger("git"),
	}
}

// Dir returns the repository directory.
func (c *Client) Dir() string {
	return c.dir
}

// run executes git with args in the repository directory once the handle is
// free. Waiting callers are admitted in arrival order.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	return c.runIn(ctx, c.dir, args...)
}

func (c *Client) runIn(ctx context.Context, dir string, args ...string) (string, error) {
	if err := c.handle.Acquire(ctx, 1); err != nil {
		return "", errors.QueryFailed(args, "", err)
	}
	defer c.handle.Release(1)

	cmd, err := c.cmdBuilder.Build(ctx, "git", args...)
	if err != nil {
		return "", errors.QueryFailed(args, "", err)
	}

	c.logger.WithField("dir", dir).Debugf("git %s", strings.Join(args, " "))
	stdout, stderr, err := cmd.InDir(dir).WithEnv("GIT_TERMINAL_PROMPT=0").Output()
	if err != nil {
		return "", errors.QueryFailed(args, stderr, err)
	}
	return stdout, nil
}

func (c *Client) validateRef(ref string) error {
	if err := c.cmdBuilder.Validate("gitRef", ref); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, fmt.Sprintf("refusing to query %q", ref))
	}
	return nil
}

// RemoteRef returns the fully qualified remote-tracking ref for a branch.
func RemoteRef(remote, branch string) string {
	return "refs/remotes/" + remote + "/" + branch
}
