package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovetools/gcpd/errors"
)

// MirrorOptions describes where the local mirror comes from and which
// branch it tracks.
type MirrorOptions struct {
	// URL is cloned when the mirror directory does not exist yet.
	URL    string
	Remote string
	Base   string
}

// EnsureMirror makes the local mirror current: clone when the directory is
// missing, otherwise fetch (pruning deleted branches) and force the local
// base branch onto the remote base branch.
func (c *Client) EnsureMirror(ctx context.Context, opts MirrorOptions) error {
	if err := c.cmdBuilder.Validate("remoteName", opts.Remote); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid remote")
	}
	if err := c.validateRef(opts.Base); err != nil {
		return err
	}

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		if opts.URL == "" {
			return errors.New(errors.ErrCodeQueryFailed,
				fmt.Sprintf("repository %s does not exist and no url is configured to clone it from", c.dir))
		}
		parent := filepath.Dir(c.dir)
		if err := os.MkdirAll(parent, 0755); err != nil {
			return errors.Wrap(err, errors.ErrCodeQueryFailed, "failed to create mirror parent directory")
		}
		c.logger.WithField("url", opts.URL).Info("Cloning mirror")
		if _, err := c.runIn(ctx, parent, "clone", "--origin", opts.Remote, opts.URL, c.dir); err != nil {
			return err
		}
	} else if err := c.Fetch(ctx, opts.Remote); err != nil {
		return err
	}

	_, err := c.run(ctx, "checkout", "--force", "-B", opts.Base, RemoteRef(opts.Remote, opts.Base))
	return err
}

// Fetch updates remote-tracking refs from remote, pruning refs deleted there.
func (c *Client) Fetch(ctx context.Context, remote string) error {
	if err := c.cmdBuilder.Validate("remoteName", remote); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid remote")
	}
	_, err := c.run(ctx, "fetch", "--prune", remote)
	return err
}
