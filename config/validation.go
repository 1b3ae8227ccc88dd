package config

import (
	"fmt"
	"time"

	"github.com/grovetools/gcpd/command"
	"github.com/grovetools/gcpd/errors"
	"github.com/moby/patternmatcher"
)

var argValidator = command.NewSafeBuilder()

// Validate checks the configuration for consistency after flags have been
// applied.
func (c *Config) Validate() error {
	if c.Repository == "" {
		return errors.ConfigInvalid("repository is required")
	}
	if c.Branch == "" {
		return errors.ConfigInvalid("branch is required")
	}
	if err := argValidator.Validate("gitRef", c.Branch); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("branch %q: %v", c.Branch, err))
	}
	if err := argValidator.Validate("gitRef", c.BaseBranch); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("base_branch %q: %v", c.BaseBranch, err))
	}
	if c.Branch == c.BaseBranch {
		return errors.ConfigInvalid("branch and base_branch must differ")
	}
	if err := argValidator.Validate("remoteName", c.Remote); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("remote: %v", err))
	}

	if c.PollInterval != "" {
		d, err := time.ParseDuration(c.PollInterval)
		if err != nil {
			return errors.ConfigInvalid(fmt.Sprintf("poll_interval: %v", err))
		}
		if d < time.Second {
			return errors.ConfigInvalid("poll_interval must be at least 1s")
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.ConfigInvalid(fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Terminal.Cols < 1 || c.Terminal.Rows < 1 {
		return errors.ConfigInvalid("terminal.cols and terminal.rows must be positive")
	}
	if c.Terminal.ReplayBytes < 1 {
		return errors.ConfigInvalid("terminal.replay_bytes must be positive")
	}

	if _, err := patternmatcher.New(c.Branches.Include); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("branches.include: %v", err))
	}
	if _, err := patternmatcher.New(c.Branches.Exclude); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("branches.exclude: %v", err))
	}

	return nil
}

// PollEvery returns the parsed poll interval, or zero when polling is off.
func (c *Config) PollEvery() time.Duration {
	if c.PollInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0
	}
	return d
}
