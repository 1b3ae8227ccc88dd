package config

import (
	"github.com/grovetools/gcpd/logging"
)

// Config is the gcpd configuration. File values are overridden by command
// line flags.
type Config struct {
	// Repository is the local mirror gcpd queries and clones rebuilds from.
	Repository string `yaml:"repository,omitempty" jsonschema:"description=Path of the local mirror"`
	// URL is cloned into Repository when the mirror does not exist yet.
	URL string `yaml:"url,omitempty" jsonschema:"description=Clone source used when the mirror is missing"`
	// Branch is the synthesized target branch.
	Branch string `yaml:"branch,omitempty" jsonschema:"description=Target branch that is rebuilt and force-pushed"`
	// BaseBranch anchors every rebuild.
	BaseBranch string `yaml:"base_branch,omitempty" jsonschema:"description=Base branch (default master)"`
	Remote     string `yaml:"remote,omitempty" jsonschema:"description=Remote name (default origin)"`
	// PostPushCommand runs inside the rebuilt clone after a successful push.
	PostPushCommand string `yaml:"post_push_command,omitempty" jsonschema:"description=Command run after pushing the target branch"`
	TempDir         string `yaml:"temp_dir,omitempty" jsonschema:"description=Parent directory for per-rebuild clones"`
	// PollInterval requests a reconciliation pass periodically. Empty disables polling.
	PollInterval string `yaml:"poll_interval,omitempty" jsonschema:"description=Duration between automatic passes (e.g. 1m)"`

	Branches BranchFilter   `yaml:"branches,omitempty" jsonschema:"description=Which remote branches enter the inventory"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Terminal TerminalConfig `yaml:"terminal,omitempty"`
	Logging  logging.Config `yaml:"logging,omitempty"`

	// Path is the file the configuration was loaded from, if any.
	Path string `yaml:"-" json:"-"`
}

// BranchFilter selects remote branches by pattern. A branch is kept when it
// matches Include (or Include is empty) and does not match Exclude.
type BranchFilter struct {
	Include []string `yaml:"include,omitempty" jsonschema:"description=Patterns a branch must match"`
	Exclude []string `yaml:"exclude,omitempty" jsonschema:"description=Patterns that drop a branch"`
}

// ServerConfig configures the observer endpoint.
type ServerConfig struct {
	Bind string `yaml:"bind,omitempty" jsonschema:"description=Listen address (default 127.0.0.1)"`
	Port int    `yaml:"port,omitempty" jsonschema:"minimum=1,maximum=65535,description=Listen port (default 3000 or $PORT)"`
	// StaticDir is served at / when set.
	StaticDir string `yaml:"static_dir,omitempty" jsonschema:"description=Directory with the browser UI"`
}

// TerminalConfig configures the pseudo-terminal processes run in.
type TerminalConfig struct {
	Name        string `yaml:"name,omitempty" jsonschema:"description=TERM value (default xterm-color)"`
	Cols        int    `yaml:"cols,omitempty" jsonschema:"minimum=1"`
	Rows        int    `yaml:"rows,omitempty" jsonschema:"minimum=1"`
	ReplayBytes int    `yaml:"replay_bytes,omitempty" jsonschema:"minimum=1,description=Output kept for observers joining mid-run"`
}
