// Package cmd holds the gcpd command tree.
package cmd

import (
	"github.com/grovetools/gcpd/cli"
	"github.com/grovetools/gcpd/errors"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the gcpd command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"gcpd",
		"Keep a branch rebuilt from master plus selected branches",
	)
	root.Long = `gcpd watches the branches of a remote and maintains a target branch made of
the base branch plus the commits of every branch an observer activated.
Every change is rebuilt in a fresh clone, cherry-picked and force-pushed.`

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewAttachCmd())
	root.AddCommand(NewStatusCmd())
	root.AddCommand(NewRecheckCmd())
	root.AddCommand(NewToggleCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewPathsCmd())
	root.AddCommand(cli.NewVersionCommand("gcpd"))

	cli.ApplyStyledHelpRecursive(root)
	return root
}

func errNoConfig() error {
	return errors.ConfigNotFound("gcpd.yml")
}
