package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/grovetools/gcpd/cli"
	"github.com/grovetools/gcpd/internal/daemon/hub"
	"github.com/grovetools/gcpd/pkg/models"
	"github.com/spf13/cobra"
)

// NewStatusCmd prints the state of a running gcpd.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show branches and the target of a running gcpd",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFor(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()

			state, err := c.State(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(state)
			}
			fmt.Fprint(out, renderState(state))
			return nil
		},
	}
	addFlagAddr(cmd)
	return cmd
}

// NewRecheckCmd asks a running gcpd for a reconciliation pass.
func NewRecheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recheck",
		Short: "Request a reconciliation pass",
		Long: `Request a reconciliation pass from a running gcpd. Suitable for git hooks
and CI jobs that know the remote changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFor(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()
			if err := c.Recheck(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Recheck requested")
			return nil
		},
	}
	addFlagAddr(cmd)
	return cmd
}

// NewToggleCmd flips whether a branch is merged into the target.
func NewToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <branch>",
		Short: "Activate or deactivate a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFor(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()

			conn, err := c.Dial(ctx)
			if err != nil {
				return err
			}
			defer conn.Close()
			conn.SetReadDeadline(time.Now().Add(clientTimeout))

			// The first snapshot confirms the session is attached.
			initial, err := readState(conn, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			wasActive, found := branchActive(initial, args[0])
			if !found {
				return fmt.Errorf("branch %q is not in the inventory", args[0])
			}

			if err := sendAction(conn, hub.ActionActivateBranch, hub.ActivateBranchParams{BranchName: args[0]}); err != nil {
				return err
			}

			for {
				state, err := readState(conn, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				active, found := branchActive(state, args[0])
				if !found {
					return fmt.Errorf("branch %q disappeared from the inventory", args[0])
				}
				if active == wasActive {
					continue
				}
				status := "deactivated"
				if active {
					status = "activated"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Branch %s %s\n", args[0], status)
				return nil
			}
		},
	}
	addFlagAddr(cmd)
	return cmd
}

func branchActive(state models.State, name string) (active, found bool) {
	for _, br := range state.Branches {
		if br.Name == name {
			return br.Active, true
		}
	}
	return false, false
}
