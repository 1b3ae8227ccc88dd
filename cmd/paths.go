package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/gcpd/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput represents the XDG-compliant paths used by gcpd.
type PathsOutput struct {
	ConfigDir string `json:"config_dir"`
	StateDir  string `json:"state_dir"`
	CacheDir  string `json:"cache_dir"`
	PidFile   string `json:"pid_file,omitempty"`
	MirrorDir string `json:"mirror_dir,omitempty"`
}

func NewPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the XDG-compliant paths used by gcpd",
		Long: `Print the XDG-compliant paths used by gcpd as JSON.

- config_dir: searched for gcpd.yml when none is found upwards
- state_dir: pid files, one per target branch
- cache_dir: default location for repository mirrors

With --branch the pid file of that target branch is included, and with
--mirror the default mirror directory for that repository name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			branch, _ := cmd.Flags().GetString("branch")
			mirror, _ := cmd.Flags().GetString("mirror")

			output := PathsOutput{
				ConfigDir: paths.ConfigDir(),
				StateDir:  paths.StateDir(),
				CacheDir:  paths.CacheDir(),
			}
			if branch != "" {
				output.PidFile = paths.PidFilePath(branch)
			}
			if mirror != "" {
				output.MirrorDir = paths.MirrorDir(mirror)
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		},
	}
	cmd.Flags().StringP("branch", "b", "", "Target branch whose pid file to show")
	cmd.Flags().String("mirror", "", "Repository name whose default mirror to show")

	return cmd
}
