package cmd

import (
	"fmt"

	"github.com/grovetools/gcpd/cli"
	"github.com/grovetools/gcpd/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd groups the configuration helpers.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the gcpd configuration",
	}
	cmd.AddCommand(newConfigSchemaCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of gcpd.yml",
		Long: `Print the JSON schema configuration files are validated against.
Point an editor's YAML language server at it for completion.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.SchemaJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadNamedConfig(cmd, args)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", cfg.Path)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [file]",
		Short: "Print the configuration with defaults applied",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadNamedConfig(cmd, args)
			if err != nil {
				return err
			}
			if cfg.Path != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# Source: %s\n", cfg.Path)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// loadNamedConfig loads the file given as argument, or the one found by
// --config and discovery. Validation needs a file, so a missing one is an
// error here.
func loadNamedConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	if len(args) == 1 {
		return config.Load(args[0])
	}
	path, err := cli.InitConfig(cli.GetOptions(cmd).ConfigFile)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errNoConfig()
	}
	return config.Load(path)
}
