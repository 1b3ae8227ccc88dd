package cli

import (
	"os"

	"github.com/grovetools/gcpd/config"
	"github.com/grovetools/gcpd/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds common options for gcpd commands
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a new command with standard gcpd flags
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to gcpd.yml config file")

	SetStyledHelp(cmd)

	return cmd
}

// ConfigureLogging installs cfg as the logging configuration, raised to
// debug by --verbose and switched to JSON by --json.
func ConfigureLogging(cmd *cobra.Command, cfg logging.Config) {
	opts := GetOptions(cmd)
	if opts.Verbose {
		cfg.Level = "debug"
	}
	if opts.JSONOutput {
		cfg.Format.Preset = "json"
	}
	logging.Configure(cfg)
}

// GetLogger returns the component logger for a command.
func GetLogger(cmd *cobra.Command, component string) *logrus.Entry {
	return logging.NewLogger(component).WithField("command", cmd.Name())
}

// GetOptions extracts common options from a command
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// InitConfig resolves the configuration file path. An empty result means no
// file was given or found.
func InitConfig(configFile string) (string, error) {
	if configFile != "" {
		return configFile, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	found, err := config.FindConfigFile(cwd)
	if err != nil {
		// No config file found, that's okay when flags supply everything
		return "", nil
	}
	return found, nil
}

// LoadConfig loads the configuration named by --config or discovered from
// the current directory, falling back to defaults when there is none.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := InitConfig(GetOptions(cmd).ConfigFile)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
