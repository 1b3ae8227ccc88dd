package logging

// Config defines the `logging` section of the gcpd configuration file.
type Config struct {
	// Level is the minimum log level to output (e.g., "debug", "info", "warn", "error").
	// Can be overridden by the GCPD_LOG_LEVEL environment variable.
	Level string `yaml:"level,omitempty" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error,description=Minimum log level"`

	// ReportCaller, if true, includes the file, line, and function name in the log output.
	// Can be enabled with the GCPD_LOG_CALLER=true environment variable.
	ReportCaller bool `yaml:"report_caller,omitempty" jsonschema:"description=Include caller file and line"`

	// File configures logging to a file.
	File FileSinkConfig `yaml:"file,omitempty" jsonschema:"description=Optional file sink"`

	// Format configures the appearance of the log output.
	Format FormatConfig `yaml:"format,omitempty" jsonschema:"description=Log output format"`
}

// FileSinkConfig configures the file logging sink.
type FileSinkConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
	// Path is the full path to the log file.
	Path string `yaml:"path,omitempty"`
}

// FormatConfig controls the log output format.
type FormatConfig struct {
	// Preset can be "default" (rich text), "simple" (minimal text), or "json".
	Preset string `yaml:"preset,omitempty" jsonschema:"enum=default,enum=simple,enum=json"`
	// DisableTimestamp disables the timestamp from the "default" and "simple" formats.
	DisableTimestamp bool `yaml:"disable_timestamp,omitempty"`
	// DisableComponent disables the component name from the "default" and "simple" formats.
	DisableComponent bool `yaml:"disable_component,omitempty"`
	// StructuredToStderr controls when logs are sent to stderr.
	// Can be "always" (default), "auto", or "never".
	StructuredToStderr string `yaml:"structured_to_stderr,omitempty" jsonschema:"enum=always,enum=auto,enum=never"`
}
