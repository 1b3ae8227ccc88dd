package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/grovetools/gcpd/errors"
	"github.com/grovetools/gcpd/pkg/paths"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// FileNames are the configuration file names searched for, in order.
var FileNames = []string{"gcpd.yml", "gcpd.yaml", "gcpd.toml"}

const (
	DefaultBaseBranch   = "master"
	DefaultRemote       = "origin"
	DefaultBind         = "127.0.0.1"
	DefaultPort         = 3000
	DefaultTerminalName = "xterm-color"
	DefaultCols         = 80
	DefaultRows         = 30
	DefaultReplayBytes  = 1024 * 1024
)

// Default returns a configuration holding every default value. PORT from
// the environment replaces the default port.
func Default() *Config {
	port := DefaultPort
	if env, err := strconv.Atoi(os.Getenv("PORT")); err == nil && env > 0 {
		port = env
	}
	return &Config{
		BaseBranch: DefaultBaseBranch,
		Remote:     DefaultRemote,
		Server: ServerConfig{
			Bind: DefaultBind,
			Port: port,
		},
		Terminal: TerminalConfig{
			Name:        DefaultTerminalName,
			Cols:        DefaultCols,
			Rows:        DefaultRows,
			ReplayBytes: DefaultReplayBytes,
		},
	}
}

// Load reads and parses a gcpd configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, formatOf(path))
	if err != nil {
		if gcpdErr, ok := err.(*errors.GcpdError); ok {
			return nil, gcpdErr.WithDetail("path", path)
		}
		return nil, err
	}
	cfg.Path = path
	if cfg.Repository != "" && !filepath.IsAbs(cfg.Repository) {
		cfg.Repository = filepath.Join(filepath.Dir(path), cfg.Repository)
	}
	return cfg, nil
}

// LoadDefault finds the configuration file starting at the current
// directory and loads it.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}

	path, err := FindConfigFile(cwd)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// LoadFromBytes parses a document in the given format ("yaml" or "toml"),
// validates it against the schema, and decodes it over the defaults.
func LoadFromBytes(data []byte, format string) (*Config, error) {
	doc, err := parseDocument(data, format)
	if err != nil {
		return nil, err
	}

	if err := ValidateDocument(doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "configuration does not match schema")
	}

	cfg := Default()
	if err := decode(doc, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}
	return cfg, nil
}

// parseDocument expands ${VAR} references and parses the result into a
// generic map.
func parseDocument(data []byte, format string) (map[string]interface{}, error) {
	expanded := []byte(expandEnvVars(string(data)))
	doc := make(map[string]interface{})

	switch format {
	case "toml":
		if err := toml.Unmarshal(expanded, &doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
	default:
		if err := yaml.Unmarshal(expanded, &doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
		}
	}
	return doc, nil
}

// decode maps a generic document onto target using yaml field names.
// Values produced by ${VAR} expansion arrive as strings, so weak typing is on.
func decode(doc map[string]interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(doc)
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

// FindConfigFile searches for a gcpd configuration file starting at
// startDir and walking up to the filesystem root, then falls back to the
// user configuration directory.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if configDir := paths.ConfigDir(); configDir != "" {
		for _, name := range FileNames {
			path := filepath.Join(configDir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
