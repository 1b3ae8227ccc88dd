package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/gcpd/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("GCPD_TEST_REPO", "/srv/mirror")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"set variable", "repository: ${GCPD_TEST_REPO}", "repository: /srv/mirror"},
		{"unset with default", "branch: ${GCPD_TEST_UNSET:-staging}", "branch: staging"},
		{"unset without default", "url: ${GCPD_TEST_UNSET}", "url: "},
		{"no references", "remote: origin", "remote: origin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestLoadFromBytesYAML(t *testing.T) {
	data := []byte(`
repository: /srv/mirror
branch: staging
base_branch: main
post_push_command: make deploy
poll_interval: 2m
branches:
  exclude: ["wip/*"]
server:
  port: 4000
terminal:
  cols: 120
logging:
  level: debug
`)
	cfg, err := LoadFromBytes(data, "yaml")
	require.NoError(t, err)

	assert.Equal(t, "/srv/mirror", cfg.Repository)
	assert.Equal(t, "staging", cfg.Branch)
	assert.Equal(t, "main", cfg.BaseBranch)
	assert.Equal(t, "origin", cfg.Remote)
	assert.Equal(t, "make deploy", cfg.PostPushCommand)
	assert.Equal(t, []string{"wip/*"}, cfg.Branches.Exclude)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, DefaultBind, cfg.Server.Bind)
	assert.Equal(t, 120, cfg.Terminal.Cols)
	assert.Equal(t, DefaultRows, cfg.Terminal.Rows)
	assert.Equal(t, DefaultTerminalName, cfg.Terminal.Name)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2*time.Minute, cfg.PollEvery())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromBytesTOML(t *testing.T) {
	data := []byte(`
repository = "/srv/mirror"
branch = "staging"
remote = "upstream"

[server]
port = 8080
`)
	cfg, err := LoadFromBytes(data, "toml")
	require.NoError(t, err)

	assert.Equal(t, "upstream", cfg.Remote)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultBaseBranch, cfg.BaseBranch)
}

func TestLoadFromBytesRejectsUnknownKeys(t *testing.T) {
	_, err := LoadFromBytes([]byte("repository: /srv\nbrnach: staging\n"), "yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigValidation))
}

func TestLoadFromBytesRejectsWrongTypes(t *testing.T) {
	_, err := LoadFromBytes([]byte("server:\n  port: [1, 2]\n"), "yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigValidation))
}

func TestLoadFromBytesParseError(t *testing.T) {
	_, err := LoadFromBytes([]byte("branch: [unterminated\n"), "yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
}

func TestDefaultHonorsPortEnv(t *testing.T) {
	t.Setenv("PORT", "5050")
	assert.Equal(t, 5050, Default().Server.Port)

	t.Setenv("PORT", "not-a-port")
	assert.Equal(t, DefaultPort, Default().Server.Port)
}

func TestLoadResolvesRelativeRepository(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gcpd.yml")
	require.NoError(t, os.WriteFile(path, []byte("repository: mirror\nbranch: staging\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mirror"), cfg.Repository)
	assert.Equal(t, path, cfg.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "gcpd.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestFindConfigFileWalksUp(t *testing.T) {
	t.Setenv("GCPD_HOME", t.TempDir())
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	path := filepath.Join(root, "gcpd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`branch = "x"`), 0o644))

	found, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Repository = "/srv/mirror"
		cfg.Branch = "staging"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing repository", func(c *Config) { c.Repository = "" }, false},
		{"missing branch", func(c *Config) { c.Branch = "" }, false},
		{"branch equals base", func(c *Config) { c.Branch = c.BaseBranch }, false},
		{"bad branch ref", func(c *Config) { c.Branch = "bad..ref" }, false},
		{"bad remote", func(c *Config) { c.Remote = "-evil" }, false},
		{"bad poll interval", func(c *Config) { c.PollInterval = "soon" }, false},
		{"poll interval too short", func(c *Config) { c.PollInterval = "10ms" }, false},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, false},
		{"zero rows", func(c *Config) { c.Terminal.Rows = 0 }, false},
		{"bad pattern", func(c *Config) { c.Branches.Include = []string{"[a-"} }, false},
		{"good patterns", func(c *Config) { c.Branches.Include = []string{"feature/*"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid))
			}
		})
	}
}

func TestSchemaJSON(t *testing.T) {
	raw, err := SchemaJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "post_push_command")
	assert.Contains(t, string(raw), "replay_bytes")
	assert.NotContains(t, string(raw), `"Path"`)
}

func TestLoadFromBytesLoggingSection(t *testing.T) {
	data := []byte(`
repository: /srv/mirror
branch: staging
logging:
  level: debug
  report_caller: true
  format:
    preset: json
  file:
    enabled: true
    path: /tmp/gcpd.log
`)
	cfg, err := LoadFromBytes(data, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.ReportCaller)
	assert.Equal(t, "json", cfg.Logging.Format.Preset)
	assert.Equal(t, "/tmp/gcpd.log", cfg.Logging.File.Path)

	_, err = LoadFromBytes([]byte("repository: r\nbranch: b\nlogging:\n  colour: red\n"), "yaml")
	assert.True(t, errors.Is(err, errors.ErrCodeConfigValidation))
}

func TestSchemaKeepsLoggingDefinitionSeparate(t *testing.T) {
	schema := GenerateSchema()
	require.NotNil(t, schema.Properties)
	_, ok := schema.Properties.Get("logging")
	assert.True(t, ok, "root properties are expanded")

	raw, err := SchemaJSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"LoggingConfig"`)
	assert.NotContains(t, string(raw), `"$ref": "#/$defs/Config"`)
}
