package command

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestValidateGitRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple branch", "main", false},
		{"nested branch", "feature/login-form", false},
		{"remote tracking ref", "refs/remotes/origin/release-1.2", false},
		{"plus and at are allowed", "fix+hot@home", false},
		{"empty ref", "", true},
		{"option injection", "--upload-pack=evil", true},
		{"range syntax", "main..topic", true},
		{"reflog syntax", "main@{1}", true},
		{"space", "my branch", true},
		{"tilde", "main~1", true},
		{"colon", "HEAD:target", true},
		{"lock suffix", "main.lock", true},
		{"control character", "main\x07", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateGitRef(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateGitRef(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRemoteName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"origin", "origin", false},
		{"with dash", "my-fork", false},
		{"with dot", "upstream.v2", false},
		{"empty", "", true},
		{"leading dash", "-origin", true},
		{"slash", "a/b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRemoteName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRemoteName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid path", "/path/to/file.txt", false},
		{"relative path", "relative/path.txt", false},
		{"command injection semicolon", "file.txt; rm -rf /", true},
		{"command injection pipe", "file.txt | cat", true},
		{"command injection dollar", "$(whoami)", true},
		{"empty path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFileName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFileName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSafeBuilder(t *testing.T) {
	sb := NewSafeBuilder()
	ctx := context.Background()

	t.Run("empty command name", func(t *testing.T) {
		_, err := sb.Build(ctx, "")
		if err == nil {
			t.Error("expected error for empty command name")
		}
	})

	t.Run("unknown validator", func(t *testing.T) {
		if err := sb.Validate("nope", "x"); err == nil {
			t.Error("expected error for unknown validator")
		}
	})

	t.Run("timeout is capped", func(t *testing.T) {
		capped := NewSafeBuilder().WithDefaultTimeout(time.Hour)
		if capped.defaultTimeout != MaxTimeout {
			t.Errorf("expected timeout capped to %v, got %v", MaxTimeout, capped.defaultTimeout)
		}
	})
}

type recordingExecutor struct {
	RealExecutor
	names []string
}

func (e *recordingExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	e.names = append(e.names, name)
	return e.RealExecutor.CommandContext(ctx, name, args...)
}

func TestCommandOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	rec := &recordingExecutor{}
	sb := NewSafeBuilderWithExecutor(rec)
	dir := t.TempDir()

	cmd, err := sb.Build(context.Background(), "sh", "-c", "pwd; echo oops >&2")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	stdout, stderr, err := cmd.InDir(dir).Output()
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(stdout), strings.TrimPrefix(dir, "/private")) {
		t.Errorf("expected pwd %s, got %q", dir, stdout)
	}
	if strings.TrimSpace(stderr) != "oops" {
		t.Errorf("expected stderr oops, got %q", stderr)
	}
	if len(rec.names) != 1 || rec.names[0] != "sh" {
		t.Errorf("executor not used: %v", rec.names)
	}
	if cmd.String() != "sh -c pwd; echo oops >&2" {
		t.Errorf("unexpected String(): %q", cmd.String())
	}
}
