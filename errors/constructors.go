package errors

import (
	"fmt"
	"os/exec"
	"strings"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *GcpdError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *GcpdError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// QueryFailed creates a repository query failure. stderr is attached as a
// detail and appended to the message so observers see what git printed.
func QueryFailed(args []string, stderr string, err error) *GcpdError {
	cmd := "git " + strings.Join(args, " ")
	msg := fmt.Sprintf("%s failed", cmd)
	stderr = strings.TrimSpace(stderr)
	if stderr != "" {
		msg = fmt.Sprintf("%s failed: %s", cmd, stderr)
	}
	gcpdErr := Wrap(err, ErrCodeQueryFailed, msg).WithDetail("command", cmd)

	if exitErr, ok := err.(*exec.ExitError); ok {
		gcpdErr = gcpdErr.WithDetail("exitCode", exitErr.ExitCode())
	}
	return gcpdErr
}

// RemoteNotFound creates an error for a remote missing from the repository
func RemoteNotFound(remote string) *GcpdError {
	return New(ErrCodeRemoteNotFound, fmt.Sprintf("Cannot find remote %s", remote)).
		WithDetail("remote", remote)
}

// StepFailed creates a pipeline step failure
func StepFailed(step string, err error) *GcpdError {
	return Wrap(err, ErrCodeStepFailed, fmt.Sprintf("%s failed", step)).
		WithDetail("step", step)
}

// CleanupFailed creates an error for a temporary directory that could not be removed
func CleanupFailed(dir string, err error) *GcpdError {
	return Wrap(err, ErrCodeCleanupFailed, fmt.Sprintf("cleanup of %s failed", dir)).
		WithDetail("dir", dir)
}

// UnknownAction creates an error for an observer action with no handler
func UnknownAction(name string) *GcpdError {
	return New(ErrCodeUnknownAction, fmt.Sprintf("%s doesn't exist.", name)).
		WithDetail("action", name)
}

// InvalidAction creates an error for an action whose parameters cannot be decoded
func InvalidAction(name string, err error) *GcpdError {
	return Wrap(err, ErrCodeInvalidAction, fmt.Sprintf("invalid parameters for %s", name)).
		WithDetail("action", name)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *GcpdError {
	gcpdErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		gcpdErr = gcpdErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return gcpdErr
}

// InstanceRunning creates an error for a second instance serving the same target branch
func InstanceRunning(branch string, pid int) *GcpdError {
	return New(ErrCodeInstanceRunning,
		fmt.Sprintf("gcpd already running for branch %s with PID %d", branch, pid)).
		WithDetail("branch", branch).
		WithDetail("pid", pid)
}
