package deploy

import (
	"context"
	"fmt"
	"time"

	"composehook/internal/security"
	"composehook/pkg/cmdutil"
)

// ExecutionResult represents the result of running a command
type ExecutionResult struct {
	ReturnCode int
	Output     string
	Duration   time.Duration
}

// OK checks if the execution was successful
func (r *ExecutionResult) OK() bool {
	return r.ReturnCode == 0
}

// RunnerFunc executes a validated command. The default runner shells out via
// pkg/cmdutil; tests substitute a fake.
type RunnerFunc func(ctx context.Context, opts cmdutil.ExecOptions, cmdParts []string) (*cmdutil.Result, error)

// Executor handles command execution for a single stack directory,
// with timeouts and an allow-list sandbox.
type Executor struct {
	StackDir string

	// Runner can be replaced in tests to avoid real docker invocations.
	Runner RunnerFunc

	sandbox *security.SandboxedExecutor
}

// NewExecutor creates a new executor rooted at the stack directory.
func NewExecutor(stackDir string) *Executor {
	return &Executor{
		StackDir: stackDir,
		Runner:   cmdutil.Run,
		sandbox:  security.NewSandboxedExecutor(stackDir),
	}
}

// RunCommand validates a command against the sandbox allow-list and executes
// it in the stack directory with a timeout (seconds).
func (e *Executor) RunCommand(ctx context.Context, command []string, timeout int) (*ExecutionResult, error) {
	if err := e.sandbox.ValidateCommandParts(command); err != nil {
		return nil, err
	}

	result, err := e.Runner(
		ctx,
		cmdutil.ExecOptions{
			Dir:            e.StackDir,
			Timeout:        time.Duration(timeout) * time.Second,
			CombinedOutput: true,
		},
		command,
	)

	execResult := &ExecutionResult{}
	if result != nil {
		execResult.Output = string(result.Output)
		execResult.ReturnCode = result.ExitCode
		execResult.Duration = result.Duration
	}

	if err != nil {
		return execResult, err
	}

	return execResult, nil
}

// PullImage pulls the image reference with the container engine matching the
// stack's compose command.
func (e *Executor) PullImage(ctx context.Context, composeCommand []string, imageRef string, timeout int) (*ExecutionResult, error) {
	cmd := []string{pullTool(composeCommand), "pull", imageRef}
	result, err := e.RunCommand(ctx, cmd, timeout)
	if err != nil {
		return result, fmt.Errorf("image pull failed: %w", err)
	}
	if !result.OK() {
		return result, fmt.Errorf("image pull exited with code %d", result.ReturnCode)
	}
	return result, nil
}

// ComposeUp recreates the stack's services from the freshly pulled image.
// Runs "<compose command> -f <file> up -d" in the stack directory.
func (e *Executor) ComposeUp(ctx context.Context, composeCommand []string, composeFile string, timeout int) (*ExecutionResult, error) {
	cmd := make([]string, 0, len(composeCommand)+5)
	cmd = append(cmd, composeCommand...)
	cmd = append(cmd, "-f", composeFile, "up", "-d")

	result, err := e.RunCommand(ctx, cmd, timeout)
	if err != nil {
		return result, fmt.Errorf("compose restart failed: %w", err)
	}
	if !result.OK() {
		return result, fmt.Errorf("compose restart exited with code %d", result.ReturnCode)
	}
	return result, nil
}

// pullTool maps a compose command to its container engine for image pulls:
// "docker compose" and "docker-compose" pull with docker, the podman variants
// pull with podman.
func pullTool(composeCommand []string) string {
	if len(composeCommand) == 0 {
		return "docker"
	}
	switch composeCommand[0] {
	case "podman", "podman-compose":
		return "podman"
	default:
		return "docker"
	}
}
