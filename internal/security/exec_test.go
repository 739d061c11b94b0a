package security

import (
	"strings"
	"testing"
)

func TestSandboxedExecutor_ValidateCommandParts(t *testing.T) {
	executor := NewSandboxedExecutor(t.TempDir())

	tests := []struct {
		name        string
		cmdParts    []string
		wantErr     bool
		errContains string
	}{
		{
			"docker pull",
			[]string{"docker", "pull", "registry.example.com/app:latest"},
			false,
			"",
		},
		{
			"docker compose up",
			[]string{"docker", "compose", "up", "-d"},
			false,
			"",
		},
		{
			"legacy docker-compose",
			[]string{"docker-compose", "up", "-d"},
			false,
			"",
		},
		{
			"podman",
			[]string{"podman", "pull", "app:stable"},
			false,
			"",
		},
		{
			"rm blocked",
			[]string{"rm", "-rf", "/"},
			true,
			"command not allowed",
		},
		{
			"bash blocked",
			[]string{"bash", "-c", "id"},
			true,
			"command not allowed",
		},
		{
			"git blocked",
			[]string{"git", "pull"},
			true,
			"command not allowed",
		},
		{
			"empty command",
			[]string{},
			true,
			"empty command",
		},
		{
			"semicolon in arg",
			[]string{"docker", "pull", "app;id"},
			true,
			"shell metacharacters",
		},
		{
			"pipe in arg",
			[]string{"docker", "pull", "app|cat"},
			true,
			"shell metacharacters",
		},
		{
			"substitution in arg",
			[]string{"docker", "pull", "app$(whoami)"},
			true,
			"shell metacharacters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := executor.ValidateCommandParts(tt.cmdParts)

			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("Expected error containing %q, got %v", tt.errContains, err)
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestSandboxedExecutor_AddAllowedCommand(t *testing.T) {
	executor := &SandboxedExecutor{WorkDir: t.TempDir()}

	if executor.IsCommandAllowed("nerdctl") {
		t.Error("Expected nerdctl to be disallowed by default")
	}

	executor.AddAllowedCommand("nerdctl")

	if !executor.IsCommandAllowed("nerdctl") {
		t.Error("Expected nerdctl to be allowed after AddAllowedCommand")
	}
}

func TestContainsShellMetachars(t *testing.T) {
	safe := []string{"up", "-d", "--no-deps", "registry.example.com/app:v1.2.3"}
	for _, arg := range safe {
		if containsShellMetachars(arg) {
			t.Errorf("Expected %q to be safe", arg)
		}
	}

	unsafe := []string{"a;b", "a|b", "a&b", "$HOME", "`id`", "a>b", "a(b)", "a*", "a'b"}
	for _, arg := range unsafe {
		if !containsShellMetachars(arg) {
			t.Errorf("Expected %q to be flagged", arg)
		}
	}
}
