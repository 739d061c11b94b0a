package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"composehook/internal/config"
	"composehook/internal/deploy"
	"composehook/internal/server"
	"composehook/internal/stack"
	"composehook/pkg/cmdutil"
)

const testToken = "kJ8mN2pQ7rS4tU6vW9xY1zA3bC5dE0fGhI"

// fakeRunner records every command the executor would run and returns
// scripted exit codes, so the full HTTP-to-executor path runs without docker.
type fakeRunner struct {
	commands  [][]string
	exitCodes []int
}

func (f *fakeRunner) run(ctx context.Context, opts cmdutil.ExecOptions, cmdParts []string) (*cmdutil.Result, error) {
	f.commands = append(f.commands, cmdParts)

	code := 0
	if len(f.exitCodes) > 0 {
		code = f.exitCodes[0]
		f.exitCodes = f.exitCodes[1:]
	}

	result := &cmdutil.Result{ExitCode: code, Output: []byte("ok")}
	if code != 0 {
		return result, &exitError{code: code}
	}
	return result, nil
}

type exitError struct{ code int }

func (e *exitError) Error() string { return "exit status 1" }

// setupStacksDir builds a stacks tree with two compose projects, one
// directory without a compose file and one hidden directory.
func setupStacksDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	for name, composeFile := range map[string]string{
		"webapp": "compose.yaml",
		"api":    "docker-compose.yml",
	} {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create stack dir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, composeFile), []byte("services: {}\n"), 0644); err != nil {
			t.Fatalf("Failed to write compose file: %v", err)
		}
	}

	// Not deployable: no compose file
	os.MkdirAll(filepath.Join(root, "scratch"), 0755)
	// Not deployable: hidden
	os.MkdirAll(filepath.Join(root, ".git"), 0755)

	return root
}

func setupServer(t *testing.T, runner *fakeRunner) *server.Server {
	t.Helper()

	root := setupStacksDir(t)

	cfg := &config.Config{
		Host:           "127.0.0.1",
		Port:           5000,
		Token:          testToken,
		StacksDir:      root,
		Registry:       "registry.example.com/team",
		AllowedTags:    []string{"latest", "stable"},
		PullTimeout:    60,
		RestartTimeout: 60,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Test config is invalid: %v", err)
	}

	stacks, err := stack.Scan(cfg.StacksDir, cfg.Registry, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	registry := stack.NewRegistry(stacks)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := server.NewServer(registry, cfg, logger, true)

	// Run the real deployment path with the faked command runner
	srv.Deploy = func(ctx context.Context, st *stack.Stack, tag string) (map[string]interface{}, int) {
		d := deploy.NewDeployment(st, tag, cfg.PullTimeout, cfg.RestartTimeout, cfg.ExposeOutput)
		d.Executor.Runner = runner.run
		return d.Execute(ctx)
	}

	return srv
}

func deployRequest(token, body string) *http.Request {
	req := httptest.NewRequest("POST", "/deploy", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(server.TokenHeader, token)
	}
	return req
}

// TestWebhookDeployFlow drives a deploy through the router and checks the
// exact commands the executor runs.
func TestWebhookDeployFlow(t *testing.T) {
	runner := &fakeRunner{}
	srv := setupServer(t, runner)

	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, deployRequest(testToken, `{"service":"webapp","tag":"stable"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	if len(runner.commands) != 2 {
		t.Fatalf("Expected 2 commands, got %d: %v", len(runner.commands), runner.commands)
	}

	pull := cmdutil.FormatCommand(runner.commands[0])
	if pull != "docker pull registry.example.com/team/webapp:stable" {
		t.Errorf("Unexpected pull command: %s", pull)
	}

	up := runner.commands[1]
	if up[0] != "docker" || up[1] != "compose" || up[len(up)-2] != "up" || up[len(up)-1] != "-d" {
		t.Errorf("Unexpected compose command: %v", up)
	}

	var response map[string]interface{}
	json.Unmarshal(rr.Body.Bytes(), &response)
	if response["message"] != "deployed" || response["service"] != "webapp" {
		t.Errorf("Unexpected response: %v", response)
	}

	// The deploy is visible through the status endpoint
	req := httptest.NewRequest("GET", "/status/webapp", nil)
	req.Header.Set(server.TokenHeader, testToken)
	rr = httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200 from /status/webapp, got %d", rr.Code)
	}
	var status map[string]interface{}
	json.Unmarshal(rr.Body.Bytes(), &status)
	if status["latest_deployment"] == nil {
		t.Error("Expected latest_deployment after a deploy")
	}
}

// TestWebhookTokenValidation checks the shared-token auth across requests.
func TestWebhookTokenValidation(t *testing.T) {
	runner := &fakeRunner{}
	srv := setupServer(t, runner)

	tests := []struct {
		name           string
		token          string
		expectedStatus int
	}{
		{"valid token", testToken, http.StatusOK},
		{"missing token", "", http.StatusNotFound},
		{"wrong token", "wrong-token-wrong-token-wrong-token", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.Router().ServeHTTP(rr, deployRequest(tt.token, `{"service":"api","tag":"latest"}`))

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}

			if tt.expectedStatus == http.StatusNotFound {
				var response map[string]string
				json.Unmarshal(rr.Body.Bytes(), &response)
				if response["error"] != "Not found" {
					t.Errorf("Expected 'Not found', got %v", response)
				}
			}
		})
	}
}

// TestWebhookPullFailureStopsRestart checks that a failed pull answers 500
// and the compose restart never runs.
func TestWebhookPullFailureStopsRestart(t *testing.T) {
	runner := &fakeRunner{exitCodes: []int{1}}
	srv := setupServer(t, runner)

	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, deployRequest(testToken, `{"service":"webapp","tag":"latest"}`))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d: %s", rr.Code, rr.Body.String())
	}

	if len(runner.commands) != 1 {
		t.Errorf("Expected only the pull command, got %v", runner.commands)
	}
}

// TestWebhookUnknownService checks that only scanned directories are
// deployable.
func TestWebhookUnknownService(t *testing.T) {
	runner := &fakeRunner{}
	srv := setupServer(t, runner)

	for _, name := range []string{"scratch", "ghost", ".git"} {
		rr := httptest.NewRecorder()
		srv.Router().ServeHTTP(rr, deployRequest(testToken, `{"service":"`+name+`","tag":"latest"}`))

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for %q, got %d", name, rr.Code)
		}
	}

	if len(runner.commands) != 0 {
		t.Errorf("Expected no commands, got %v", runner.commands)
	}
}

// TestHealthWithoutToken checks the unauthenticated health endpoint lists
// only the deployable stacks.
func TestHealthWithoutToken(t *testing.T) {
	srv := setupServer(t, &fakeRunner{})

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var response struct {
		Status     string   `json:"status"`
		Stacks     []string `json:"stacks"`
		StackCount int      `json:"stack_count"`
	}
	json.Unmarshal(rr.Body.Bytes(), &response)

	if response.Status != "ok" || response.StackCount != 2 {
		t.Errorf("Unexpected health response: %+v", response)
	}
}
