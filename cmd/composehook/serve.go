package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"composehook/internal/config"
	"composehook/internal/server"
	"composehook/internal/stack"
	"composehook/pkg/fileutil"

	"github.com/spf13/cobra"
)

var (
	host          string
	port          int
	stacksDir     string
	logFile       string
	overridesFile string
	testMode      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook server",
	Long: `Start the HTTP server that receives deploy webhooks.

The server scans the stacks directory for compose projects and, on an
authenticated POST /deploy, pulls the requested image tag and restarts
the stack.`,
	RunE: runServe,
}

func init() {
	// Flags for serve command
	serveCmd.Flags().StringVar(&host, "host", "", "Host to bind to (overrides COMPOSEHOOK_HOST)")
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides COMPOSEHOOK_PORT)")
	serveCmd.Flags().StringVar(&stacksDir, "stacks-dir", "", "Directory of compose stacks (overrides COMPOSEHOOK_STACKS_DIR)")
	serveCmd.Flags().StringVar(&logFile, "log", "", "Path to log file (overrides COMPOSEHOOK_LOG_FILE)")
	serveCmd.Flags().StringVarP(&overridesFile, "overrides", "c", getEnvOrDefault("COMPOSEHOOK_OVERRIDES_FILE", ""), "Path to per-stack overrides file")
	serveCmd.Flags().BoolVar(&testMode, "test-mode", os.Getenv("COMPOSEHOOK_SKIP_RATELIMIT") == "1", "Enable test mode (disable rate limiting)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration from the environment, then let flags win
	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("host") {
		cfg.Host = host
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if cmd.Flags().Changed("stacks-dir") {
		cfg.StacksDir = stacksDir
	}
	if cmd.Flags().Changed("log") {
		cfg.LogFile = logFile
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Set up logging
	logger, logFileHandle, err := setupLogging(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	logger.Info("Starting composehook")

	// Load optional per-stack overrides
	if overridesFile == "" {
		overridesFile = fileutil.FindConfigOptional(config.OverridesFileName)
	}
	overrides, err := config.LoadOverrides(overridesFile)
	if err != nil {
		logger.Error("Failed to load overrides", "path", overridesFile, "error", err)
		return fmt.Errorf("failed to load overrides: %w", err)
	}
	if overridesFile != "" {
		logger.Info("Loaded stack overrides", "path", overridesFile, "count", len(overrides.Stacks))
	}

	// Discover deployable stacks
	logger.Info("Scanning stacks directory", "dir", cfg.StacksDir)
	stacks, err := stack.Scan(cfg.StacksDir, cfg.Registry, overrides)
	if err != nil {
		logger.Error("Failed to scan stacks directory", "error", err)
		return fmt.Errorf("failed to scan stacks directory: %w", err)
	}

	logger.Info("Stacks discovered", "count", len(stacks))

	// Warn if no stacks were found
	if len(stacks) == 0 {
		logger.Warn("No compose stacks found", "dir", cfg.StacksDir)
		logger.Warn("The server will start but won't handle any deployments until stacks are added")
	}

	registry := stack.NewRegistry(stacks)

	// Keep the registry fresh as stacks come and go
	if cfg.Watch {
		rescan := func() ([]*stack.Stack, error) {
			return stack.Scan(cfg.StacksDir, cfg.Registry, overrides)
		}
		watcher, err := stack.NewWatcher(cfg.StacksDir, registry, rescan, logger)
		if err != nil {
			logger.Error("Failed to watch stacks directory", "error", err)
			return fmt.Errorf("failed to watch stacks directory: %w", err)
		}
		defer watcher.Close()
		watcher.Start(context.Background())
		logger.Info("Watching stacks directory for changes", "dir", cfg.StacksDir)
	}

	// Create and start server
	srv := server.NewServer(registry, cfg, logger, testMode)

	logger.Info("Starting HTTP server", "host", cfg.Host, "port", cfg.Port)
	if err := srv.Start(); err != nil {
		logger.Error("Server failed", "error", err)
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// setupLogging configures slog for file logging
// Returns both the logger and the file handle (caller must close the file)
func setupLogging(logPath string) (*slog.Logger, *os.File, error) {
	// Create log directory if needed
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file with secure permissions
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create multi-writer to log to both file and console
	multiWriter := io.MultiWriter(os.Stdout, file)

	// Create JSON handler for structured logging
	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	logger := slog.New(handler)

	return logger, file, nil
}

// getEnvOrDefault returns the environment value for key, or the default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
