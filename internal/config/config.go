package config

import (
	"fmt"
	"path/filepath"

	"composehook/internal/security"
	"composehook/pkg/fileutil"

	"github.com/caarlos0/env/v10"
)

const (
	// DefaultPullTimeout is the maximum time for an image pull, in seconds.
	DefaultPullTimeout = 300

	// DefaultRestartTimeout is the maximum time for a compose restart, in seconds.
	DefaultRestartTimeout = 120

	// OverridesFileName is the optional per-stack overrides file searched in
	// the standard config locations.
	OverridesFileName = "composehook.yaml"
)

// Config holds the server configuration, populated from environment variables.
type Config struct {
	// Server
	Host string `env:"COMPOSEHOOK_HOST" envDefault:"127.0.0.1"`
	Port int    `env:"COMPOSEHOOK_PORT" envDefault:"5000"`

	// Token is the shared secret compared against the X-Hook-Token header.
	Token string `env:"COMPOSEHOOK_TOKEN"`

	// StacksDir is scanned at startup; each subdirectory with a compose file
	// becomes a deployable service.
	StacksDir string `env:"COMPOSEHOOK_STACKS_DIR" envDefault:"/srv/stacks"`

	// LogFile is the append-only deployment log.
	LogFile string `env:"COMPOSEHOOK_LOG_FILE" envDefault:"./composehook.log"`

	// Registry is an optional prefix for image names, e.g.
	// "registry.example.com/team". The image for a stack defaults to
	// "<registry>/<stack name>".
	Registry string `env:"COMPOSEHOOK_REGISTRY"`

	// AllowedTags is the fixed list of image tags accepted by the webhook.
	AllowedTags []string `env:"COMPOSEHOOK_ALLOWED_TAGS" envSeparator:"," envDefault:"latest,stable,staging,develop"`

	// Timeouts, in seconds.
	PullTimeout    int `env:"COMPOSEHOOK_PULL_TIMEOUT" envDefault:"300"`
	RestartTimeout int `env:"COMPOSEHOOK_RESTART_TIMEOUT" envDefault:"120"`

	// Watch enables the fsnotify rescan of the stacks directory.
	Watch bool `env:"COMPOSEHOOK_WATCH" envDefault:"true"`

	// ExposeOutput includes command output in error responses. Off by default
	// since pull output can leak registry details.
	ExposeOutput bool `env:"COMPOSEHOOK_EXPOSE_OUTPUT" envDefault:"false"`
}

// Parse reads configuration from environment variables without validating
// it. Callers that apply flag overrides validate afterwards.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.Token == "" {
		return fmt.Errorf("COMPOSEHOOK_TOKEN is required")
	}
	if err := security.ValidateToken(c.Token); err != nil {
		return fmt.Errorf("COMPOSEHOOK_TOKEN: %w", err)
	}

	if c.StacksDir == "" {
		return fmt.Errorf("stacks directory cannot be empty")
	}
	if !filepath.IsAbs(c.StacksDir) {
		abs, err := filepath.Abs(c.StacksDir)
		if err != nil {
			return fmt.Errorf("cannot resolve stacks directory '%s': %w", c.StacksDir, err)
		}
		c.StacksDir = abs
	}
	if !fileutil.DirExists(c.StacksDir) {
		return fmt.Errorf("stacks directory does not exist: %s", c.StacksDir)
	}

	if len(c.AllowedTags) == 0 {
		return fmt.Errorf("allowed tag list cannot be empty")
	}
	for _, tag := range c.AllowedTags {
		if err := security.ValidateTag(tag); err != nil {
			return fmt.Errorf("allowed tag '%s': %w", tag, err)
		}
	}

	if c.Registry != "" {
		if err := security.ValidateImageName(c.Registry); err != nil {
			return fmt.Errorf("registry prefix '%s': %w", c.Registry, err)
		}
	}

	if c.PullTimeout <= 0 {
		return fmt.Errorf("pull timeout must be a positive integer, got %d", c.PullTimeout)
	}
	if c.RestartTimeout <= 0 {
		return fmt.Errorf("restart timeout must be a positive integer, got %d", c.RestartTimeout)
	}

	return nil
}

// TagAllowed reports whether tag is in the allowed tag list.
func (c *Config) TagAllowed(tag string) bool {
	for _, t := range c.AllowedTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
