package config

import (
	"fmt"
	"os"
	"strings"

	"composehook/internal/security"
	"composehook/pkg/cmdutil"

	"gopkg.in/yaml.v3"
)

// StackOverride customizes a single stack beyond the directory-derived
// defaults. All fields are optional.
type StackOverride struct {
	// Image replaces the "<registry>/<stack name>" default.
	Image string `yaml:"image"`

	// ComposeFile names the compose file within the stack directory.
	ComposeFile string `yaml:"compose_file"`

	// ComposeCommand replaces "docker compose", e.g. "docker-compose" or
	// "podman-compose". Parsed with shell quoting rules.
	ComposeCommand string `yaml:"compose_command"`

	// ExtraTags are allowed for this stack in addition to the global list.
	ExtraTags []string `yaml:"extra_tags"`
}

// Overrides is the root structure of the optional composehook.yaml file.
type Overrides struct {
	Stacks map[string]StackOverride `yaml:"stacks"`
}

// LoadOverrides loads and validates the per-stack overrides file.
// An empty path returns empty overrides.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{Stacks: map[string]StackOverride{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}

	var overrides Overrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse YAML overrides: %w", err)
	}

	if overrides.Stacks == nil {
		overrides.Stacks = map[string]StackOverride{}
	}

	for name, override := range overrides.Stacks {
		if errs := ValidateStackOverride(name, override); len(errs) > 0 {
			return nil, fmt.Errorf("invalid override for stack '%s':\n%s",
				name, strings.Join(errs, "\n"))
		}
	}

	return &overrides, nil
}

// ValidateStackOverride validates a single stack override entry.
func ValidateStackOverride(name string, override StackOverride) []string {
	var errors []string

	if err := security.ValidateServiceName(name); err != nil {
		errors = append(errors, fmt.Sprintf("  - Stack '%s': invalid name: %v", name, err))
	}

	if override.Image != "" {
		if err := security.ValidateImageName(override.Image); err != nil {
			errors = append(errors, fmt.Sprintf("  - Stack '%s': invalid image: %v", name, err))
		}
	}

	if override.ComposeFile != "" {
		if strings.Contains(override.ComposeFile, "/") || strings.Contains(override.ComposeFile, "..") {
			errors = append(errors, fmt.Sprintf("  - Stack '%s': compose_file must be a bare file name, got '%s'", name, override.ComposeFile))
		}
	}

	if override.ComposeCommand != "" {
		parts, err := cmdutil.ParseCommandString(override.ComposeCommand)
		if err != nil {
			errors = append(errors, fmt.Sprintf("  - Stack '%s': compose_command: %v", name, err))
		} else if !security.DefaultAllowedCommands[parts[0]] {
			errors = append(errors, fmt.Sprintf("  - Stack '%s': compose_command '%s' is not an allowed command", name, parts[0]))
		}
	}

	for _, tag := range override.ExtraTags {
		if err := security.ValidateTag(tag); err != nil {
			errors = append(errors, fmt.Sprintf("  - Stack '%s': extra tag '%s': %v", name, tag, err))
		}
	}

	return errors
}
