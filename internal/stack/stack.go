// Package stack discovers and tracks deployable compose stacks.
//
// The allow-list of services is derived from the filesystem: every immediate
// subdirectory of the stacks root that contains a compose file is a
// deployable stack. Per-stack settings (image name, compose file, compose
// command) can be adjusted through the optional overrides file.
package stack

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"composehook/internal/config"
	"composehook/internal/security"
	"composehook/pkg/cmdutil"
	"composehook/pkg/fileutil"
)

// DefaultComposeCommand is the compose invocation used when no override is
// configured for a stack.
var DefaultComposeCommand = []string{"docker", "compose"}

// Stack represents a single deployable compose stack.
type Stack struct {
	// Name is the service name, equal to the directory name.
	Name string

	// Dir is the absolute path of the stack directory.
	Dir string

	// ComposeFile is the absolute path of the stack's compose file.
	ComposeFile string

	// Image is the image reference without a tag.
	Image string

	// ComposeCommand is the compose invocation, e.g. ["docker", "compose"].
	ComposeCommand []string

	// ExtraTags are tags allowed for this stack beyond the global list.
	ExtraTags []string
}

// ImageRef returns the full image reference for the given tag.
func (s *Stack) ImageRef(tag string) string {
	return s.Image + ":" + tag
}

// TagAllowed reports whether tag is in the stack's extra tag list.
func (s *Stack) TagAllowed(tag string) bool {
	for _, t := range s.ExtraTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Scan lists the stacks root and builds a Stack for every subdirectory that
// contains a compose file. Hidden directories and directories with names the
// sanitizer rejects are skipped, not errors: the scan reflects whatever is
// deployable right now.
func Scan(root, registry string, overrides *config.Overrides) ([]*Stack, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read stacks directory: %w", err)
	}

	if overrides == nil {
		overrides = &config.Overrides{Stacks: map[string]config.StackOverride{}}
	}

	var stacks []*Stack
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if err := security.ValidateServiceName(name); err != nil {
			continue
		}

		dir := filepath.Join(root, name)

		// Reject directories that are symlinks escaping the root
		cleanDir, err := security.SanitizePathWithinRoot(root, dir)
		if err != nil {
			continue
		}

		override := overrides.Stacks[name]

		composeFile := ""
		if override.ComposeFile != "" {
			candidate := filepath.Join(dir, override.ComposeFile)
			if fileutil.FileExists(candidate) {
				composeFile = candidate
			}
		} else {
			composeFile = fileutil.FindComposeFile(dir)
		}
		if composeFile == "" {
			continue
		}

		stack := &Stack{
			Name:           name,
			Dir:            cleanDir,
			ComposeFile:    composeFile,
			Image:          imageFor(name, registry, override),
			ComposeCommand: composeCommandFor(override),
			ExtraTags:      override.ExtraTags,
		}
		stacks = append(stacks, stack)
	}

	return stacks, nil
}

func imageFor(name, registry string, override config.StackOverride) string {
	if override.Image != "" {
		return override.Image
	}
	if registry != "" {
		return registry + "/" + strings.ToLower(name)
	}
	return strings.ToLower(name)
}

func composeCommandFor(override config.StackOverride) []string {
	if override.ComposeCommand == "" {
		return DefaultComposeCommand
	}
	parts, err := cmdutil.ParseCommandString(override.ComposeCommand)
	if err != nil {
		// Overrides are validated at load time; an unparseable command here
		// means the override was constructed in code, fall back to default.
		return DefaultComposeCommand
	}
	return parts
}
