package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Safe patterns for validation
	servicePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	tagPattern     = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{0,127}$`)
	imagePattern   = regexp.MustCompile(`^[a-z0-9]+(?:[._/-][a-z0-9]+)*(?::[0-9]+(?:/[a-z0-9._-]+)+)?$`)
)

// ValidateServiceName ensures a service name is safe for use in paths and
// image references. Service names come from the stacks directory listing and
// from request payloads.
func ValidateServiceName(name string) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("service name cannot start with '-' or '.'")
	}
	if !servicePattern.MatchString(name) {
		return fmt.Errorf("service name contains invalid characters (only a-z, A-Z, 0-9, _, - allowed)")
	}
	return nil
}

// ValidateTag ensures an image tag is safe for docker pull arguments.
// The pattern mirrors what container registries accept: up to 128 characters,
// starting with an alphanumeric or underscore.
func ValidateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag cannot be empty")
	}
	if strings.HasPrefix(tag, "-") {
		return fmt.Errorf("tag cannot start with '-'")
	}
	if !tagPattern.MatchString(tag) {
		return fmt.Errorf("tag contains invalid characters")
	}
	return nil
}

// ValidateImageName ensures an image reference (without tag) is safe to pass
// to docker pull. Prevents option injection and shell metacharacters through
// configured image overrides.
func ValidateImageName(image string) error {
	if image == "" {
		return fmt.Errorf("image name cannot be empty")
	}
	if strings.HasPrefix(image, "-") {
		return fmt.Errorf("image name cannot start with '-'")
	}
	if strings.Contains(image, ":") {
		// A colon is only valid in a registry host:port prefix, which the
		// pattern below accepts. Tags are appended separately.
		if !imagePattern.MatchString(image) {
			return fmt.Errorf("image name contains an invalid ':' (tags are not part of the image name)")
		}
		return nil
	}
	if !imagePattern.MatchString(image) {
		return fmt.Errorf("image name contains invalid characters")
	}
	return nil
}

// SanitizePathWithinRoot ensures targetPath resolves inside basePath.
// Used to confirm a stack directory discovered by the scanner (or configured
// as an override) has not escaped the stacks root through symlinks.
func SanitizePathWithinRoot(basePath, targetPath string) (string, error) {
	absBase, err := filepath.Abs(basePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve target path: %w", err)
	}

	cleanBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate base path symlinks: %w", err)
	}

	cleanTarget, err := filepath.EvalSymlinks(absTarget)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate target path symlinks: %w", err)
	}

	relPath, err := filepath.Rel(cleanBase, cleanTarget)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: target '%s' is outside base '%s'", cleanTarget, cleanBase)
	}

	return cleanTarget, nil
}

// SanitizePath ensures a path is absolute and doesn't contain traversal attempts.
func SanitizePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("path must be absolute: %s", path)
	}

	// Check for .. before cleaning (filepath.Clean removes them)
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("path contains traversal elements: %s", path)
	}

	return filepath.Clean(path), nil
}
