package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Template names
const (
	SystemdService = "systemd-service"
	SampleConfig   = "sample-config"
)

// TemplateData holds variables for template rendering.
type TemplateData map[string]string

// builtin holds the default template content used when no template file is
// found on disk. Operators can override any template by dropping a file into
// one of the search paths.
var builtin = map[string]string{
	SystemdService: `[Unit]
Description=composehook webhook server
After=network.target docker.service
Wants=docker.service

[Service]
Type=simple
User={{USER}}
Group={{GROUP}}
WorkingDirectory={{WORKING_DIR}}
ExecStart={{BINARY}} serve
Environment=COMPOSEHOOK_STACKS_DIR={{STACKS_DIR}}
Environment=COMPOSEHOOK_LOG_FILE={{LOG_FILE}}
EnvironmentFile=-/etc/composehook/composehook.env
Restart=on-failure
RestartSec=5
NoNewPrivileges=true

[Install]
WantedBy=multi-user.target
`,
	SampleConfig: `# composehook per-stack overrides.
# Only needed when a stack's image or compose invocation differs from the
# defaults derived from the directory name.
stacks:
  # myapp:
  #   image: registry.example.com/team/myapp
  #   compose_file: docker-compose.yml
  #   compose_command: docker-compose
  #   extra_tags:
  #     - canary
`,
}

// GetTemplatePaths returns the search paths for templates
func GetTemplatePaths(templateName string) []string {
	filename := templateName + ".template"
	return []string{
		filepath.Join(".", "templates", filename),
		filepath.Join(".", "config", "templates", filename),
		filepath.Join("/etc", "composehook", "templates", filename),
	}
}

// GetTemplate returns the raw template content by name.
// Templates are loaded from the filesystem in the following order:
// 1. ./templates/<name>.template
// 2. ./config/templates/<name>.template
// 3. /etc/composehook/templates/<name>.template
// If no file is found, the built-in default is returned.
func GetTemplate(name string) (string, error) {
	if !ValidateTemplate(name) {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	for _, path := range GetTemplatePaths(name) {
		if content, err := os.ReadFile(path); err == nil {
			return string(content), nil
		}
	}

	return builtin[name], nil
}

// Render renders a template with the given data.
// Uses {{PLACEHOLDER}} syntax for variable substitution.
func Render(templateName string, data TemplateData) (string, error) {
	tmplContent, err := GetTemplate(templateName)
	if err != nil {
		return "", err
	}

	rendered := tmplContent
	for key, value := range data {
		placeholder := fmt.Sprintf("{{%s}}", key)
		rendered = strings.ReplaceAll(rendered, placeholder, value)
	}

	return rendered, nil
}

// RenderSystemdService renders the systemd unit template.
func RenderSystemdService(user, group, workingDir, binary, stacksDir, logFile string) (string, error) {
	return Render(SystemdService, TemplateData{
		"USER":        user,
		"GROUP":       group,
		"WORKING_DIR": workingDir,
		"BINARY":      binary,
		"STACKS_DIR":  stacksDir,
		"LOG_FILE":    logFile,
	})
}

// RenderSampleConfig renders the sample overrides config.
func RenderSampleConfig() (string, error) {
	return Render(SampleConfig, TemplateData{})
}

// ListTemplates returns a list of all available template names.
func ListTemplates() []string {
	return []string{
		SystemdService,
		SampleConfig,
	}
}

// ValidateTemplate checks if a template name is valid.
func ValidateTemplate(name string) bool {
	_, ok := builtin[name]
	return ok
}
