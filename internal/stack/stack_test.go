package stack

import (
	"os"
	"path/filepath"
	"testing"

	"composehook/internal/config"
)

// makeStackDir creates a stack directory with a compose file under root.
func makeStackDir(t *testing.T, root, name, composeName string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create stack dir: %v", err)
	}
	if composeName != "" {
		if err := os.WriteFile(filepath.Join(dir, composeName), []byte("services: {}\n"), 0644); err != nil {
			t.Fatalf("Failed to create compose file: %v", err)
		}
	}
	return dir
}

func TestScan(t *testing.T) {
	root := t.TempDir()

	makeStackDir(t, root, "webapp", "docker-compose.yml")
	makeStackDir(t, root, "api", "compose.yaml")
	makeStackDir(t, root, "no-compose", "")      // dir without compose file, skipped
	makeStackDir(t, root, ".hidden", "compose.yaml") // hidden, skipped
	makeStackDir(t, root, "bad name", "compose.yaml") // invalid name, skipped

	// A plain file in the root is not a stack
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	stacks, err := Scan(root, "", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(stacks) != 2 {
		names := make([]string, 0, len(stacks))
		for _, s := range stacks {
			names = append(names, s.Name)
		}
		t.Fatalf("Expected 2 stacks, got %d: %v", len(stacks), names)
	}

	byName := map[string]*Stack{}
	for _, s := range stacks {
		byName[s.Name] = s
	}

	webapp, ok := byName["webapp"]
	if !ok {
		t.Fatal("Expected webapp stack")
	}
	if webapp.Image != "webapp" {
		t.Errorf("Expected image 'webapp', got %s", webapp.Image)
	}
	if filepath.Base(webapp.ComposeFile) != "docker-compose.yml" {
		t.Errorf("Unexpected compose file: %s", webapp.ComposeFile)
	}
	if len(webapp.ComposeCommand) != 2 || webapp.ComposeCommand[0] != "docker" {
		t.Errorf("Expected default compose command, got %v", webapp.ComposeCommand)
	}
}

func TestScan_RegistryPrefix(t *testing.T) {
	root := t.TempDir()
	makeStackDir(t, root, "WebApp", "compose.yaml")

	stacks, err := Scan(root, "registry.example.com/team", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(stacks) != 1 {
		t.Fatalf("Expected 1 stack, got %d", len(stacks))
	}

	// Image names are lowercased even when the directory isn't
	if stacks[0].Image != "registry.example.com/team/webapp" {
		t.Errorf("Unexpected image: %s", stacks[0].Image)
	}
}

func TestScan_Overrides(t *testing.T) {
	root := t.TempDir()
	dir := makeStackDir(t, root, "legacy", "stack.yml")

	// stack.yml is not a well-known compose name: without an override the
	// directory is skipped
	stacks, err := Scan(root, "", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(stacks) != 0 {
		t.Fatalf("Expected 0 stacks without override, got %d", len(stacks))
	}

	overrides := &config.Overrides{Stacks: map[string]config.StackOverride{
		"legacy": {
			Image:          "registry.example.com/legacy-app",
			ComposeFile:    "stack.yml",
			ComposeCommand: "docker-compose",
			ExtraTags:      []string{"canary"},
		},
	}}

	stacks, err = Scan(root, "ignored.example.com", overrides)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(stacks) != 1 {
		t.Fatalf("Expected 1 stack, got %d", len(stacks))
	}

	s := stacks[0]
	if s.Image != "registry.example.com/legacy-app" {
		t.Errorf("Expected override image, got %s", s.Image)
	}
	if s.ComposeFile != filepath.Join(dir, "stack.yml") {
		t.Errorf("Expected override compose file, got %s", s.ComposeFile)
	}
	if len(s.ComposeCommand) != 1 || s.ComposeCommand[0] != "docker-compose" {
		t.Errorf("Expected override compose command, got %v", s.ComposeCommand)
	}
	if !s.TagAllowed("canary") {
		t.Error("Expected canary tag allowed via override")
	}
	if s.TagAllowed("latest") {
		t.Error("Extra tags should not include latest")
	}
}

func TestScan_MissingRoot(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "nope"), "", nil); err == nil {
		t.Error("Expected error for missing root")
	}
}

func TestStack_ImageRef(t *testing.T) {
	s := &Stack{Image: "registry.example.com/team/app"}
	if got := s.ImageRef("stable"); got != "registry.example.com/team/app:stable" {
		t.Errorf("Unexpected image ref: %s", got)
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry([]*Stack{
		{Name: "webapp"},
		{Name: "api"},
	})

	if registry.Count() != 2 {
		t.Errorf("Expected count 2, got %d", registry.Count())
	}

	names := registry.List()
	if len(names) != 2 || names[0] != "api" || names[1] != "webapp" {
		t.Errorf("Expected sorted names [api webapp], got %v", names)
	}

	if _, err := registry.Get("webapp"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := registry.Get("missing"); err == nil {
		t.Error("Expected error for missing stack")
	}

	registry.Replace([]*Stack{{Name: "other"}})
	if registry.Count() != 1 {
		t.Errorf("Expected count 1 after replace, got %d", registry.Count())
	}
	if _, err := registry.Get("webapp"); err == nil {
		t.Error("Expected webapp to be gone after replace")
	}
}
