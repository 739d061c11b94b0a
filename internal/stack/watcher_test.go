package stack

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_RefreshesOnCreate(t *testing.T) {
	root := t.TempDir()
	makeStackDir(t, root, "webapp", "compose.yaml")

	stacks, err := Scan(root, "", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	registry := NewRegistry(stacks)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rescan := func() ([]*Stack, error) { return Scan(root, "", nil) }

	watcher, err := NewWatcher(root, registry, rescan, logger)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher.Start(ctx)

	// Stage the new stack outside the watched root, then rename it in so
	// the create event fires with the compose file already present
	staging := t.TempDir()
	src := makeStackDir(t, staging, "api", "compose.yaml")
	if err := os.Rename(src, filepath.Join(root, "api")); err != nil {
		t.Fatalf("Failed to move stack into root: %v", err)
	}

	// The watcher refreshes asynchronously; poll for the new entry
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := registry.Get("api"); err == nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Error("Expected registry to pick up new stack within 5s")
}

func TestWatcher_MissingRoot(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := NewRegistry(nil)

	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope"), registry, nil, logger)
	if err == nil {
		t.Error("Expected error for missing root")
	}
}
