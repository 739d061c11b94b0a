package deploy

import (
	"fmt"
	"testing"
	"time"
)

func TestStatusStore_AddAndLatest(t *testing.T) {
	store := NewStatusStore(5)

	if _, ok := store.Latest("webapp"); ok {
		t.Error("Expected no record for unknown stack")
	}

	stored := store.Add(Record{
		Stack:     "webapp",
		Image:     "webapp",
		Tag:       "stable",
		Status:    "success",
		StartedAt: time.Now(),
	})

	if stored.ID == "" {
		t.Error("Expected Add to assign an ID")
	}

	latest, ok := store.Latest("webapp")
	if !ok {
		t.Fatal("Expected a latest record")
	}
	if latest.ID != stored.ID {
		t.Errorf("Expected latest to match stored record")
	}
}

func TestStatusStore_Eviction(t *testing.T) {
	store := NewStatusStore(3)

	for i := 0; i < 5; i++ {
		store.Add(Record{Stack: "webapp", Tag: fmt.Sprintf("v%d", i), Status: "success"})
	}

	recent := store.Recent("webapp")
	if len(recent) != 3 {
		t.Fatalf("Expected 3 records after eviction, got %d", len(recent))
	}

	// Newest first
	if recent[0].Tag != "v4" || recent[2].Tag != "v2" {
		t.Errorf("Unexpected record order: %v", recent)
	}
}

func TestStatusStore_LatestAll(t *testing.T) {
	store := NewStatusStore(0) // zero limit falls back to the default

	store.Add(Record{Stack: "webapp", Status: "success"})
	store.Add(Record{Stack: "webapp", Status: "failed"})
	store.Add(Record{Stack: "api", Status: "success"})

	all := store.LatestAll()
	if len(all) != 2 {
		t.Fatalf("Expected 2 stacks, got %d", len(all))
	}
	if all["webapp"].Status != "failed" {
		t.Errorf("Expected latest webapp record to be the failed one, got %v", all["webapp"])
	}
}
