package deploy

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRecentLimit is the number of records kept per stack.
const DefaultRecentLimit = 10

// Record is one completed deployment attempt. Records live in memory only;
// the process keeps no persistent state beyond its log file.
type Record struct {
	ID              string    `json:"id"`
	Stack           string    `json:"stack"`
	Image           string    `json:"image"`
	Tag             string    `json:"tag"`
	Status          string    `json:"status"` // success, failed
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Error           string    `json:"error,omitempty"`
}

// StatusStore keeps the most recent deployment records per stack.
type StatusStore struct {
	mu     sync.RWMutex
	recent map[string][]Record
	limit  int
}

// NewStatusStore creates a store keeping up to limit records per stack.
func NewStatusStore(limit int) *StatusStore {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &StatusStore{
		recent: make(map[string][]Record),
		limit:  limit,
	}
}

// Add assigns an ID to the record and stores it, evicting the oldest record
// for the stack when the limit is reached. Returns the stored record.
func (s *StatusStore) Add(record Record) Record {
	record.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	records := append([]Record{record}, s.recent[record.Stack]...)
	if len(records) > s.limit {
		records = records[:s.limit]
	}
	s.recent[record.Stack] = records

	return record
}

// Latest returns the most recent record for a stack.
func (s *StatusStore) Latest(stackName string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.recent[stackName]
	if len(records) == 0 {
		return Record{}, false
	}
	return records[0], true
}

// Recent returns the stored records for a stack, newest first.
func (s *StatusStore) Recent(stackName string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.recent[stackName]
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// LatestAll returns the most recent record for every stack that has one.
func (s *StatusStore) LatestAll() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Record, len(s.recent))
	for name, records := range s.recent {
		if len(records) > 0 {
			out[name] = records[0]
		}
	}
	return out
}
