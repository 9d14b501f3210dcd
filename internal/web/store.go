package web

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkraev/freedom-calculator/internal/model"
)

// Run is one finished pipeline execution held for viewing and download.
type Run struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	Broker    string        `json:"broker"`
	Report    *model.Report `json:"report"`
}

// Store keeps runs in memory. Runs do not survive a restart; the UI is
// a workbench, not an archive.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*Run
	max  int
}

// NewStore returns a store that retains at most max runs, evicting the
// oldest when full.
func NewStore(max int) *Store {
	return &Store{runs: make(map[string]*Run), max: max}
}

// Add stores a finished report and returns its run.
func (s *Store) Add(broker string, report *model.Report) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Broker:    broker,
		Report:    report,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.runs) >= s.max {
		s.evictOldestLocked()
	}
	s.runs[run.ID] = run
	return run
}

// Get returns the run with the given id.
func (s *Store) Get(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

// List returns all runs, newest first.
func (s *Store) List() []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of stored runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

func (s *Store) evictOldestLocked() {
	var oldest *Run
	for _, run := range s.runs {
		if oldest == nil || run.CreatedAt.Before(oldest.CreatedAt) {
			oldest = run
		}
	}
	if oldest != nil {
		delete(s.runs, oldest.ID)
	}
}
