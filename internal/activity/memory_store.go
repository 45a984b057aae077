package activity

import (
	"context"
	"slices"
	"sort"
	"sync"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// MemoryStore implements Store using in-memory slices.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	seen    map[string]bool
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: map[string]bool{}}
}

// WriteEntries appends entries. An entry already written for the same event
// and record is skipped.
func (s *MemoryStore) WriteEntries(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		key := e.EventID + "/" + e.Entity + "/" + e.RecordID
		if s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *MemoryStore) QueryByEntity(_ context.Context, entity, recordID string, opts QueryOptions) ([]Entry, string, error) {
	s.mu.RLock()
	var matched []Entry
	for _, e := range s.entries {
		if e.Entity != entity || e.RecordID != recordID {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if len(opts.Types) > 0 && !slices.Contains(opts.Types, e.EventType) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	// Event ids are ULIDs, so descending id order is newest first.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].EventID > matched[j].EventID
	})

	if opts.Cursor != "" {
		i := sort.Search(len(matched), func(i int) bool { return matched[i].EventID < opts.Cursor })
		matched = matched[i:]
	}

	limit := opts.Limit
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	var next string
	if len(matched) > limit {
		matched = matched[:limit]
		next = matched[len(matched)-1].EventID
	}
	return matched, next, nil
}
