package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory slices.
// Intended for demos and testing, no SQLite required.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []EditEntry
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) WriteEntries(_ context.Context, entries []EditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *MemoryStore) QueryByEntity(_ context.Context, entityID string, opts QueryOptions) ([]EditEntry, string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []EditEntry
	for _, e := range s.entries {
		if e.EntityID != entityID {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.OccurredAt.After(*opts.Until) {
			continue
		}
		if len(opts.Kinds) > 0 && !contains(opts.Kinds, e.Kind) {
			continue
		}
		if opts.Cursor != "" {
			cursorTime, err := time.Parse(time.RFC3339Nano, opts.Cursor)
			if err == nil && !e.OccurredAt.Before(cursorTime) {
				continue
			}
		}
		matched = append(matched, e)
	}

	// Newest first.
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	totalCount := len(matched)
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var nextCursor string
	if len(matched) > limit {
		matched = matched[:limit]
		nextCursor = matched[len(matched)-1].OccurredAt.Format(time.RFC3339Nano)
	}

	return matched, nextCursor, totalCount, nil
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
