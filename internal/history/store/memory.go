package store

import (
	"context"
	"sort"
	"sync"

	"conectasat/internal/history/models"
)

// InMemory is a map-backed Store for tests and development runs without a
// database.
type InMemory struct {
	mu      sync.RWMutex
	entries []*models.Entry
}

// NewInMemory constructs an empty in-memory history store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Create(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.entries = append(s.entries, &copied)
	return nil
}

func (s *InMemory) ListByUser(_ context.Context, userID int64, skip, limit int) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Entry, 0)
	for _, e := range s.entries {
		if e.UserID == userID {
			matched = append(matched, e)
		}
	}
	sortNewestFirst(matched)
	return paginate(matched, skip, limit), nil
}

func (s *InMemory) ListByUUID(_ context.Context, cfdiUUID string) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Entry, 0)
	for _, e := range s.entries {
		if e.CFDIUUID == cfdiUUID {
			matched = append(matched, e)
		}
	}
	sortNewestFirst(matched)
	return matched, nil
}

func (s *InMemory) CountByUser(_ context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.entries {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

func sortNewestFirst(entries []*models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

func paginate(entries []*models.Entry, skip, limit int) []*models.Entry {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(entries) {
		return []*models.Entry{}
	}
	entries = entries[skip:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}
