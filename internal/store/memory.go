package store

import (
	"context"
	"sync"

	"github.com/ppiankov/clientscore/internal/model"
)

// MemoryStore keeps records in memory in insertion order
type MemoryStore struct {
	mu      sync.RWMutex
	order   []int64
	records map[int64]model.ClientRecord
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int64]model.ClientRecord),
	}
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*model.ClientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *MemoryStore) FindAll(ctx context.Context, page, size int) ([]model.ClientRecord, error) {
	if err := checkPage(page, size); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if page > len(s.order)/size {
		return []model.ClientRecord{}, nil
	}
	start := page * size
	if start >= len(s.order) {
		return []model.ClientRecord{}, nil
	}
	end := start + size
	if end > len(s.order) {
		end = len(s.order)
	}

	out := make([]model.ClientRecord, 0, end-start)
	for _, id := range s.order[start:end] {
		out = append(out, s.records[id])
	}
	return out, nil
}

func (s *MemoryStore) SaveAll(ctx context.Context, records []model.ClientRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if _, exists := s.records[r.ID]; !exists {
			s.order = append(s.order, r.ID)
		}
		s.records[r.ID] = r
	}
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.order)), nil
}
