package store

import (
	"context"
	"time"

	"github.com/ppiankov/clientscore/internal/cache"
	"github.com/ppiankov/clientscore/internal/model"
)

// CachedStore serves FindByID from a record cache in front of another store
type CachedStore struct {
	Store
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedStore wraps next with c. A zero ttl uses the cache default.
func NewCachedStore(next Store, c cache.Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store: next,
		cache: c,
		ttl:   ttl,
	}
}

func (s *CachedStore) FindByID(ctx context.Context, id int64) (*model.ClientRecord, error) {
	if record, ok := s.cache.Get(id); ok {
		return record, nil
	}

	record, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(record, s.ttl)
	return record, nil
}

func (s *CachedStore) SaveAll(ctx context.Context, records []model.ClientRecord) error {
	if err := s.Store.SaveAll(ctx, records); err != nil {
		return err
	}
	for _, r := range records {
		s.cache.Delete(r.ID)
	}
	return nil
}
