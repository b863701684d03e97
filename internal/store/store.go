package store

import (
	"context"
	"errors"

	"github.com/ppiankov/clientscore/internal/model"
)

var (
	// ErrNotFound is returned when no record exists for an id
	ErrNotFound = errors.New("client not found")

	// ErrInvalidPage is returned for a negative page index or non-positive page size
	ErrInvalidPage = errors.New("invalid page request")
)

// Store holds one record per client, keyed by numeric id
type Store interface {
	// FindByID returns the record for id or ErrNotFound
	FindByID(ctx context.Context, id int64) (*model.ClientRecord, error)

	// FindAll returns one page of records in the store's natural order
	FindAll(ctx context.Context, page, size int) ([]model.ClientRecord, error)

	// SaveAll writes all records in one batch, replacing records with the same id
	SaveAll(ctx context.Context, records []model.ClientRecord) error

	// Count returns the number of stored records
	Count(ctx context.Context) (int64, error)
}

func checkPage(page, size int) error {
	if page < 0 || size <= 0 {
		return ErrInvalidPage
	}
	return nil
}
