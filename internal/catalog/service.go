// internal/catalog/service.go
package catalog

import (
	"context"

	"github.com/google/uuid"

	"pocabinder/internal/eventstore"
)

// Service defines the interface for the shared photocard catalog.
type Service interface {
	// ResolveOrCreate finds the entry whose identity matches in, or creates
	// it. created reports whether this call inserted the row.
	ResolveOrCreate(ctx context.Context, in NewEntry) (entry *Photocard, created bool, err error)
	Get(ctx context.Context, id uuid.UUID) (*Photocard, error)
	List(ctx context.Context, f Filter) ([]*Photocard, error)
	// UpdateEntry applies changes as the entry's creator and rewrites every
	// personal copy linked to it, in one transaction.
	UpdateEntry(ctx context.Context, id uuid.UUID, changes Changes, requesterID string) (*Photocard, error)
	// DeleteEntry detaches every linked copy and wishlist item, then deletes
	// the entry, in one transaction.
	DeleteEntry(ctx context.Context, id uuid.UUID, requesterID string) error
	History(ctx context.Context, id uuid.UUID) ([]eventstore.Event, error)
	Activity(ctx context.Context, afterID int64, limit int) ([]eventstore.Event, error)
}
