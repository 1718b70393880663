// internal/collection/service.go
package collection

import (
	"context"

	"github.com/google/uuid"

	"pocabinder/internal/catalog"
)

// Service manages each user's personal photocards.
type Service interface {
	List(ctx context.Context, userID string, f Filter) ([]*Photocard, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*Photocard, error)
	// GetMany returns the user's cards among ids, keyed by id. Unknown or
	// foreign ids are omitted.
	GetMany(ctx context.Context, userID string, ids []uuid.UUID) (map[uuid.UUID]*Photocard, error)
	// Create stores a manual, unlinked photocard.
	Create(ctx context.Context, userID string, in NewPhotocard) (*Photocard, error)
	// SubmitToCatalog resolves in into the catalog without touching the
	// user's collection.
	SubmitToCatalog(ctx context.Context, userID string, in NewPhotocard) (*catalog.Photocard, error)
	AddFromCatalog(ctx context.Context, userID string, catalogID uuid.UUID) (*Photocard, error)
	Update(ctx context.Context, userID string, id uuid.UUID, changes Changes) (*Photocard, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	Stats(ctx context.Context, userID string) (*Stats, error)
}
