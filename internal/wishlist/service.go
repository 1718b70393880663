// internal/wishlist/service.go
package wishlist

import (
	"context"

	"github.com/google/uuid"
)

type Service interface {
	// List returns the user's items, highest priority first, then newest.
	List(ctx context.Context, userID string) ([]*Item, error)
	Create(ctx context.Context, userID string, in NewItem) (*Item, error)
	Update(ctx context.Context, userID string, id uuid.UUID, changes Changes) (*Item, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}
