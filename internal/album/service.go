// internal/album/service.go
package album

import (
	"context"

	"github.com/google/uuid"
)

type Service interface {
	// List returns albums in name order with their versions. A nil groupID
	// lists every album.
	List(ctx context.Context, groupID *uuid.UUID) ([]*Album, error)
	Get(ctx context.Context, id uuid.UUID) (*Album, error)
	Create(ctx context.Context, userID string, in NewAlbum) (album *Album, created bool, err error)
	Update(ctx context.Context, id uuid.UUID, changes Changes) (*Album, error)
	Delete(ctx context.Context, id uuid.UUID) error

	ListVersions(ctx context.Context, albumID uuid.UUID) ([]*Version, error)
	CreateVersion(ctx context.Context, albumID uuid.UUID, in NewVersion) (version *Version, created bool, err error)
	UpdateVersion(ctx context.Context, id uuid.UUID, changes VersionChanges) (*Version, error)
	DeleteVersion(ctx context.Context, id uuid.UUID) error

	ListCollection(ctx context.Context, userID string) ([]*CollectionItem, error)
	AddToCollection(ctx context.Context, userID string, albumID uuid.UUID, versionID *uuid.UUID, notes string) (*CollectionItem, error)
	UpdateCollectionItem(ctx context.Context, userID string, id uuid.UUID, changes CollectionChanges) (*CollectionItem, error)
	RemoveFromCollection(ctx context.Context, userID string, id uuid.UUID) error
}
