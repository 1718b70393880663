// internal/wishlist/domain.go
package wishlist

import (
	"github.com/google/uuid"

	"pocabinder/internal/store"
)

// Item is a photocard the user is looking for, optionally tied to a
// catalog entry.
type Item struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     string     `json:"userId" db:"user_id"`
	CatalogID  *uuid.UUID `json:"catalogId" db:"catalog_id"`
	GroupSlug  string     `json:"groupSlug" db:"group_slug"`
	GroupName  string     `json:"groupName" db:"group_name"`
	AlbumSlug  string     `json:"albumSlug" db:"album_slug"`
	AlbumName  *string    `json:"albumName" db:"album_name"`
	MemberSlug string     `json:"memberSlug" db:"member_slug"`
	MemberName string     `json:"memberName" db:"member_name"`
	ImageURL   *string    `json:"imageUrl" db:"image_url"`
	Notes      *string    `json:"notes" db:"notes"`
	Priority   int        `json:"priority" db:"priority"`
	CreatedAt  store.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  store.Time `json:"updatedAt" db:"updated_at"`
}

// NewItem describes a wish either by CatalogID or by free-text names.
type NewItem struct {
	CatalogID  *uuid.UUID
	GroupName  string
	AlbumName  string
	MemberName string
	ImageURL   string
	Notes      string
	Priority   int
	// AddToCatalog resolves the free-text names into the catalog and links
	// the item to the resulting entry.
	AddToCatalog bool
}

type Changes struct {
	Notes    *string
	Priority *int
}

const (
	MinPriority = 0
	MaxPriority = 10
)
