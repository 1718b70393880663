// internal/collection/domain.go
package collection

import (
	"github.com/google/uuid"

	"pocabinder/internal/catalog"
	"pocabinder/internal/store"
)

// Source records how a personal photocard entered the collection.
type Source string

const (
	SourceManual  Source = "manual"
	SourceCatalog Source = "catalog"
)

// Photocard is a user's own copy of a card. While CatalogID is set its
// descriptive fields mirror the catalog entry and change only through it.
type Photocard struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	UserID     string         `json:"userId" db:"user_id"`
	CatalogID  *uuid.UUID     `json:"catalogId" db:"catalog_id"`
	GroupSlug  string         `json:"groupSlug" db:"group_slug"`
	GroupName  string         `json:"groupName" db:"group_name"`
	AlbumSlug  string         `json:"albumSlug" db:"album_slug"`
	AlbumName  string         `json:"albumName" db:"album_name"`
	Version    *string        `json:"version" db:"version"`
	MemberSlug string         `json:"memberSlug" db:"member_slug"`
	MemberName string         `json:"memberName" db:"member_name"`
	ImageURL   string         `json:"imageUrl" db:"image_url"`
	Rarity     catalog.Rarity `json:"rarity" db:"rarity"`
	Source     Source         `json:"source" db:"source"`
	CreatedAt  store.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt  store.Time     `json:"updatedAt" db:"updated_at"`
}

// Linked reports whether the card mirrors a catalog entry.
func (p *Photocard) Linked() bool {
	return p.CatalogID != nil
}

type NewPhotocard struct {
	GroupName  string
	AlbumName  string
	MemberName string
	Version    *string
	ImageURL   string
	Rarity     catalog.Rarity
}

// Changes edits a personal photocard. AddToCatalog links an unlinked card to
// the catalog entry matching its (edited) identity, creating the entry if needed.
type Changes struct {
	catalog.Changes
	AddToCatalog bool
}

type Filter struct {
	GroupSlug  string
	AlbumSlug  string
	MemberSlug string
}

type GroupCount struct {
	GroupSlug string `json:"groupSlug" db:"group_slug"`
	GroupName string `json:"groupName" db:"group_name"`
	Count     int    `json:"count" db:"count"`
}

type Stats struct {
	TotalPhotocards int          `json:"totalPhotocards"`
	TotalWishlist   int          `json:"totalWishlist"`
	ByGroup         []GroupCount `json:"byGroup"`
}
