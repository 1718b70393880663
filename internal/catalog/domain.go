// internal/catalog/domain.go
package catalog

import (
	"encoding/json"

	"github.com/google/uuid"

	"pocabinder/internal/store"
)

// Rarity classifies how hard a photocard is to obtain.
type Rarity string

const (
	RarityCommon  Rarity = "common"
	RarityLimited Rarity = "limited"
	RarityPOB     Rarity = "pob"
	RaritySpecial Rarity = "special"
)

func (r Rarity) Valid() bool {
	switch r {
	case RarityCommon, RarityLimited, RarityPOB, RaritySpecial:
		return true
	}
	return false
}

// PlaceholderImageURL is stored when an entry is created without an image.
const PlaceholderImageURL = "/placeholder-card.png"

const aggregateType = "catalog_entry"

// Photocard is the canonical, shared record of one photocard design,
// identified by (GroupSlug, AlbumSlug, MemberSlug, Version).
type Photocard struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	GroupSlug  string     `json:"groupSlug" db:"group_slug"`
	GroupName  string     `json:"groupName" db:"group_name"`
	AlbumSlug  string     `json:"albumSlug" db:"album_slug"`
	AlbumName  string     `json:"albumName" db:"album_name"`
	Version    *string    `json:"version" db:"version"`
	MemberSlug string     `json:"memberSlug" db:"member_slug"`
	MemberName string     `json:"memberName" db:"member_name"`
	ImageURL   string     `json:"imageUrl" db:"image_url"`
	Rarity     Rarity     `json:"rarity" db:"rarity"`
	AddedBy    string     `json:"addedBy" db:"added_by"`
	Revision   int        `json:"revision" db:"revision"`
	CreatedAt  store.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  store.Time `json:"updatedAt" db:"updated_at"`
}

// NewEntry is the free-text input to ResolveOrCreate.
type NewEntry struct {
	GroupName  string
	AlbumName  string
	MemberName string
	// Version is compared exactly: nil, "" and "Standard" are three identities.
	Version   *string
	ImageURL  string
	Rarity    Rarity
	CreatorID string
}

// Changes lists the fields UpdateEntry should overwrite. Nil fields are left alone.
type Changes struct {
	GroupName  *string
	AlbumName  *string
	MemberName *string
	Version    Optional[string]
	ImageURL   *string
	Rarity     *Rarity
}

func (c Changes) empty() bool {
	return c.GroupName == nil && c.AlbumName == nil && c.MemberName == nil &&
		!c.Version.Set && c.ImageURL == nil && c.Rarity == nil
}

// Filter narrows List. Slugs match exactly; Search is a case-insensitive
// substring match on the group, album and member names.
type Filter struct {
	GroupSlug  string
	AlbumSlug  string
	MemberSlug string
	Search     string
	Limit      int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

// Optional distinguishes a JSON field that is absent from one that is null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns an Optional that is set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Audit events appended to the entry's log.
const (
	EventEntryAdded   = "CatalogEntryAdded"
	EventEntryUpdated = "CatalogEntryUpdated"
	EventEntryDeleted = "CatalogEntryDeleted"
)

type EntryUpdatedEvent struct {
	Before           Photocard `json:"before"`
	After            Photocard `json:"after"`
	PropagatedCopies int64     `json:"propagatedCopies"`
}

type EntryDeletedEvent struct {
	Entry                 Photocard `json:"entry"`
	DetachedCopies        int64     `json:"detachedCopies"`
	DetachedWishlistItems int64     `json:"detachedWishlistItems"`
}
