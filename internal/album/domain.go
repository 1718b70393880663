// internal/album/domain.go
package album

import (
	"time"

	"github.com/google/uuid"

	"pocabinder/internal/catalog"
	"pocabinder/internal/store"
)

// Album belongs to a group and is unique by slug within it.
type Album struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	GroupID     uuid.UUID   `json:"groupId" db:"group_id"`
	GroupSlug   string      `json:"groupSlug" db:"group_slug"`
	GroupName   string      `json:"groupName" db:"group_name"`
	Slug        string      `json:"slug" db:"slug"`
	Name        string      `json:"name" db:"name"`
	ImageURL    *string     `json:"imageUrl" db:"image_url"`
	ReleaseDate *store.Time `json:"releaseDate" db:"release_date"`
	AddedBy     string      `json:"addedBy" db:"added_by"`
	CreatedAt   store.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   store.Time  `json:"updatedAt" db:"updated_at"`
	Versions    []*Version  `json:"versions" db:"-"`
}

// Version is a physical edition of an album (e.g. "Jewel Case").
type Version struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	AlbumID   uuid.UUID  `json:"albumId" db:"album_id"`
	Slug      string     `json:"slug" db:"slug"`
	Name      string     `json:"name" db:"name"`
	ImageURL  *string    `json:"imageUrl" db:"image_url"`
	Color     *string    `json:"color" db:"color"`
	CreatedAt store.Time `json:"createdAt" db:"created_at"`
	UpdatedAt store.Time `json:"updatedAt" db:"updated_at"`
}

// CollectionItem records that a user owns an album, optionally a specific
// version of it. A user holds at most one item per (album, version).
type CollectionItem struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    string     `json:"userId" db:"user_id"`
	AlbumID   uuid.UUID  `json:"albumId" db:"album_id"`
	VersionID *uuid.UUID `json:"versionId" db:"version_id"`
	Notes     *string    `json:"notes" db:"notes"`
	CreatedAt store.Time `json:"createdAt" db:"created_at"`
	UpdatedAt store.Time `json:"updatedAt" db:"updated_at"`
	Album     *Album     `json:"album" db:"-"`
	Version   *Version   `json:"version" db:"-"`
}

type NewAlbum struct {
	GroupID     uuid.UUID
	Name        string
	ImageURL    string
	ReleaseDate *time.Time
}

type Changes struct {
	Name        *string
	ImageURL    *string
	ReleaseDate catalog.Optional[time.Time]
}

type NewVersion struct {
	Name     string
	ImageURL string
	Color    string
}

type VersionChanges struct {
	Name     *string
	ImageURL *string
	Color    *string
}

type CollectionChanges struct {
	VersionID catalog.Optional[uuid.UUID]
	Notes     *string
}

func versionKey(versionID *uuid.UUID) string {
	if versionID == nil {
		return store.VersionKey(nil)
	}
	id := versionID.String()
	return store.VersionKey(&id)
}
