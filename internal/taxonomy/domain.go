// internal/taxonomy/domain.go
package taxonomy

import (
	"github.com/google/uuid"

	"pocabinder/internal/store"
)

// Group is an artist group. Slug is unique across all groups.
type Group struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Slug      string     `json:"slug" db:"slug"`
	Name      string     `json:"name" db:"name"`
	ImageURL  *string    `json:"imageUrl" db:"image_url"`
	AddedBy   string     `json:"addedBy" db:"added_by"`
	CreatedAt store.Time `json:"createdAt" db:"created_at"`
	UpdatedAt store.Time `json:"updatedAt" db:"updated_at"`
	Members   []*Member  `json:"members" db:"-"`
}

// Member belongs to exactly one group; Slug is unique within it.
type Member struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	GroupID   uuid.UUID  `json:"groupId" db:"group_id"`
	Slug      string     `json:"slug" db:"slug"`
	Name      string     `json:"name" db:"name"`
	ImageURL  *string    `json:"imageUrl" db:"image_url"`
	CreatedAt store.Time `json:"createdAt" db:"created_at"`
	UpdatedAt store.Time `json:"updatedAt" db:"updated_at"`
}
