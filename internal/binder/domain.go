// internal/binder/domain.go
package binder

import (
	"github.com/google/uuid"

	"pocabinder/internal/collection"
	"pocabinder/internal/store"
)

const (
	DefaultName           = "My Binder"
	DefaultPrimaryColor   = "#FFB6C1"
	DefaultSecondaryColor = "#E6E6FA"
	DefaultAccentColor    = "#FFD700"

	SlotsPerPage = 4
)

type PageType string

const (
	PageCover   PageType = "cover"
	PagePockets PageType = "pockets"
	PageNormal  PageType = "normal"
)

func (t PageType) Valid() bool {
	switch t {
	case PageCover, PagePockets, PageNormal:
		return true
	}
	return false
}

const BackgroundColor = "color"

type Binder struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         string     `json:"userId" db:"user_id"`
	Name           string     `json:"name" db:"name"`
	IsPublic       bool       `json:"isPublic" db:"is_public"`
	Theme          *string    `json:"theme" db:"theme"`
	PrimaryColor   string     `json:"primaryColor" db:"primary_color"`
	SecondaryColor string     `json:"secondaryColor" db:"secondary_color"`
	AccentColor    string     `json:"accentColor" db:"accent_color"`
	CreatedAt      store.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      store.Time `json:"updatedAt" db:"updated_at"`
	Pages          []*Page    `json:"pages" db:"-"`
}

type Page struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	BinderID        uuid.UUID  `json:"binderId" db:"binder_id"`
	PageIndex       int        `json:"pageIndex" db:"page_index"`
	PageType        PageType   `json:"pageType" db:"page_type"`
	BackgroundType  *string    `json:"backgroundType" db:"background_type"`
	BackgroundValue *string    `json:"backgroundValue" db:"background_value"`
	CreatedAt       store.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       store.Time `json:"updatedAt" db:"updated_at"`
	Slots           []*Slot    `json:"slots" db:"-"`
}

// Slot holds at most one photocard; a photocard sits in at most one slot.
type Slot struct {
	ID          uuid.UUID             `json:"id" db:"id"`
	PageID      uuid.UUID             `json:"pageId" db:"page_id"`
	SlotIndex   int                   `json:"slotIndex" db:"slot_index"`
	PhotocardID *uuid.UUID            `json:"photocardId" db:"photocard_id"`
	CreatedAt   store.Time            `json:"createdAt" db:"created_at"`
	UpdatedAt   store.Time            `json:"updatedAt" db:"updated_at"`
	Photocard   *collection.Photocard `json:"photocard,omitempty" db:"-"`
}

// Decoration is a sticker, text or image placed on a page. PositionX and
// PositionY are percentages of the page and always lie in [0, 100].
type Decoration struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	PageID     uuid.UUID  `json:"pageId" db:"page_id"`
	Type       string     `json:"type" db:"type"`
	Content    string     `json:"content" db:"content"`
	PositionX  float64    `json:"positionX" db:"position_x"`
	PositionY  float64    `json:"positionY" db:"position_y"`
	Width      *float64   `json:"width" db:"width"`
	Height     *float64   `json:"height" db:"height"`
	Rotation   float64    `json:"rotation" db:"rotation"`
	ZIndex     int        `json:"zIndex" db:"z_index"`
	Shape      *string    `json:"shape" db:"shape"`
	FontSize   *float64   `json:"fontSize" db:"font_size"`
	FontColor  *string    `json:"fontColor" db:"font_color"`
	FontFamily *string    `json:"fontFamily" db:"font_family"`
	CreatedAt  store.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  store.Time `json:"updatedAt" db:"updated_at"`
}

// Changes lists binder fields to overwrite. Empty colour strings are ignored.
type Changes struct {
	Name           *string
	IsPublic       *bool
	Theme          *string
	PrimaryColor   *string
	SecondaryColor *string
	AccentColor    *string
}

type PageChanges struct {
	PageType        *PageType
	BackgroundType  *string
	BackgroundValue *string
}

type NewDecoration struct {
	Type       string
	Content    string
	PositionX  float64
	PositionY  float64
	Width      *float64
	Height     *float64
	Rotation   float64
	ZIndex     int
	Shape      *string
	FontSize   *float64
	FontColor  *string
	FontFamily *string
}

type DecorationChanges struct {
	Content    *string
	PositionX  *float64
	PositionY  *float64
	Width      *float64
	Height     *float64
	Rotation   *float64
	ZIndex     *int
	Shape      *string
	FontSize   *float64
	FontColor  *string
	FontFamily *string
}

func clampPercent(v float64) float64 {
	return min(max(v, 0), 100)
}
