// internal/binder/service.go
package binder

import (
	"context"

	"github.com/google/uuid"
)

// Service manages binders and their pages, slots and decorations. Every
// call is scoped to the requesting user.
type Service interface {
	List(ctx context.Context, userID string) ([]*Binder, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*Binder, error)
	// Create builds a binder with a cover, a pockets page and one
	// four-slot page.
	Create(ctx context.Context, userID, name string) (*Binder, error)
	Update(ctx context.Context, userID string, id uuid.UUID, changes Changes) (*Binder, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error

	AddPage(ctx context.Context, userID string, binderID uuid.UUID) (*Page, error)
	UpdatePage(ctx context.Context, userID string, pageID uuid.UUID, changes PageChanges) (*Page, error)

	// AssignSlot puts photocardID into the slot, removing it from any other
	// slot first. A nil photocardID empties the slot.
	AssignSlot(ctx context.Context, userID string, slotID uuid.UUID, photocardID *uuid.UUID) (*Slot, error)

	ListDecorations(ctx context.Context, userID string, pageID uuid.UUID) ([]*Decoration, error)
	CreateDecoration(ctx context.Context, userID string, pageID uuid.UUID, in NewDecoration) (*Decoration, error)
	UpdateDecoration(ctx context.Context, userID string, id uuid.UUID, changes DecorationChanges) (*Decoration, error)
	DeleteDecoration(ctx context.Context, userID string, id uuid.UUID) error
}
