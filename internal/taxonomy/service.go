// internal/taxonomy/service.go
package taxonomy

import (
	"context"

	"github.com/google/uuid"
)

type Service interface {
	ListGroups(ctx context.Context) ([]*Group, error)
	GetGroup(ctx context.Context, id uuid.UUID) (*Group, error)
	// CreateGroup returns the existing group when one with the same slug is
	// already registered. created reports whether a row was inserted.
	CreateGroup(ctx context.Context, userID, name, imageURL string) (group *Group, created bool, err error)
	AddMember(ctx context.Context, groupID uuid.UUID, name, imageURL string) (member *Member, created bool, err error)
}
