// internal/wishlist/implementation.go
package wishlist

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"pocabinder/internal/apperr"
	"pocabinder/internal/catalog"
	"pocabinder/internal/slug"
	"pocabinder/internal/store"
)

const itemColumns = `id, user_id, catalog_id, group_slug, group_name, album_slug, album_name,
	member_slug, member_name, image_url, notes, priority, created_at, updated_at`

type service struct {
	db      *sqlx.DB
	catalog catalog.Service
	log     *zap.Logger
}

func NewService(db *sqlx.DB, catalogService catalog.Service, log *zap.Logger) Service {
	return &service{db: db, catalog: catalogService, log: log.Named("wishlist")}
}

func (s *service) List(ctx context.Context, userID string) ([]*Item, error) {
	items := []*Item{}
	err := s.db.SelectContext(ctx, &items, s.db.Rebind(`
		SELECT `+itemColumns+`
		FROM wishlist_items
		WHERE user_id = ?
		ORDER BY priority DESC, created_at DESC, id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist items: %w", err)
	}
	return items, nil
}

func (s *service) Create(ctx context.Context, userID string, in NewItem) (*Item, error) {
	if in.Priority < MinPriority || in.Priority > MaxPriority {
		return nil, invalidPriority()
	}

	item := &Item{
		ID:       uuid.New(),
		UserID:   userID,
		Notes:    nonEmpty(in.Notes),
		Priority: in.Priority,
	}

	switch {
	case in.CatalogID != nil:
		entry, err := s.catalog.Get(ctx, *in.CatalogID)
		if err != nil {
			return nil, err
		}
		link(item, entry)

	case in.AddToCatalog:
		if strings.TrimSpace(in.AlbumName) == "" {
			return nil, apperr.ValidationWithDetails("validation failed", map[string]string{
				"albumName": "is required to add to the catalog",
			})
		}
		entry, _, err := s.catalog.ResolveOrCreate(ctx, catalog.NewEntry{
			GroupName:  in.GroupName,
			AlbumName:  in.AlbumName,
			MemberName: in.MemberName,
			ImageURL:   in.ImageURL,
			CreatorID:  userID,
		})
		if err != nil {
			return nil, err
		}
		link(item, entry)

	default:
		var err error
		if item.GroupName, item.GroupSlug, err = slug.Derive("groupName", in.GroupName); err != nil {
			return nil, err
		}
		if item.MemberName, item.MemberSlug, err = slug.Derive("memberName", in.MemberName); err != nil {
			return nil, err
		}
		if strings.TrimSpace(in.AlbumName) != "" {
			name, key, err := slug.Derive("albumName", in.AlbumName)
			if err != nil {
				return nil, err
			}
			item.AlbumName, item.AlbumSlug = &name, key
		}
		item.ImageURL = nonEmpty(in.ImageURL)
	}

	item.CreatedAt = store.Now()
	item.UpdatedAt = item.CreatedAt

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO wishlist_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), item.ID, item.UserID, item.CatalogID, item.GroupSlug, item.GroupName, item.AlbumSlug, item.AlbumName,
		item.MemberSlug, item.MemberName, item.ImageURL, item.Notes, item.Priority, item.CreatedAt, item.UpdatedAt)
	if store.IsForeignKeyViolation(err) {
		return nil, apperr.NotFound("catalog entry not found")
	}
	if err != nil {
		return nil, fmt.Errorf("insert wishlist item: %w", err)
	}

	s.log.Debug("wishlist item created",
		zap.String("user_id", userID),
		zap.String("item_id", item.ID.String()),
		zap.Bool("linked", item.CatalogID != nil),
	)
	return item, nil
}

func (s *service) Update(ctx context.Context, userID string, id uuid.UUID, changes Changes) (*Item, error) {
	item, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if changes.Notes != nil {
		item.Notes = nonEmpty(*changes.Notes)
	}
	if changes.Priority != nil {
		if *changes.Priority < MinPriority || *changes.Priority > MaxPriority {
			return nil, invalidPriority()
		}
		item.Priority = *changes.Priority
	}
	item.UpdatedAt = store.Now()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE wishlist_items SET notes = ?, priority = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`), item.Notes, item.Priority, item.UpdatedAt, id, userID)
	if err != nil {
		return nil, fmt.Errorf("update wishlist item: %w", err)
	}
	return item, nil
}

func (s *service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM wishlist_items WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("wishlist item not found")
	}
	return nil
}

func (s *service) get(ctx context.Context, userID string, id uuid.UUID) (*Item, error) {
	item := &Item{}
	err := s.db.GetContext(ctx, item, s.db.Rebind(`SELECT `+itemColumns+` FROM wishlist_items WHERE id = ? AND user_id = ?`), id, userID)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("wishlist item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get wishlist item: %w", err)
	}
	return item, nil
}

func link(item *Item, entry *catalog.Photocard) {
	id := entry.ID
	albumName := entry.AlbumName
	imageURL := entry.ImageURL
	item.CatalogID = &id
	item.GroupSlug, item.GroupName = entry.GroupSlug, entry.GroupName
	item.AlbumSlug, item.AlbumName = entry.AlbumSlug, &albumName
	item.MemberSlug, item.MemberName = entry.MemberSlug, entry.MemberName
	item.ImageURL = &imageURL
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func invalidPriority() error {
	return apperr.ValidationWithDetails("validation failed", map[string]string{
		"priority": fmt.Sprintf("must be between %d and %d", MinPriority, MaxPriority),
	})
}
