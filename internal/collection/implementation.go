// internal/collection/implementation.go
package collection

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

const photocardColumns = `id, user_id, catalog_id, group_slug, group_name, album_slug, album_name, version,
	member_slug, member_name, image_url, rarity, source, created_at, updated_at`

type service struct {
	db      *sqlx.DB
	catalog catalog.Service
	log     *zap.Logger
}

func NewService(db *sqlx.DB, catalogService catalog.Service, log *zap.Logger) Service {
	return &service{db: db, catalog: catalogService, log: log.Named("collection")}
}

func (s *service) List(ctx context.Context, userID string, f Filter) ([]*Photocard, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.GroupSlug != "" {
		where = append(where, "group_slug = ?")
		args = append(args, f.GroupSlug)
	}
	if f.AlbumSlug != "" {
		where = append(where, "album_slug = ?")
		args = append(args, f.AlbumSlug)
	}
	if f.MemberSlug != "" {
		where = append(where, "member_slug = ?")
		args = append(args, f.MemberSlug)
	}

	query := `SELECT ` + photocardColumns + ` FROM photocards WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY updated_at DESC, id`

	cards := []*Photocard{}
	if err := s.db.SelectContext(ctx, &cards, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list photocards: %w", err)
	}
	return cards, nil
}

func (s *service) Get(ctx context.Context, userID string, id uuid.UUID) (*Photocard, error) {
	return s.getCard(ctx, s.db, userID, id)
}

func (s *service) GetMany(ctx context.Context, userID string, ids []uuid.UUID) (map[uuid.UUID]*Photocard, error) {
	byID := make(map[uuid.UUID]*Photocard, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	query, args, err := sqlx.In(`SELECT `+photocardColumns+` FROM photocards WHERE user_id = ? AND id IN (?)`, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("build photocard query: %w", err)
	}
	var cards []*Photocard
	if err := s.db.SelectContext(ctx, &cards, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("get photocards: %w", err)
	}
	for _, c := range cards {
		byID[c.ID] = c
	}
	return byID, nil
}

func (s *service) Create(ctx context.Context, userID string, in NewPhotocard) (*Photocard, error) {
	card := &Photocard{
		ID:       uuid.New(),
		UserID:   userID,
		Version:  in.Version,
		ImageURL: strings.TrimSpace(in.ImageURL),
		Rarity:   in.Rarity,
		Source:   SourceManual,
	}
	var err error
	if card.GroupName, card.GroupSlug, err = slug.Derive("groupName", in.GroupName); err != nil {
		return nil, err
	}
	if card.AlbumName, card.AlbumSlug, err = slug.Derive("albumName", in.AlbumName); err != nil {
		return nil, err
	}
	if card.MemberName, card.MemberSlug, err = slug.Derive("memberName", in.MemberName); err != nil {
		return nil, err
	}
	if card.ImageURL == "" {
		card.ImageURL = catalog.PlaceholderImageURL
	}
	if card.Rarity == "" {
		card.Rarity = catalog.RarityCommon
	}
	if !card.Rarity.Valid() {
		return nil, invalidRarity()
	}
	card.CreatedAt = store.Now()
	card.UpdatedAt = card.CreatedAt

	if err := s.insertCard(ctx, s.db, card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *service) SubmitToCatalog(ctx context.Context, userID string, in NewPhotocard) (*catalog.Photocard, error) {
	entry, _, err := s.catalog.ResolveOrCreate(ctx, catalog.NewEntry{
		GroupName:  in.GroupName,
		AlbumName:  in.AlbumName,
		MemberName: in.MemberName,
		Version:    in.Version,
		ImageURL:   in.ImageURL,
		Rarity:     in.Rarity,
		CreatorID:  userID,
	})
	return entry, err
}

func (s *service) AddFromCatalog(ctx context.Context, userID string, catalogID uuid.UUID) (*Photocard, error) {
	entry, err := s.catalog.Get(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	var owned int
	err = s.db.GetContext(ctx, &owned, s.db.Rebind(`SELECT COUNT(*) FROM photocards WHERE user_id = ? AND catalog_id = ?`), userID, catalogID)
	if err != nil {
		return nil, fmt.Errorf("check owned copies: %w", err)
	}
	if owned > 0 {
		return nil, alreadyOwned()
	}

	card := &Photocard{ID: uuid.New(), UserID: userID, Source: SourceCatalog}
	mirror(card, entry)
	card.CreatedAt = store.Now()
	card.UpdatedAt = card.CreatedAt

	if err := s.insertCard(ctx, s.db, card); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, alreadyOwned()
		}
		return nil, err
	}

	s.log.Debug("photocard added from catalog",
		zap.String("user_id", userID),
		zap.String("catalog_id", catalogID.String()),
	)
	return card, nil
}

func (s *service) Update(ctx context.Context, userID string, id uuid.UUID, changes Changes) (*Photocard, error) {
	card, err := s.getCard(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}

	if card.Linked() {
		entry, err := s.catalog.Get(ctx, *card.CatalogID)
		if err != nil {
			return nil, err
		}
		if entry.AddedBy != userID {
			return nil, apperr.Forbidden("this photocard is linked to the shared catalog; only its creator can edit it")
		}
		// The creator edits the canonical entry, which rewrites this copy too.
		if _, err := s.catalog.UpdateEntry(ctx, entry.ID, changes.Changes, userID); err != nil {
			return nil, err
		}
		return s.getCard(ctx, s.db, userID, id)
	}

	if err := applyChanges(card, changes.Changes); err != nil {
		return nil, err
	}

	if changes.AddToCatalog {
		entry, _, err := s.catalog.ResolveOrCreate(ctx, catalog.NewEntry{
			GroupName:  card.GroupName,
			AlbumName:  card.AlbumName,
			MemberName: card.MemberName,
			Version:    card.Version,
			ImageURL:   card.ImageURL,
			Rarity:     card.Rarity,
			CreatorID:  userID,
		})
		if err != nil {
			return nil, err
		}
		mirror(card, entry)
	}
	card.UpdatedAt = store.Now()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE photocards
		SET catalog_id = ?, group_slug = ?, group_name = ?, album_slug = ?, album_name = ?, version = ?,
			member_slug = ?, member_name = ?, image_url = ?, rarity = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`), card.CatalogID, card.GroupSlug, card.GroupName, card.AlbumSlug, card.AlbumName, card.Version,
		card.MemberSlug, card.MemberName, card.ImageURL, card.Rarity, card.UpdatedAt,
		card.ID, userID)
	if store.IsUniqueViolation(err) {
		return nil, alreadyOwned()
	}
	if err != nil {
		return nil, fmt.Errorf("update photocard: %w", err)
	}
	return card, nil
}

func (s *service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return store.WithTx(ctx, s.db, "collection.delete", func(tx *sqlx.Tx) error {
		if _, err := s.getCard(ctx, tx, userID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE binder_slots SET photocard_id = NULL, updated_at = ? WHERE photocard_id = ?`), store.Now(), id); err != nil {
			return fmt.Errorf("clear binder slots: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM photocards WHERE id = ? AND user_id = ?`), id, userID); err != nil {
			return fmt.Errorf("delete photocard: %w", err)
		}
		return nil
	})
}

func (s *service) Stats(ctx context.Context, userID string) (*Stats, error) {
	stats := &Stats{ByGroup: []GroupCount{}}

	if err := s.db.GetContext(ctx, &stats.TotalPhotocards, s.db.Rebind(`SELECT COUNT(*) FROM photocards WHERE user_id = ?`), userID); err != nil {
		return nil, fmt.Errorf("count photocards: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalWishlist, s.db.Rebind(`SELECT COUNT(*) FROM wishlist_items WHERE user_id = ?`), userID); err != nil {
		return nil, fmt.Errorf("count wishlist items: %w", err)
	}
	err := s.db.SelectContext(ctx, &stats.ByGroup, s.db.Rebind(`
		SELECT group_slug, group_name, COUNT(*) AS count
		FROM photocards
		WHERE user_id = ?
		GROUP BY group_slug, group_name
		ORDER BY count DESC, group_name ASC
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("count photocards by group: %w", err)
	}
	return stats, nil
}

func (s *service) getCard(ctx context.Context, q store.Querier, userID string, id uuid.UUID) (*Photocard, error) {
	card := &Photocard{}
	err := sqlx.GetContext(ctx, q, card, q.Rebind(`SELECT `+photocardColumns+` FROM photocards WHERE id = ? AND user_id = ?`), id, userID)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("photocard not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get photocard: %w", err)
	}
	return card, nil
}

func (s *service) insertCard(ctx context.Context, q store.Querier, c *Photocard) error {
	_, err := q.ExecContext(ctx, q.Rebind(`
		INSERT INTO photocards (`+photocardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), c.ID, c.UserID, c.CatalogID, c.GroupSlug, c.GroupName, c.AlbumSlug, c.AlbumName, c.Version,
		c.MemberSlug, c.MemberName, c.ImageURL, c.Rarity, c.Source, c.CreatedAt, c.UpdatedAt)
	if store.IsForeignKeyViolation(err) {
		// The linked entry was deleted after it was read.
		return apperr.NotFound("catalog entry not found")
	}
	if err != nil {
		return fmt.Errorf("insert photocard: %w", err)
	}
	return nil
}

// mirror links card to entry and copies the entry's descriptive fields.
func mirror(card *Photocard, entry *catalog.Photocard) {
	id := entry.ID
	card.CatalogID = &id
	card.GroupSlug, card.GroupName = entry.GroupSlug, entry.GroupName
	card.AlbumSlug, card.AlbumName = entry.AlbumSlug, entry.AlbumName
	card.MemberSlug, card.MemberName = entry.MemberSlug, entry.MemberName
	card.Version = entry.Version
	card.ImageURL = entry.ImageURL
	card.Rarity = entry.Rarity
}

func applyChanges(card *Photocard, c catalog.Changes) error {
	var err error
	if c.GroupName != nil {
		if card.GroupName, card.GroupSlug, err = slug.Derive("groupName", *c.GroupName); err != nil {
			return err
		}
	}
	if c.AlbumName != nil {
		if card.AlbumName, card.AlbumSlug, err = slug.Derive("albumName", *c.AlbumName); err != nil {
			return err
		}
	}
	if c.MemberName != nil {
		if card.MemberName, card.MemberSlug, err = slug.Derive("memberName", *c.MemberName); err != nil {
			return err
		}
	}
	if c.Version.Set {
		card.Version = c.Version.Value
	}
	if c.ImageURL != nil {
		card.ImageURL = strings.TrimSpace(*c.ImageURL)
		if card.ImageURL == "" {
			card.ImageURL = catalog.PlaceholderImageURL
		}
	}
	if c.Rarity != nil {
		if !c.Rarity.Valid() {
			return invalidRarity()
		}
		card.Rarity = *c.Rarity
	}
	return nil
}

func invalidRarity() error {
	return apperr.ValidationWithDetails("validation failed", map[string]string{
		"rarity": "must be one of: common limited pob special",
	})
}

func alreadyOwned() error {
	return apperr.Conflict("this photocard is already in your collection")
}
