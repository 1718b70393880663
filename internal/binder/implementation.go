// internal/binder/implementation.go
package binder

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"pocabinder/internal/apperr"
	"pocabinder/internal/collection"
	"pocabinder/internal/store"
	"pocabinder/internal/validation"
)

const (
	binderColumns     = `id, user_id, name, is_public, theme, primary_color, secondary_color, accent_color, created_at, updated_at`
	pageColumns       = `id, binder_id, page_index, page_type, background_type, background_value, created_at, updated_at`
	slotColumns       = `id, page_id, slot_index, photocard_id, created_at, updated_at`
	decorationColumns = `id, page_id, type, content, position_x, position_y, width, height, rotation, z_index,
		shape, font_size, font_color, font_family, created_at, updated_at`
)

type service struct {
	db         *sqlx.DB
	collection collection.Service
	log        *zap.Logger
}

func NewService(db *sqlx.DB, collectionService collection.Service, log *zap.Logger) Service {
	return &service{db: db, collection: collectionService, log: log.Named("binder")}
}

func (s *service) List(ctx context.Context, userID string) ([]*Binder, error) {
	binders := []*Binder{}
	err := s.db.SelectContext(ctx, &binders, s.db.Rebind(`SELECT `+binderColumns+` FROM binders WHERE user_id = ? ORDER BY updated_at DESC, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list binders: %w", err)
	}
	if err := s.attachPages(ctx, binders); err != nil {
		return nil, err
	}
	return binders, nil
}

func (s *service) Get(ctx context.Context, userID string, id uuid.UUID) (*Binder, error) {
	b, err := s.getBinder(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachPages(ctx, []*Binder{b}); err != nil {
		return nil, err
	}

	var cardIDs []uuid.UUID
	for _, p := range b.Pages {
		for _, sl := range p.Slots {
			if sl.PhotocardID != nil {
				cardIDs = append(cardIDs, *sl.PhotocardID)
			}
		}
	}
	cards, err := s.collection.GetMany(ctx, userID, cardIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range b.Pages {
		for _, sl := range p.Slots {
			if sl.PhotocardID != nil {
				sl.Photocard = cards[*sl.PhotocardID]
			}
		}
	}
	return b, nil
}

func (s *service) Create(ctx context.Context, userID, name string) (*Binder, error) {
	now := store.Now()
	b := &Binder{
		ID:             uuid.New(),
		UserID:         userID,
		Name:           strings.TrimSpace(name),
		PrimaryColor:   DefaultPrimaryColor,
		SecondaryColor: DefaultSecondaryColor,
		AccentColor:    DefaultAccentColor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if b.Name == "" {
		b.Name = DefaultName
	}

	background := BackgroundColor
	color := b.PrimaryColor
	b.Pages = []*Page{
		{PageIndex: 0, PageType: PageCover, BackgroundType: &background, BackgroundValue: &color},
		{PageIndex: 1, PageType: PagePockets, BackgroundType: &background, BackgroundValue: &color},
		{PageIndex: 2, PageType: PageNormal},
	}

	err := store.WithTx(ctx, s.db, "binder.create", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO binders (`+binderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			b.ID, b.UserID, b.Name, b.IsPublic, b.Theme, b.PrimaryColor, b.SecondaryColor, b.AccentColor, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert binder: %w", err)
		}
		for _, p := range b.Pages {
			p.ID, p.BinderID, p.CreatedAt, p.UpdatedAt = uuid.New(), b.ID, now, now
			if err := insertPage(ctx, tx, p); err != nil {
				return err
			}
			p.Slots = []*Slot{}
			if p.PageType == PageNormal {
				if p.Slots, err = insertSlots(ctx, tx, p.ID, now); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("binder created", zap.String("user_id", userID), zap.String("binder_id", b.ID.String()))
	return b, nil
}

func (s *service) Update(ctx context.Context, userID string, id uuid.UUID, c Changes) (*Binder, error) {
	details := map[string]string{}
	for field, v := range map[string]*string{
		"primaryColor":   c.PrimaryColor,
		"secondaryColor": c.SecondaryColor,
		"accentColor":    c.AccentColor,
	} {
		if v != nil && !validation.IsHexColor(*v) {
			details[field] = "must be a hex colour like #FFF or #FFB6C1"
		}
	}
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		details["name"] = "is required"
	}
	if len(details) > 0 {
		return nil, apperr.ValidationWithDetails("validation failed", details)
	}

	err := store.WithTx(ctx, s.db, "binder.update", func(tx *sqlx.Tx) error {
		b, err := s.getBinder(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if c.Name != nil {
			b.Name = strings.TrimSpace(*c.Name)
		}
		if c.IsPublic != nil {
			b.IsPublic = *c.IsPublic
		}
		if c.Theme != nil {
			b.Theme = c.Theme
		}
		repaint := c.PrimaryColor != nil
		if repaint {
			b.PrimaryColor = *c.PrimaryColor
		}
		if c.SecondaryColor != nil {
			b.SecondaryColor = *c.SecondaryColor
		}
		if c.AccentColor != nil {
			b.AccentColor = *c.AccentColor
		}
		b.UpdatedAt = store.Now()

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE binders
			SET name = ?, is_public = ?, theme = ?, primary_color = ?, secondary_color = ?, accent_color = ?, updated_at = ?
			WHERE id = ?
		`), b.Name, b.IsPublic, b.Theme, b.PrimaryColor, b.SecondaryColor, b.AccentColor, b.UpdatedAt, id)
		if err != nil {
			return fmt.Errorf("update binder: %w", err)
		}

		if repaint {
			_, err = tx.ExecContext(ctx, tx.Rebind(`
				UPDATE binder_pages SET background_value = ?, updated_at = ?
				WHERE binder_id = ? AND page_index = 0
			`), b.PrimaryColor, b.UpdatedAt, id)
			if err != nil {
				return fmt.Errorf("repaint cover: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

func (s *service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return store.WithTx(ctx, s.db, "binder.delete", func(tx *sqlx.Tx) error {
		if _, err := s.getBinder(ctx, tx, userID, id); err != nil {
			return err
		}
		pages := `SELECT id FROM binder_pages WHERE binder_id = ?`
		for _, stmt := range []struct{ what, query string }{
			{"decorations", `DELETE FROM binder_decorations WHERE page_id IN (` + pages + `)`},
			{"slots", `DELETE FROM binder_slots WHERE page_id IN (` + pages + `)`},
			{"pages", `DELETE FROM binder_pages WHERE binder_id = ?`},
			{"binder", `DELETE FROM binders WHERE id = ?`},
		} {
			if _, err := tx.ExecContext(ctx, tx.Rebind(stmt.query), id); err != nil {
				return fmt.Errorf("delete binder %s: %w", stmt.what, err)
			}
		}
		return nil
	})
}

func (s *service) AddPage(ctx context.Context, userID string, binderID uuid.UUID) (*Page, error) {
	var page *Page
	err := store.WithTx(ctx, s.db, "binder.add_page", func(tx *sqlx.Tx) error {
		if _, err := s.getBinder(ctx, tx, userID, binderID); err != nil {
			return err
		}
		var next int
		err := tx.GetContext(ctx, &next, tx.Rebind(`SELECT COALESCE(MAX(page_index) + 1, 0) FROM binder_pages WHERE binder_id = ?`), binderID)
		if err != nil {
			return fmt.Errorf("next page index: %w", err)
		}

		now := store.Now()
		page = &Page{ID: uuid.New(), BinderID: binderID, PageIndex: next, PageType: PageNormal, CreatedAt: now, UpdatedAt: now}
		if err := insertPage(ctx, tx, page); err != nil {
			return err
		}
		page.Slots, err = insertSlots(ctx, tx, page.ID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *service) UpdatePage(ctx context.Context, userID string, pageID uuid.UUID, c PageChanges) (*Page, error) {
	if c.PageType != nil && !c.PageType.Valid() {
		return nil, apperr.ValidationWithDetails("validation failed", map[string]string{
			"pageType": "must be one of: cover pockets normal",
		})
	}

	p, err := s.getPage(ctx, userID, pageID)
	if err != nil {
		return nil, err
	}
	if c.PageType != nil {
		p.PageType = *c.PageType
	}
	if c.BackgroundType != nil {
		p.BackgroundType = c.BackgroundType
	}
	if c.BackgroundValue != nil {
		p.BackgroundValue = c.BackgroundValue
	}
	p.UpdatedAt = store.Now()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE binder_pages SET page_type = ?, background_type = ?, background_value = ?, updated_at = ?
		WHERE id = ?
	`), p.PageType, p.BackgroundType, p.BackgroundValue, p.UpdatedAt, pageID)
	if err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}
	return p, nil
}

func (s *service) AssignSlot(ctx context.Context, userID string, slotID uuid.UUID, photocardID *uuid.UUID) (*Slot, error) {
	var card *collection.Photocard
	if photocardID != nil {
		var err error
		if card, err = s.collection.Get(ctx, userID, *photocardID); err != nil {
			return nil, err
		}
	}

	slot := &Slot{}
	err := store.WithTx(ctx, s.db, "binder.assign_slot", func(tx *sqlx.Tx) error {
		err := sqlx.GetContext(ctx, tx, slot, tx.Rebind(`
			SELECT s.id, s.page_id, s.slot_index, s.photocard_id, s.created_at, s.updated_at
			FROM binder_slots s
			JOIN binder_pages p ON p.id = s.page_id
			JOIN binders b ON b.id = p.binder_id
			WHERE s.id = ? AND b.user_id = ?
		`), slotID, userID)
		if store.IsNoRows(err) {
			return apperr.NotFound("slot not found")
		}
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}

		now := store.Now()
		if photocardID != nil {
			_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE binder_slots SET photocard_id = NULL, updated_at = ? WHERE photocard_id = ? AND id <> ?`), now, *photocardID, slotID)
			if err != nil {
				return fmt.Errorf("clear previous slot: %w", err)
			}
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE binder_slots SET photocard_id = ?, updated_at = ? WHERE id = ?`), photocardID, now, slotID)
		if err != nil {
			return fmt.Errorf("assign slot: %w", err)
		}
		slot.PhotocardID, slot.UpdatedAt = photocardID, now
		return nil
	})
	if err != nil {
		return nil, err
	}
	slot.Photocard = card
	return slot, nil
}

func (s *service) ListDecorations(ctx context.Context, userID string, pageID uuid.UUID) ([]*Decoration, error) {
	if _, err := s.getPage(ctx, userID, pageID); err != nil {
		return nil, err
	}
	decorations := []*Decoration{}
	err := s.db.SelectContext(ctx, &decorations, s.db.Rebind(`SELECT `+decorationColumns+` FROM binder_decorations WHERE page_id = ? ORDER BY z_index, created_at, id`), pageID)
	if err != nil {
		return nil, fmt.Errorf("list decorations: %w", err)
	}
	return decorations, nil
}

func (s *service) CreateDecoration(ctx context.Context, userID string, pageID uuid.UUID, in NewDecoration) (*Decoration, error) {
	details := map[string]string{}
	if strings.TrimSpace(in.Type) == "" {
		details["type"] = "is required"
	}
	if strings.TrimSpace(in.Content) == "" {
		details["content"] = "is required"
	}
	if len(details) > 0 {
		return nil, apperr.ValidationWithDetails("validation failed", details)
	}
	if _, err := s.getPage(ctx, userID, pageID); err != nil {
		return nil, err
	}

	now := store.Now()
	d := &Decoration{
		ID:         uuid.New(),
		PageID:     pageID,
		Type:       in.Type,
		Content:    in.Content,
		PositionX:  clampPercent(in.PositionX),
		PositionY:  clampPercent(in.PositionY),
		Width:      in.Width,
		Height:     in.Height,
		Rotation:   in.Rotation,
		ZIndex:     in.ZIndex,
		Shape:      in.Shape,
		FontSize:   in.FontSize,
		FontColor:  in.FontColor,
		FontFamily: in.FontFamily,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO binder_decorations (`+decorationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), d.ID, d.PageID, d.Type, d.Content, d.PositionX, d.PositionY, d.Width, d.Height, d.Rotation, d.ZIndex,
		d.Shape, d.FontSize, d.FontColor, d.FontFamily, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert decoration: %w", err)
	}
	return d, nil
}

func (s *service) UpdateDecoration(ctx context.Context, userID string, id uuid.UUID, c DecorationChanges) (*Decoration, error) {
	d, err := s.ownedDecoration(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Content != nil {
		d.Content = *c.Content
	}
	if c.PositionX != nil {
		d.PositionX = clampPercent(*c.PositionX)
	}
	if c.PositionY != nil {
		d.PositionY = clampPercent(*c.PositionY)
	}
	if c.Width != nil {
		d.Width = c.Width
	}
	if c.Height != nil {
		d.Height = c.Height
	}
	if c.Rotation != nil {
		d.Rotation = *c.Rotation
	}
	if c.ZIndex != nil {
		d.ZIndex = *c.ZIndex
	}
	if c.Shape != nil {
		d.Shape = c.Shape
	}
	if c.FontSize != nil {
		d.FontSize = c.FontSize
	}
	if c.FontColor != nil {
		d.FontColor = c.FontColor
	}
	if c.FontFamily != nil {
		d.FontFamily = c.FontFamily
	}
	d.UpdatedAt = store.Now()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE binder_decorations
		SET content = ?, position_x = ?, position_y = ?, width = ?, height = ?, rotation = ?, z_index = ?,
			shape = ?, font_size = ?, font_color = ?, font_family = ?, updated_at = ?
		WHERE id = ?
	`), d.Content, d.PositionX, d.PositionY, d.Width, d.Height, d.Rotation, d.ZIndex,
		d.Shape, d.FontSize, d.FontColor, d.FontFamily, d.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("update decoration: %w", err)
	}
	return d, nil
}

func (s *service) DeleteDecoration(ctx context.Context, userID string, id uuid.UUID) error {
	if _, err := s.ownedDecoration(ctx, userID, id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM binder_decorations WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete decoration: %w", err)
	}
	return nil
}

func (s *service) getBinder(ctx context.Context, q store.Querier, userID string, id uuid.UUID) (*Binder, error) {
	b := &Binder{}
	err := sqlx.GetContext(ctx, q, b, q.Rebind(`SELECT `+binderColumns+` FROM binders WHERE id = ? AND user_id = ?`), id, userID)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("binder not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get binder: %w", err)
	}
	return b, nil
}

// getPage returns the page if it belongs to one of the user's binders.
func (s *service) getPage(ctx context.Context, userID string, id uuid.UUID) (*Page, error) {
	p := &Page{}
	err := s.db.GetContext(ctx, p, s.db.Rebind(`
		SELECT p.id, p.binder_id, p.page_index, p.page_type, p.background_type, p.background_value, p.created_at, p.updated_at
		FROM binder_pages p
		JOIN binders b ON b.id = p.binder_id
		WHERE p.id = ? AND b.user_id = ?
	`), id, userID)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("page not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return p, nil
}

// ownedDecoration distinguishes a missing decoration (NotFound) from one on
// another user's binder (Forbidden).
func (s *service) ownedDecoration(ctx context.Context, userID string, id uuid.UUID) (*Decoration, error) {
	var row struct {
		Decoration
		Owner string `db:"owner"`
	}
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT d.id, d.page_id, d.type, d.content, d.position_x, d.position_y, d.width, d.height, d.rotation,
			d.z_index, d.shape, d.font_size, d.font_color, d.font_family, d.created_at, d.updated_at,
			b.user_id AS owner
		FROM binder_decorations d
		JOIN binder_pages p ON p.id = d.page_id
		JOIN binders b ON b.id = p.binder_id
		WHERE d.id = ?
	`), id)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("decoration not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get decoration: %w", err)
	}
	if row.Owner != userID {
		return nil, apperr.Forbidden("this decoration belongs to another user's binder")
	}
	return &row.Decoration, nil
}

// attachPages loads pages (by index) and their slots (by slot index).
func (s *service) attachPages(ctx context.Context, binders []*Binder) error {
	if len(binders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(binders))
	byID := make(map[uuid.UUID]*Binder, len(binders))
	for i, b := range binders {
		b.Pages = []*Page{}
		ids[i] = b.ID
		byID[b.ID] = b
	}

	query, args, err := sqlx.In(`SELECT `+pageColumns+` FROM binder_pages WHERE binder_id IN (?) ORDER BY page_index`, ids)
	if err != nil {
		return fmt.Errorf("build page query: %w", err)
	}
	var pages []*Page
	if err := s.db.SelectContext(ctx, &pages, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	if len(pages) == 0 {
		return nil
	}

	pageIDs := make([]uuid.UUID, len(pages))
	pageByID := make(map[uuid.UUID]*Page, len(pages))
	for i, p := range pages {
		p.Slots = []*Slot{}
		pageIDs[i] = p.ID
		pageByID[p.ID] = p
		byID[p.BinderID].Pages = append(byID[p.BinderID].Pages, p)
	}

	query, args, err = sqlx.In(`SELECT `+slotColumns+` FROM binder_slots WHERE page_id IN (?) ORDER BY slot_index`, pageIDs)
	if err != nil {
		return fmt.Errorf("build slot query: %w", err)
	}
	var slots []*Slot
	if err := s.db.SelectContext(ctx, &slots, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("list slots: %w", err)
	}
	for _, sl := range slots {
		pageByID[sl.PageID].Slots = append(pageByID[sl.PageID].Slots, sl)
	}
	return nil
}

func insertPage(ctx context.Context, tx *sqlx.Tx, p *Page) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO binder_pages (`+pageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.BinderID, p.PageIndex, p.PageType, p.BackgroundType, p.BackgroundValue, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func insertSlots(ctx context.Context, tx *sqlx.Tx, pageID uuid.UUID, now store.Time) ([]*Slot, error) {
	slots := make([]*Slot, SlotsPerPage)
	for i := range slots {
		slots[i] = &Slot{ID: uuid.New(), PageID: pageID, SlotIndex: i, CreatedAt: now, UpdatedAt: now}
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO binder_slots (`+slotColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
			slots[i].ID, slots[i].PageID, slots[i].SlotIndex, slots[i].PhotocardID, slots[i].CreatedAt, slots[i].UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert slot: %w", err)
		}
	}
	return slots, nil
}
