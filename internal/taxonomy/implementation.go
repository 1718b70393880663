// internal/taxonomy/implementation.go
package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"pocabinder/internal/apperr"
	"pocabinder/internal/slug"
	"pocabinder/internal/store"
)

const (
	groupColumns  = `id, slug, name, image_url, added_by, created_at, updated_at`
	memberColumns = `id, group_id, slug, name, image_url, created_at, updated_at`
)

type service struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewService(db *sqlx.DB, log *zap.Logger) Service {
	return &service{db: db, log: log.Named("taxonomy")}
}

func (s *service) ListGroups(ctx context.Context) ([]*Group, error) {
	groups := []*Group{}
	if err := s.db.SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM artist_groups ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	var members []*Member
	if err := s.db.SelectContext(ctx, &members, `SELECT `+memberColumns+` FROM members ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	byGroup := make(map[uuid.UUID]*Group, len(groups))
	for _, g := range groups {
		g.Members = []*Member{}
		byGroup[g.ID] = g
	}
	for _, m := range members {
		if g, ok := byGroup[m.GroupID]; ok {
			g.Members = append(g.Members, m)
		}
	}
	return groups, nil
}

func (s *service) GetGroup(ctx context.Context, id uuid.UUID) (*Group, error) {
	g, err := s.getGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Members = []*Member{}
	err = s.db.SelectContext(ctx, &g.Members, s.db.Rebind(`SELECT `+memberColumns+` FROM members WHERE group_id = ? ORDER BY name, id`), id)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return g, nil
}

func (s *service) CreateGroup(ctx context.Context, userID, name, imageURL string) (*Group, bool, error) {
	display, key, err := slug.Derive("name", name)
	if err != nil {
		return nil, false, err
	}

	if existing, err := s.groupBySlug(ctx, key); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	now := store.Now()
	g := &Group{
		ID:        uuid.New(),
		Slug:      key,
		Name:      display,
		ImageURL:  optional(imageURL),
		AddedBy:   userID,
		CreatedAt: now,
		UpdatedAt: now,
		Members:   []*Member{},
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO artist_groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		g.ID, g.Slug, g.Name, g.ImageURL, g.AddedBy, g.CreatedAt, g.UpdatedAt)
	if store.IsUniqueViolation(err) {
		// Lost the race to a concurrent creator.
		existing, err := s.groupBySlug(ctx, key)
		return existing, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert group: %w", err)
	}

	s.log.Info("group created", zap.String("group_id", g.ID.String()), zap.String("slug", g.Slug))
	return g, true, nil
}

func (s *service) AddMember(ctx context.Context, groupID uuid.UUID, name, imageURL string) (*Member, bool, error) {
	display, key, err := slug.Derive("name", name)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.getGroup(ctx, groupID); err != nil {
		return nil, false, err
	}

	if existing, err := s.memberBySlug(ctx, groupID, key); err == nil {
		return existing, false, nil
	} else if !store.IsNoRows(err) {
		return nil, false, fmt.Errorf("get member: %w", err)
	}

	now := store.Now()
	m := &Member{
		ID:        uuid.New(),
		GroupID:   groupID,
		Slug:      key,
		Name:      display,
		ImageURL:  optional(imageURL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		m.ID, m.GroupID, m.Slug, m.Name, m.ImageURL, m.CreatedAt, m.UpdatedAt)
	if store.IsUniqueViolation(err) {
		existing, err := s.memberBySlug(ctx, groupID, key)
		if err != nil {
			return nil, false, fmt.Errorf("get member: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert member: %w", err)
	}
	return m, true, nil
}

func (s *service) getGroup(ctx context.Context, id uuid.UUID) (*Group, error) {
	g := &Group{}
	err := s.db.GetContext(ctx, g, s.db.Rebind(`SELECT `+groupColumns+` FROM artist_groups WHERE id = ?`), id)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("group not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (s *service) groupBySlug(ctx context.Context, key string) (*Group, error) {
	g := &Group{}
	err := s.db.GetContext(ctx, g, s.db.Rebind(`SELECT `+groupColumns+` FROM artist_groups WHERE slug = ?`), key)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("group not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get group by slug: %w", err)
	}
	g.Members = []*Member{}
	err = s.db.SelectContext(ctx, &g.Members, s.db.Rebind(`SELECT `+memberColumns+` FROM members WHERE group_id = ? ORDER BY name, id`), g.ID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return g, nil
}

func (s *service) memberBySlug(ctx context.Context, groupID uuid.UUID, key string) (*Member, error) {
	m := &Member{}
	err := s.db.GetContext(ctx, m, s.db.Rebind(`SELECT `+memberColumns+` FROM members WHERE group_id = ? AND slug = ?`), groupID, key)
	return m, err
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
