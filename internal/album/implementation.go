// internal/album/implementation.go
package album

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
	"pocabinder/internal/taxonomy"
	"pocabinder/internal/validation"
)

const (
	albumSelect = `
		SELECT a.id, a.group_id, g.slug AS group_slug, g.name AS group_name, a.slug, a.name,
			a.image_url, a.release_date, a.added_by, a.created_at, a.updated_at
		FROM albums a
		JOIN artist_groups g ON g.id = a.group_id`
	versionColumns    = `id, album_id, slug, name, image_url, color, created_at, updated_at`
	collectionColumns = `id, user_id, album_id, version_id, notes, created_at, updated_at`
)

type service struct {
	db       *sqlx.DB
	taxonomy taxonomy.Service
	log      *zap.Logger
}

func NewService(db *sqlx.DB, taxonomyService taxonomy.Service, log *zap.Logger) Service {
	return &service{db: db, taxonomy: taxonomyService, log: log.Named("album")}
}

// ---- albums ----

func (s *service) List(ctx context.Context, groupID *uuid.UUID) ([]*Album, error) {
	query := albumSelect
	var args []any
	if groupID != nil {
		query += ` WHERE a.group_id = ?`
		args = append(args, *groupID)
	}
	query += ` ORDER BY a.name, a.id`

	albums := []*Album{}
	if err := s.db.SelectContext(ctx, &albums, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	if err := s.attachVersions(ctx, albums); err != nil {
		return nil, err
	}
	return albums, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Album, error) {
	a, err := s.getAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachVersions(ctx, []*Album{a}); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) Create(ctx context.Context, userID string, in NewAlbum) (*Album, bool, error) {
	display, key, err := slug.Derive("name", in.Name)
	if err != nil {
		return nil, false, err
	}
	group, err := s.taxonomy.GetGroup(ctx, in.GroupID)
	if err != nil {
		return nil, false, err
	}

	if existing, err := s.albumBySlug(ctx, in.GroupID, key); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	now := store.Now()
	a := &Album{
		ID:        uuid.New(),
		GroupID:   group.ID,
		GroupSlug: group.Slug,
		GroupName: group.Name,
		Slug:      key,
		Name:      display,
		ImageURL:  optional(in.ImageURL),
		AddedBy:   userID,
		CreatedAt: now,
		UpdatedAt: now,
		Versions:  []*Version{},
	}
	if in.ReleaseDate != nil {
		a.ReleaseDate = &store.Time{Time: in.ReleaseDate.UTC()}
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO albums (id, group_id, slug, name, image_url, release_date, added_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), a.ID, a.GroupID, a.Slug, a.Name, a.ImageURL, a.ReleaseDate, a.AddedBy, a.CreatedAt, a.UpdatedAt)
	if store.IsUniqueViolation(err) {
		existing, err := s.albumBySlug(ctx, in.GroupID, key)
		return existing, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert album: %w", err)
	}

	s.log.Info("album created",
		zap.String("album_id", a.ID.String()),
		zap.String("group", a.GroupSlug),
		zap.String("slug", a.Slug),
	)
	return a, true, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, c Changes) (*Album, error) {
	a, err := s.getAlbum(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Name != nil {
		if a.Name, a.Slug, err = slug.Derive("name", *c.Name); err != nil {
			return nil, err
		}
	}
	if c.ImageURL != nil {
		a.ImageURL = optional(*c.ImageURL)
	}
	if c.ReleaseDate.Set {
		a.ReleaseDate = nil
		if c.ReleaseDate.Value != nil {
			a.ReleaseDate = &store.Time{Time: c.ReleaseDate.Value.UTC()}
		}
	}
	a.UpdatedAt = store.Now()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE albums SET slug = ?, name = ?, image_url = ?, release_date = ?, updated_at = ?
		WHERE id = ?
	`), a.Slug, a.Name, a.ImageURL, a.ReleaseDate, a.UpdatedAt, id)
	if store.IsUniqueViolation(err) {
		return nil, apperr.Conflict("an album with this name already exists in the group")
	}
	if err != nil {
		return nil, fmt.Errorf("update album: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return store.WithTx(ctx, s.db, "album.delete", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM user_album_collections WHERE album_id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete album collections: %w", err)
		}
		owners, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete album collections: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM album_versions WHERE album_id = ?`), id); err != nil {
			return fmt.Errorf("delete album versions: %w", err)
		}
		res, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM albums WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete album: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete album: %w", err)
		}
		if n == 0 {
			return apperr.NotFound("album not found")
		}
		s.log.Info("album deleted", zap.String("album_id", id.String()), zap.Int64("collection_rows", owners))
		return nil
	})
}

// ---- versions ----

func (s *service) ListVersions(ctx context.Context, albumID uuid.UUID) ([]*Version, error) {
	if _, err := s.getAlbum(ctx, albumID); err != nil {
		return nil, err
	}
	versions := []*Version{}
	err := s.db.SelectContext(ctx, &versions, s.db.Rebind(`SELECT `+versionColumns+` FROM album_versions WHERE album_id = ? ORDER BY name, id`), albumID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

func (s *service) CreateVersion(ctx context.Context, albumID uuid.UUID, in NewVersion) (*Version, bool, error) {
	display, key, err := slug.Derive("name", in.Name)
	if err != nil {
		return nil, false, err
	}
	if err := checkColor(in.Color); err != nil {
		return nil, false, err
	}
	if _, err := s.getAlbum(ctx, albumID); err != nil {
		return nil, false, err
	}

	if existing, err := s.versionBySlug(ctx, albumID, key); err == nil {
		return existing, false, nil
	} else if !store.IsNoRows(err) {
		return nil, false, fmt.Errorf("get version: %w", err)
	}

	now := store.Now()
	v := &Version{
		ID:        uuid.New(),
		AlbumID:   albumID,
		Slug:      key,
		Name:      display,
		ImageURL:  optional(in.ImageURL),
		Color:     optional(in.Color),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO album_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		v.ID, v.AlbumID, v.Slug, v.Name, v.ImageURL, v.Color, v.CreatedAt, v.UpdatedAt)
	if store.IsUniqueViolation(err) {
		existing, err := s.versionBySlug(ctx, albumID, key)
		if err != nil {
			return nil, false, fmt.Errorf("get version: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert version: %w", err)
	}
	return v, true, nil
}

func (s *service) UpdateVersion(ctx context.Context, id uuid.UUID, c VersionChanges) (*Version, error) {
	v, err := s.getVersion(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if c.Name != nil {
		if v.Name, v.Slug, err = slug.Derive("name", *c.Name); err != nil {
			return nil, err
		}
	}
	if c.ImageURL != nil {
		v.ImageURL = optional(*c.ImageURL)
	}
	if c.Color != nil {
		if err := checkColor(*c.Color); err != nil {
			return nil, err
		}
		v.Color = optional(*c.Color)
	}
	v.UpdatedAt = store.Now()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE album_versions SET slug = ?, name = ?, image_url = ?, color = ?, updated_at = ?
		WHERE id = ?
	`), v.Slug, v.Name, v.ImageURL, v.Color, v.UpdatedAt, id)
	if store.IsUniqueViolation(err) {
		return nil, apperr.Conflict("a version with this name already exists for the album")
	}
	if err != nil {
		return nil, fmt.Errorf("update version: %w", err)
	}
	return v, nil
}

func (s *service) DeleteVersion(ctx context.Context, id uuid.UUID) error {
	return store.WithTx(ctx, s.db, "album.delete_version", func(tx *sqlx.Tx) error {
		if _, err := s.getVersion(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM user_album_collections WHERE version_id = ?`), id); err != nil {
			return fmt.Errorf("delete version collections: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM album_versions WHERE id = ?`), id); err != nil {
			return fmt.Errorf("delete version: %w", err)
		}
		return nil
	})
}

// ---- user album collection ----

func (s *service) ListCollection(ctx context.Context, userID string) ([]*CollectionItem, error) {
	items := []*CollectionItem{}
	err := s.db.SelectContext(ctx, &items, s.db.Rebind(`
		SELECT `+collectionColumns+` FROM user_album_collections
		WHERE user_id = ?
		ORDER BY created_at DESC, id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("list album collection: %w", err)
	}
	if err := s.attachAlbums(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *service) AddToCollection(ctx context.Context, userID string, albumID uuid.UUID, versionID *uuid.UUID, notes string) (*CollectionItem, error) {
	if _, err := s.getAlbum(ctx, albumID); err != nil {
		return nil, err
	}
	if versionID != nil {
		if err := s.checkVersionOf(ctx, albumID, *versionID); err != nil {
			return nil, err
		}
	}

	now := store.Now()
	item := &CollectionItem{
		ID:        uuid.New(),
		UserID:    userID,
		AlbumID:   albumID,
		VersionID: versionID,
		Notes:     optional(notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO user_album_collections (id, user_id, album_id, version_id, version_key, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`), item.ID, item.UserID, item.AlbumID, item.VersionID, versionKey(item.VersionID), item.Notes, item.CreatedAt, item.UpdatedAt)
	if store.IsUniqueViolation(err) {
		return nil, alreadyCollected()
	}
	if err != nil {
		return nil, fmt.Errorf("insert album collection item: %w", err)
	}

	if err := s.attachAlbums(ctx, []*CollectionItem{item}); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) UpdateCollectionItem(ctx context.Context, userID string, id uuid.UUID, c CollectionChanges) (*CollectionItem, error) {
	item, err := s.getItem(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.VersionID.Set {
		if c.VersionID.Value != nil {
			if err := s.checkVersionOf(ctx, item.AlbumID, *c.VersionID.Value); err != nil {
				return nil, err
			}
		}
		item.VersionID = c.VersionID.Value
	}
	if c.Notes != nil {
		item.Notes = optional(*c.Notes)
	}
	item.UpdatedAt = store.Now()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE user_album_collections SET version_id = ?, version_key = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`), item.VersionID, versionKey(item.VersionID), item.Notes, item.UpdatedAt, id, userID)
	if store.IsUniqueViolation(err) {
		return nil, alreadyCollected()
	}
	if err != nil {
		return nil, fmt.Errorf("update album collection item: %w", err)
	}

	if err := s.attachAlbums(ctx, []*CollectionItem{item}); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) RemoveFromCollection(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM user_album_collections WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("delete album collection item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete album collection item: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("collection item not found")
	}
	return nil
}

// ---- helpers ----

func (s *service) getAlbum(ctx context.Context, id uuid.UUID) (*Album, error) {
	a := &Album{}
	err := s.db.GetContext(ctx, a, s.db.Rebind(albumSelect+` WHERE a.id = ?`), id)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("album not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get album: %w", err)
	}
	return a, nil
}

func (s *service) albumBySlug(ctx context.Context, groupID uuid.UUID, key string) (*Album, error) {
	a := &Album{}
	err := s.db.GetContext(ctx, a, s.db.Rebind(albumSelect+` WHERE a.group_id = ? AND a.slug = ?`), groupID, key)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("album not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get album by slug: %w", err)
	}
	if err := s.attachVersions(ctx, []*Album{a}); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) getVersion(ctx context.Context, q store.Querier, id uuid.UUID) (*Version, error) {
	v := &Version{}
	err := sqlx.GetContext(ctx, q, v, q.Rebind(`SELECT `+versionColumns+` FROM album_versions WHERE id = ?`), id)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("version not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

func (s *service) versionBySlug(ctx context.Context, albumID uuid.UUID, key string) (*Version, error) {
	v := &Version{}
	err := s.db.GetContext(ctx, v, s.db.Rebind(`SELECT `+versionColumns+` FROM album_versions WHERE album_id = ? AND slug = ?`), albumID, key)
	return v, err
}

func (s *service) checkVersionOf(ctx context.Context, albumID, versionID uuid.UUID) error {
	v, err := s.getVersion(ctx, s.db, versionID)
	if err != nil {
		return err
	}
	if v.AlbumID != albumID {
		return apperr.NotFound("version not found for this album")
	}
	return nil
}

func (s *service) getItem(ctx context.Context, userID string, id uuid.UUID) (*CollectionItem, error) {
	item := &CollectionItem{}
	err := s.db.GetContext(ctx, item, s.db.Rebind(`SELECT `+collectionColumns+` FROM user_album_collections WHERE id = ? AND user_id = ?`), id, userID)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("collection item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get album collection item: %w", err)
	}
	return item, nil
}

// attachVersions loads the versions of every album in one query.
func (s *service) attachVersions(ctx context.Context, albums []*Album) error {
	if len(albums) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(albums))
	byID := make(map[uuid.UUID]*Album, len(albums))
	for i, a := range albums {
		a.Versions = []*Version{}
		ids[i] = a.ID
		byID[a.ID] = a
	}

	query, args, err := sqlx.In(`SELECT `+versionColumns+` FROM album_versions WHERE album_id IN (?) ORDER BY name, id`, ids)
	if err != nil {
		return fmt.Errorf("build version query: %w", err)
	}
	var versions []*Version
	if err := s.db.SelectContext(ctx, &versions, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("list versions: %w", err)
	}
	for _, v := range versions {
		byID[v.AlbumID].Versions = append(byID[v.AlbumID].Versions, v)
	}
	return nil
}

// attachAlbums fills Album and Version on each item.
func (s *service) attachAlbums(ctx context.Context, items []*CollectionItem) error {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(items))
	var ids []uuid.UUID
	for _, it := range items {
		if !seen[it.AlbumID] {
			seen[it.AlbumID] = true
			ids = append(ids, it.AlbumID)
		}
	}

	query, args, err := sqlx.In(albumSelect+` WHERE a.id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build album query: %w", err)
	}
	var albums []*Album
	if err := s.db.SelectContext(ctx, &albums, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("list albums: %w", err)
	}
	if err := s.attachVersions(ctx, albums); err != nil {
		return err
	}

	byID := make(map[uuid.UUID]*Album, len(albums))
	for _, a := range albums {
		byID[a.ID] = a
	}
	for _, it := range items {
		it.Album = byID[it.AlbumID]
		it.Version = nil
		if it.VersionID == nil || it.Album == nil {
			continue
		}
		for _, v := range it.Album.Versions {
			if v.ID == *it.VersionID {
				it.Version = v
				break
			}
		}
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func checkColor(c string) error {
	if c = strings.TrimSpace(c); c != "" && !validation.IsHexColor(c) {
		return apperr.ValidationWithDetails("validation failed", map[string]string{
			"color": "must be a hex colour like #FFF or #FFB6C1",
		})
	}
	return nil
}

func alreadyCollected() error {
	return apperr.Conflict("this album is already in your collection")
}
