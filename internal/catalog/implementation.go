// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pocabinder/internal/apperr"
	"pocabinder/internal/eventstore"
	"pocabinder/internal/slug"
	"pocabinder/internal/store"
)

const entryColumns = `id, group_slug, group_name, album_slug, album_name, version, member_slug,
	member_name, image_url, rarity, added_by, revision, created_at, updated_at`

// service implements the Service interface.
type service struct {
	db         *sqlx.DB
	eventStore *eventstore.EventStore
	log        *zap.Logger
	tracer     trace.Tracer
	propagated metric.Int64Counter
}

// NewService creates a new catalog service instance.
func NewService(db *sqlx.DB, es *eventstore.EventStore, log *zap.Logger) Service {
	propagated, err := otel.Meter("pocabinder/catalog").Int64Counter("catalog.propagated_copies",
		metric.WithDescription("Personal photocards rewritten by catalog entry edits"),
	)
	if err != nil {
		log.Warn("create propagated copies counter", zap.Error(err))
	}
	return &service{
		db:         db,
		eventStore: es,
		log:        log.Named("catalog"),
		tracer:     otel.Tracer("pocabinder/catalog"),
		propagated: propagated,
	}
}

func (s *service) ResolveOrCreate(ctx context.Context, in NewEntry) (*Photocard, bool, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.resolve_or_create")
	defer span.End()

	entry, err := newPhotocard(in)
	if err != nil {
		return nil, false, err
	}
	versionKey := store.VersionKey(entry.Version)
	span.SetAttributes(
		attribute.String("catalog.group_slug", entry.GroupSlug),
		attribute.String("catalog.album_slug", entry.AlbumSlug),
		attribute.String("catalog.member_slug", entry.MemberSlug),
	)

	existing, err := s.findByIdentity(ctx, s.db, entry.GroupSlug, entry.AlbumSlug, entry.MemberSlug, versionKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		span.SetAttributes(attribute.Bool("catalog.created", false))
		return existing, false, nil
	}

	added, err := eventstore.NewEvent(EventEntryAdded, entry, map[string]any{"userId": in.CreatorID})
	if err != nil {
		return nil, false, err
	}

	err = store.WithTx(ctx, s.db, "catalog.create", func(tx *sqlx.Tx) error {
		if err := s.insertEntry(ctx, tx, entry, versionKey); err != nil {
			return err
		}
		return s.eventStore.Append(ctx, tx, entry.ID, aggregateType, 0, []eventstore.Event{added})
	})
	if store.IsUniqueViolation(err) {
		// Lost a race with a concurrent creator of the same identity.
		existing, findErr := s.findByIdentity(ctx, s.db, entry.GroupSlug, entry.AlbumSlug, entry.MemberSlug, versionKey)
		if findErr != nil {
			return nil, false, findErr
		}
		if existing != nil {
			span.SetAttributes(attribute.Bool("catalog.created", false), attribute.Bool("catalog.race", true))
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, fmt.Errorf("create catalog entry: %w", err)
	}

	span.SetAttributes(attribute.Bool("catalog.created", true))
	s.log.Info("catalog entry created",
		zap.String("id", entry.ID.String()),
		zap.String("group", entry.GroupSlug),
		zap.String("album", entry.AlbumSlug),
		zap.String("member", entry.MemberSlug),
		zap.String("added_by", entry.AddedBy),
	)
	return entry, true, nil
}

// newPhotocard normalizes in into a fresh revision-1 entry.
func newPhotocard(in NewEntry) (*Photocard, error) {
	groupName, groupSlug, err := slug.Derive("groupName", in.GroupName)
	if err != nil {
		return nil, err
	}
	albumName, albumSlug, err := slug.Derive("albumName", in.AlbumName)
	if err != nil {
		return nil, err
	}
	memberName, memberSlug, err := slug.Derive("memberName", in.MemberName)
	if err != nil {
		return nil, err
	}

	rarity := in.Rarity
	if rarity == "" {
		rarity = RarityCommon
	}
	if !rarity.Valid() {
		return nil, invalidRarity()
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL == "" {
		imageURL = PlaceholderImageURL
	}

	now := store.Now()
	return &Photocard{
		ID:         uuid.New(),
		GroupSlug:  groupSlug,
		GroupName:  groupName,
		AlbumSlug:  albumSlug,
		AlbumName:  albumName,
		Version:    in.Version,
		MemberSlug: memberSlug,
		MemberName: memberName,
		ImageURL:   imageURL,
		Rarity:     rarity,
		AddedBy:    in.CreatorID,
		Revision:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func invalidRarity() error {
	return apperr.ValidationWithDetails("validation failed", map[string]string{
		"rarity": "must be one of: common limited pob special",
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Photocard, error) {
	return s.getEntry(ctx, s.db, id)
}

func (s *service) List(ctx context.Context, f Filter) ([]*Photocard, error) {
	var (
		where []string
		args  []any
	)
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
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		where = append(where, `(LOWER(group_name) LIKE ? ESCAPE '\' OR LOWER(album_name) LIKE ? ESCAPE '\' OR LOWER(member_name) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `SELECT ` + entryColumns + ` FROM catalog_photocards`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY group_name ASC, album_name ASC, member_name ASC, created_at ASC LIMIT ?"
	args = append(args, limit)

	entries := []*Photocard{}
	if err := s.db.SelectContext(ctx, &entries, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list catalog entries: %w", err)
	}
	return entries, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *service) UpdateEntry(ctx context.Context, id uuid.UUID, changes Changes, requesterID string) (*Photocard, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.update_entry",
		trace.WithAttributes(attribute.String("catalog.id", id.String())),
	)
	defer span.End()

	var (
		updated *Photocard
		copies  int64
		wishes  int64
	)
	err := store.WithTx(ctx, s.db, "catalog.update", func(tx *sqlx.Tx) error {
		current, err := s.getEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.AddedBy != requesterID {
			return apperr.Forbidden("only the creator can edit this catalog entry")
		}
		if changes.empty() {
			updated = current
			return nil
		}

		next, err := applyChanges(*current, changes)
		if err != nil {
			return err
		}

		if err := s.updateEntryRow(ctx, tx, current.Revision, next); err != nil {
			return err
		}

		copies, err = s.propagate(ctx, tx, next)
		if err != nil {
			return err
		}
		wishes, err = s.propagateWishes(ctx, tx, next)
		if err != nil {
			return err
		}

		ev, err := eventstore.NewEvent(EventEntryUpdated, EntryUpdatedEvent{
			Before:           *current,
			After:            *next,
			PropagatedCopies: copies,
		}, map[string]any{"userId": requesterID})
		if err != nil {
			return err
		}
		if err := s.eventStore.Append(ctx, tx, id, aggregateType, current.Revision, []eventstore.Event{ev}); err != nil {
			if errors.Is(err, eventstore.ErrConcurrencyConflict) {
				return apperr.Conflict("catalog entry was modified concurrently").WithCause(err)
			}
			return err
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("catalog.propagated_copies", copies),
		attribute.Int64("catalog.propagated_wishlist_items", wishes),
	)
	if s.propagated != nil {
		s.propagated.Add(ctx, copies)
	}
	s.log.Info("catalog entry updated",
		zap.String("id", id.String()),
		zap.Int("revision", updated.Revision),
		zap.Int64("propagated_copies", copies),
		zap.Int64("propagated_wishlist_items", wishes),
	)
	return updated, nil
}

// applyChanges returns entry with changes applied and the revision bumped.
func applyChanges(entry Photocard, c Changes) (*Photocard, error) {
	var err error
	if c.GroupName != nil {
		if entry.GroupName, entry.GroupSlug, err = slug.Derive("groupName", *c.GroupName); err != nil {
			return nil, err
		}
	}
	if c.AlbumName != nil {
		if entry.AlbumName, entry.AlbumSlug, err = slug.Derive("albumName", *c.AlbumName); err != nil {
			return nil, err
		}
	}
	if c.MemberName != nil {
		if entry.MemberName, entry.MemberSlug, err = slug.Derive("memberName", *c.MemberName); err != nil {
			return nil, err
		}
	}
	if c.Version.Set {
		entry.Version = c.Version.Value
	}
	if c.ImageURL != nil {
		entry.ImageURL = strings.TrimSpace(*c.ImageURL)
		if entry.ImageURL == "" {
			entry.ImageURL = PlaceholderImageURL
		}
	}
	if c.Rarity != nil {
		if !c.Rarity.Valid() {
			return nil, invalidRarity()
		}
		entry.Rarity = *c.Rarity
	}

	entry.Revision++
	entry.UpdatedAt = store.Now()
	return &entry, nil
}

func (s *service) DeleteEntry(ctx context.Context, id uuid.UUID, requesterID string) error {
	ctx, span := s.tracer.Start(ctx, "catalog.delete_entry",
		trace.WithAttributes(attribute.String("catalog.id", id.String())),
	)
	defer span.End()

	var copies, wishes int64
	err := store.WithTx(ctx, s.db, "catalog.delete", func(tx *sqlx.Tx) error {
		current, err := s.getEntry(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.AddedBy != requesterID {
			return apperr.Forbidden("only the creator can delete this catalog entry")
		}

		// Copies are detached before the entry goes so none points at a missing id.
		now := store.Now()
		if copies, err = s.detach(ctx, tx, "photocards", id, now); err != nil {
			return err
		}
		if wishes, err = s.detach(ctx, tx, "wishlist_items", id, now); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM catalog_photocards WHERE id = ? AND revision = ?`), id, current.Revision)
		if err != nil {
			return fmt.Errorf("delete catalog entry: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("delete catalog entry: %w", err)
		} else if n == 0 {
			return apperr.Conflict("catalog entry was modified concurrently")
		}

		ev, err := eventstore.NewEvent(EventEntryDeleted, EntryDeletedEvent{
			Entry:                 *current,
			DetachedCopies:        copies,
			DetachedWishlistItems: wishes,
		}, map[string]any{"userId": requesterID})
		if err != nil {
			return err
		}
		if err := s.eventStore.Append(ctx, tx, id, aggregateType, current.Revision, []eventstore.Event{ev}); err != nil {
			if errors.Is(err, eventstore.ErrConcurrencyConflict) {
				return apperr.Conflict("catalog entry was modified concurrently").WithCause(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	span.SetAttributes(
		attribute.Int64("catalog.detached_copies", copies),
		attribute.Int64("catalog.detached_wishlist_items", wishes),
	)
	s.log.Info("catalog entry deleted",
		zap.String("id", id.String()),
		zap.Int64("detached_copies", copies),
		zap.Int64("detached_wishlist_items", wishes),
	)
	return nil
}

func (s *service) History(ctx context.Context, id uuid.UUID) ([]eventstore.Event, error) {
	events, err := s.eventStore.Load(ctx, s.db, id, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, apperr.NotFound("catalog entry not found")
	}
	return events, nil
}

func (s *service) Activity(ctx context.Context, afterID int64, limit int) ([]eventstore.Event, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	events, err := s.eventStore.Stream(ctx, s.db, afterID, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []eventstore.Event{}
	}
	return events, nil
}

func (s *service) getEntry(ctx context.Context, q store.Querier, id uuid.UUID) (*Photocard, error) {
	entry := &Photocard{}
	err := sqlx.GetContext(ctx, q, entry, q.Rebind(`SELECT `+entryColumns+` FROM catalog_photocards WHERE id = ?`), id)
	if store.IsNoRows(err) {
		return nil, apperr.NotFound("catalog entry not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get catalog entry: %w", err)
	}
	return entry, nil
}

// findByIdentity returns nil, nil when no entry has the identity.
func (s *service) findByIdentity(ctx context.Context, q store.Querier, groupSlug, albumSlug, memberSlug, versionKey string) (*Photocard, error) {
	entry := &Photocard{}
	err := sqlx.GetContext(ctx, q, entry, q.Rebind(`
		SELECT `+entryColumns+`
		FROM catalog_photocards
		WHERE group_slug = ? AND album_slug = ? AND member_slug = ? AND version_key = ?
	`), groupSlug, albumSlug, memberSlug, versionKey)
	if store.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find catalog entry: %w", err)
	}
	return entry, nil
}

func (s *service) insertEntry(ctx context.Context, q store.Querier, p *Photocard, versionKey string) error {
	_, err := q.ExecContext(ctx, q.Rebind(`
		INSERT INTO catalog_photocards (id, group_slug, group_name, album_slug, album_name, version, version_key,
			member_slug, member_name, image_url, rarity, added_by, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), p.ID, p.GroupSlug, p.GroupName, p.AlbumSlug, p.AlbumName, p.Version, versionKey,
		p.MemberSlug, p.MemberName, p.ImageURL, p.Rarity, p.AddedBy, p.Revision, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert catalog entry: %w", err)
	}
	return nil
}

// updateEntryRow writes next over the row if it is still at revision.
func (s *service) updateEntryRow(ctx context.Context, q store.Querier, revision int, next *Photocard) error {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE catalog_photocards
		SET group_slug = ?, group_name = ?, album_slug = ?, album_name = ?, version = ?, version_key = ?,
			member_slug = ?, member_name = ?, image_url = ?, rarity = ?, revision = ?, updated_at = ?
		WHERE id = ? AND revision = ?
	`), next.GroupSlug, next.GroupName, next.AlbumSlug, next.AlbumName, next.Version, store.VersionKey(next.Version),
		next.MemberSlug, next.MemberName, next.ImageURL, next.Rarity, next.Revision, next.UpdatedAt,
		next.ID, revision)
	if store.IsUniqueViolation(err) {
		return apperr.Conflict("another catalog entry already has this group, album, member and version")
	}
	if err != nil {
		return fmt.Errorf("update catalog entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update catalog entry: %w", err)
	}
	if n == 0 {
		return apperr.Conflict("catalog entry was modified concurrently")
	}
	return nil
}

// propagate overwrites the mirrored fields of every personal copy linked to entry.
func (s *service) propagate(ctx context.Context, q store.Querier, entry *Photocard) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE photocards
		SET group_slug = ?, group_name = ?, album_slug = ?, album_name = ?, version = ?,
			member_slug = ?, member_name = ?, image_url = ?, rarity = ?, updated_at = ?
		WHERE catalog_id = ?
	`), entry.GroupSlug, entry.GroupName, entry.AlbumSlug, entry.AlbumName, entry.Version,
		entry.MemberSlug, entry.MemberName, entry.ImageURL, entry.Rarity, entry.UpdatedAt,
		entry.ID)
	if err != nil {
		return 0, fmt.Errorf("propagate catalog entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("propagate catalog entry: %w", err)
	}
	return n, nil
}

// propagateWishes rewrites the names and image of wishlist items linked to entry.
// Notes and priority belong to the wisher and are left alone.
func (s *service) propagateWishes(ctx context.Context, q store.Querier, entry *Photocard) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE wishlist_items
		SET group_slug = ?, group_name = ?, album_slug = ?, album_name = ?,
			member_slug = ?, member_name = ?, image_url = ?, updated_at = ?
		WHERE catalog_id = ?
	`), entry.GroupSlug, entry.GroupName, entry.AlbumSlug, entry.AlbumName,
		entry.MemberSlug, entry.MemberName, entry.ImageURL, entry.UpdatedAt,
		entry.ID)
	if err != nil {
		return 0, fmt.Errorf("propagate catalog entry to wishlist: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("propagate catalog entry to wishlist: %w", err)
	}
	return n, nil
}

// detach clears catalog_id on every row of table linked to id.
func (s *service) detach(ctx context.Context, q store.Querier, table string, id uuid.UUID, now store.Time) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`UPDATE `+table+` SET catalog_id = NULL, updated_at = ? WHERE catalog_id = ?`), now, id)
	if err != nil {
		return 0, fmt.Errorf("detach %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("detach %s: %w", table, err)
	}
	return n, nil
}
