package collection

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pocabinder/internal/apperr"
	"pocabinder/internal/catalog"
	"pocabinder/internal/eventstore"
	"pocabinder/internal/store"
)

type fixture struct {
	db         *sqlx.DB
	catalog    catalog.Service
	collection Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(context.Background(), store.Config{Driver: store.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cat := catalog.NewService(db, eventstore.New(), zap.NewNop())
	return &fixture{db: db, catalog: cat, collection: NewService(db, cat, zap.NewNop())}
}

func strPtr(s string) *string { return &s }

func (f *fixture) entry(t *testing.T, creatorID, member string) *catalog.Photocard {
	t.Helper()
	e, _, err := f.catalog.ResolveOrCreate(context.Background(), catalog.NewEntry{
		GroupName: "Bts", AlbumName: "Proof", MemberName: member, CreatorID: creatorID,
	})
	require.NoError(t, err)
	return e
}

func TestCreate_ManualCardIsUnlinked(t *testing.T) {
	f := setup(t)

	card, err := f.collection.Create(context.Background(), "user-a", NewPhotocard{
		GroupName: "le   sserafim", AlbumName: "antifragile", MemberName: "chaewon", Version: strPtr("Compact"),
	})
	require.NoError(t, err)

	assert.False(t, card.Linked())
	assert.Equal(t, SourceManual, card.Source)
	assert.Equal(t, "Le Sserafim", card.GroupName)
	assert.Equal(t, "le-sserafim", card.GroupSlug)
	assert.Equal(t, catalog.PlaceholderImageURL, card.ImageURL)
	assert.Equal(t, catalog.RarityCommon, card.Rarity)

	got, err := f.collection.Get(context.Background(), "user-a", card.ID)
	require.NoError(t, err)
	assert.Equal(t, "Compact", *got.Version)

	_, err = f.collection.Get(context.Background(), "user-b", card.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.collection.Create(context.Background(), "user-a", NewPhotocard{GroupName: "Bts", AlbumName: "Proof"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSubmitToCatalog_DoesNotTouchCollection(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	entry, err := f.collection.SubmitToCatalog(ctx, "user-a", NewPhotocard{GroupName: "bts", AlbumName: "proof", MemberName: "rm"})
	require.NoError(t, err)
	assert.Equal(t, "user-a", entry.AddedBy)

	cards, err := f.collection.List(ctx, "user-a", Filter{})
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestAddFromCatalog(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := f.entry(t, "user-creator", "Jungkook")

	card, err := f.collection.AddFromCatalog(ctx, "user-a", entry.ID)
	require.NoError(t, err)
	require.NotNil(t, card.CatalogID)
	assert.Equal(t, entry.ID, *card.CatalogID)
	assert.Equal(t, SourceCatalog, card.Source)
	assert.Equal(t, entry.MemberName, card.MemberName)
	assert.Equal(t, entry.ImageURL, card.ImageURL)

	_, err = f.collection.AddFromCatalog(ctx, "user-a", entry.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.collection.AddFromCatalog(ctx, "user-b", entry.ID)
	assert.NoError(t, err)

	_, err = f.collection.AddFromCatalog(ctx, "user-a", uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// deletingCatalog hands out an entry and then lets its creator delete it, the
// way a concurrent DeleteEntry can land between the read and the insert.
type deletingCatalog struct {
	catalog.Service
	creatorID string
}

func (c deletingCatalog) Get(ctx context.Context, id uuid.UUID) (*catalog.Photocard, error) {
	entry, err := c.Service.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Service.DeleteEntry(ctx, id, c.creatorID); err != nil {
		return nil, err
	}
	return entry, nil
}

func TestAddFromCatalog_EntryDeletedMeanwhile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := f.entry(t, "user-creator", "Jimin")

	svc := NewService(f.db, deletingCatalog{Service: f.catalog, creatorID: "user-creator"}, zap.NewNop())
	_, err := svc.AddFromCatalog(ctx, "user-a", entry.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	cards, err := f.collection.List(ctx, "user-a", Filter{})
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestUpdate_LinkedCopyByNonCreatorIsForbidden(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := f.entry(t, "user-creator", "Jungkook")

	card, err := f.collection.AddFromCatalog(ctx, "user-a", entry.ID)
	require.NoError(t, err)

	_, err = f.collection.Update(ctx, "user-a", card.ID, Changes{Changes: catalog.Changes{ImageURL: strPtr("/mine.png")}})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := f.collection.Get(ctx, "user-a", card.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.PlaceholderImageURL, got.ImageURL)
}

func TestUpdate_LinkedCopyByCreatorPropagates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := f.entry(t, "user-creator", "Jungkook")

	own, err := f.collection.AddFromCatalog(ctx, "user-creator", entry.ID)
	require.NoError(t, err)
	theirs, err := f.collection.AddFromCatalog(ctx, "user-a", entry.ID)
	require.NoError(t, err)

	updated, err := f.collection.Update(ctx, "user-creator", own.ID, Changes{Changes: catalog.Changes{ImageURL: strPtr("/official.png")}})
	require.NoError(t, err)
	assert.Equal(t, "/official.png", updated.ImageURL)

	other, err := f.collection.Get(ctx, "user-a", theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, "/official.png", other.ImageURL)

	canonical, err := f.catalog.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "/official.png", canonical.ImageURL)
}

func TestUpdate_UnlinkedEditAndAddToCatalog(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	card, err := f.collection.Create(ctx, "user-a", NewPhotocard{
		GroupName: "Bts", AlbumName: "Proof", MemberName: "Jk", ImageURL: "/scan.png",
	})
	require.NoError(t, err)

	edited, err := f.collection.Update(ctx, "user-a", card.ID, Changes{Changes: catalog.Changes{
		MemberName: strPtr("jungkook"),
		Version:    catalog.Some("Standard"),
	}})
	require.NoError(t, err)
	assert.Equal(t, "Jungkook", edited.MemberName)
	assert.False(t, edited.Linked())

	// Someone already catalogued this design with a different image.
	existing, _, err := f.catalog.ResolveOrCreate(ctx, catalog.NewEntry{
		GroupName: "Bts", AlbumName: "Proof", MemberName: "Jungkook", Version: strPtr("Standard"),
		ImageURL: "/catalog.png", CreatorID: "user-creator",
	})
	require.NoError(t, err)

	linked, err := f.collection.Update(ctx, "user-a", card.ID, Changes{AddToCatalog: true})
	require.NoError(t, err)
	require.True(t, linked.Linked())
	assert.Equal(t, existing.ID, *linked.CatalogID)
	assert.Equal(t, "/catalog.png", linked.ImageURL, "a linked copy mirrors the catalog entry")

	stored, err := f.collection.Get(ctx, "user-a", card.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, *stored.CatalogID)
}

func TestUpdate_AddToCatalogWhenAlreadyOwnedConflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := f.entry(t, "user-creator", "Jimin")

	_, err := f.collection.AddFromCatalog(ctx, "user-a", entry.ID)
	require.NoError(t, err)
	manual, err := f.collection.Create(ctx, "user-a", NewPhotocard{GroupName: "Bts", AlbumName: "Proof", MemberName: "Jimin"})
	require.NoError(t, err)

	_, err = f.collection.Update(ctx, "user-a", manual.ID, Changes{AddToCatalog: true})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCatalogDeleteLeavesCopiesStandalone(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := f.entry(t, "user-creator", "Suga")

	card, err := f.collection.AddFromCatalog(ctx, "user-a", entry.ID)
	require.NoError(t, err)
	require.NoError(t, f.catalog.DeleteEntry(ctx, entry.ID, "user-creator"))

	got, err := f.collection.Get(ctx, "user-a", card.ID)
	require.NoError(t, err)
	assert.False(t, got.Linked())
	assert.Equal(t, "Suga", got.MemberName)

	// Unlinked again, the owner may now edit it freely.
	_, err = f.collection.Update(ctx, "user-a", card.ID, Changes{Changes: catalog.Changes{ImageURL: strPtr("/mine.png")}})
	assert.NoError(t, err)
}

func TestDelete_ClearsBinderSlot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	card, err := f.collection.Create(ctx, "user-a", NewPhotocard{GroupName: "Ive", AlbumName: "Eleven", MemberName: "Yujin"})
	require.NoError(t, err)

	now := store.Now()
	binderID, pageID, slotID := uuid.New(), uuid.New(), uuid.New()
	_, err = f.db.Exec(`INSERT INTO binders (id, user_id, name, primary_color, secondary_color, accent_color, created_at, updated_at)
		VALUES (?, 'user-a', 'B', '#FFB6C1', '#E6E6FA', '#FFD700', ?, ?)`, binderID, now, now)
	require.NoError(t, err)
	_, err = f.db.Exec(`INSERT INTO binder_pages (id, binder_id, page_index, page_type, created_at, updated_at) VALUES (?, ?, 2, 'normal', ?, ?)`, pageID, binderID, now, now)
	require.NoError(t, err)
	_, err = f.db.Exec(`INSERT INTO binder_slots (id, page_id, slot_index, photocard_id, created_at, updated_at) VALUES (?, ?, 0, ?, ?, ?)`, slotID, pageID, card.ID, now, now)
	require.NoError(t, err)

	assert.ErrorIs(t, f.collection.Delete(ctx, "user-b", card.ID), apperr.ErrNotFound)
	require.NoError(t, f.collection.Delete(ctx, "user-a", card.ID))

	var slotCard uuid.NullUUID
	require.NoError(t, f.db.Get(&slotCard, `SELECT photocard_id FROM binder_slots WHERE id = ?`, slotID))
	assert.False(t, slotCard.Valid)

	_, err = f.collection.Get(ctx, "user-a", card.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListAndStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, in := range []NewPhotocard{
		{GroupName: "Bts", AlbumName: "Proof", MemberName: "Jin"},
		{GroupName: "Bts", AlbumName: "Butter", MemberName: "V"},
		{GroupName: "Ive", AlbumName: "Eleven", MemberName: "Rei"},
	} {
		_, err := f.collection.Create(ctx, "user-a", in)
		require.NoError(t, err)
	}
	_, err := f.collection.Create(ctx, "user-b", NewPhotocard{GroupName: "Ive", AlbumName: "Eleven", MemberName: "Liz"})
	require.NoError(t, err)

	now := store.Now()
	_, err = f.db.Exec(`INSERT INTO wishlist_items (id, user_id, group_slug, group_name, album_slug, member_slug, member_name, created_at, updated_at)
		VALUES (?, 'user-a', 'ive', 'Ive', 'eleven', 'wonyoung', 'Wonyoung', ?, ?)`, uuid.New(), now, now)
	require.NoError(t, err)

	bts, err := f.collection.List(ctx, "user-a", Filter{GroupSlug: "bts"})
	require.NoError(t, err)
	assert.Len(t, bts, 2)

	rei, err := f.collection.List(ctx, "user-a", Filter{MemberSlug: "rei"})
	require.NoError(t, err)
	require.Len(t, rei, 1)
	assert.Equal(t, "Rei", rei[0].MemberName)

	stats, err := f.collection.Stats(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalPhotocards)
	assert.Equal(t, 1, stats.TotalWishlist)
	assert.Equal(t, []GroupCount{
		{GroupSlug: "bts", GroupName: "Bts", Count: 2},
		{GroupSlug: "ive", GroupName: "Ive", Count: 1},
	}, stats.ByGroup)

	empty, err := f.collection.Stats(ctx, "user-nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalPhotocards)
	assert.NotNil(t, empty.ByGroup)
}

func TestGetMany_ScopedToUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	mine, err := f.collection.Create(ctx, "user-a", NewPhotocard{GroupName: "ive", AlbumName: "eleven", MemberName: "rei"})
	require.NoError(t, err)
	theirs, err := f.collection.Create(ctx, "user-b", NewPhotocard{GroupName: "ive", AlbumName: "eleven", MemberName: "liz"})
	require.NoError(t, err)

	got, err := f.collection.GetMany(ctx, "user-a", []uuid.UUID{mine.ID, theirs.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Rei", got[mine.ID].MemberName)

	empty, err := f.collection.GetMany(ctx, "user-a", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
