package eventstore

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocabinder/internal/store"
)

type testPayload struct {
	Message string `json:"message"`
}

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := store.Open(context.Background(), store.Config{Driver: store.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func mustEvent(t *testing.T, eventType, msg string) Event {
	t.Helper()
	e, err := NewEvent(eventType, testPayload{Message: msg}, map[string]any{"actor": "user-1"})
	require.NoError(t, err)
	return e
}

func TestAppendAndLoad(t *testing.T) {
	db := setupTestDB(t)
	es := New()
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, es.Append(ctx, db, id, "catalog_entry", 0, []Event{
		mustEvent(t, "Added", "one"),
		mustEvent(t, "Updated", "two"),
	}))

	events, err := es.Load(ctx, db, id, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, 1, events[0].Version)
	assert.Equal(t, 2, events[1].Version)
	assert.Equal(t, "Added", events[0].EventType)
	assert.Equal(t, id, events[1].AggregateID)
	assert.Equal(t, "user-1", events[0].Metadata["actor"])

	var p testPayload
	require.NoError(t, json.Unmarshal(events[1].Data, &p))
	assert.Equal(t, "two", p.Message)

	version, err := es.CurrentVersion(ctx, db, id)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	ranged, err := es.Load(ctx, db, id, 2, 2)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "Updated", ranged[0].EventType)
}

func TestAppend_StaleVersionConflicts(t *testing.T) {
	db := setupTestDB(t)
	es := New()
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, es.Append(ctx, db, id, "catalog_entry", 0, []Event{mustEvent(t, "Added", "one")}))

	err := es.Append(ctx, db, id, "catalog_entry", 0, []Event{mustEvent(t, "Added", "again")})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)

	err = es.Append(ctx, db, id, "catalog_entry", 1, nil)
	assert.ErrorIs(t, err, ErrNoEvents)
}

func TestAppend_InsideRolledBackTxLeavesNothing(t *testing.T) {
	db := setupTestDB(t)
	es := New()
	ctx := context.Background()
	id := uuid.New()

	err := store.WithTx(ctx, db, "test", func(tx *sqlx.Tx) error {
		if err := es.Append(ctx, tx, id, "catalog_entry", 0, []Event{mustEvent(t, "Added", "one")}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	version, err := es.CurrentVersion(ctx, db, id)
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestAppend_ConcurrentWritersOneWins(t *testing.T) {
	db := setupTestDB(t)
	es := New()
	ctx := context.Background()
	id := uuid.New()

	ev := mustEvent(t, "Added", "racer")
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.WithTx(ctx, db, "race", func(tx *sqlx.Tx) error {
				return es.Append(ctx, tx, id, "catalog_entry", 0, []Event{ev})
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrConcurrencyConflict)
	}
	assert.Equal(t, 1, wins)
}

func TestStream(t *testing.T) {
	db := setupTestDB(t)
	es := New()
	ctx := context.Background()

	a, b := uuid.New(), uuid.New()
	require.NoError(t, es.Append(ctx, db, a, "catalog_entry", 0, []Event{mustEvent(t, "Added", "a1")}))
	require.NoError(t, es.Append(ctx, db, b, "catalog_entry", 0, []Event{mustEvent(t, "Added", "b1")}))
	require.NoError(t, es.Append(ctx, db, a, "catalog_entry", 1, []Event{mustEvent(t, "Updated", "a2")}))

	first, err := es.Stream(ctx, db, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, a, first[0].AggregateID)
	assert.Equal(t, b, first[1].AggregateID)

	rest, err := es.Stream(ctx, db, first[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "Updated", rest[0].EventType)
}
