// Package eventstore records the audit trail of catalog changes as an
// append-only, per-aggregate versioned event log.
//
// Events are appended through the caller's transaction so that the log and
// the state change it describes commit together.
package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pocabinder/internal/store"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrNoEvents            = errors.New("no events to append")
)

// Event is one entry of an aggregate's log.
type Event struct {
	ID            int64           `json:"id"`
	AggregateID   uuid.UUID       `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	EventType     string          `json:"eventType"`
	Data          json.RawMessage `json:"data"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	Version       int             `json:"version"`
	CreatedAt     store.Time      `json:"createdAt"`
}

// NewEvent marshals payload into an event ready for Append.
func NewEvent(eventType string, payload any, metadata map[string]any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{EventType: eventType, Data: data, Metadata: metadata}, nil
}

// eventRow mirrors the events table; JSON columns travel as text.
type eventRow struct {
	ID            int64          `db:"id"`
	AggregateID   string         `db:"aggregate_id"`
	AggregateType string         `db:"aggregate_type"`
	EventType     string         `db:"event_type"`
	Data          string         `db:"event_data"`
	Metadata      sql.NullString `db:"metadata"`
	Version       int            `db:"version"`
	CreatedAt     store.Time     `db:"created_at"`
}

func (r eventRow) event() (Event, error) {
	id, err := uuid.Parse(r.AggregateID)
	if err != nil {
		return Event{}, fmt.Errorf("parse aggregate id %q: %w", r.AggregateID, err)
	}
	e := Event{
		ID:            r.ID,
		AggregateID:   id,
		AggregateType: r.AggregateType,
		EventType:     r.EventType,
		Data:          json.RawMessage(r.Data),
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
	}
	if r.Metadata.Valid && r.Metadata.String != "" {
		if err := json.Unmarshal([]byte(r.Metadata.String), &e.Metadata); err != nil {
			return Event{}, fmt.Errorf("decode metadata of event %d: %w", r.ID, err)
		}
	}
	return e, nil
}

// EventStore appends to and reads from the events table.
type EventStore struct {
	tracer trace.Tracer
}

func New() *EventStore {
	return &EventStore{tracer: otel.Tracer("pocabinder/eventstore")}
}

// Append writes events for aggregateID with versions expectedVersion+1,
// expectedVersion+2, ... using q, which is normally an open transaction.
func (es *EventStore) Append(ctx context.Context, q store.Querier, aggregateID uuid.UUID, aggregateType string, expectedVersion int, events []Event) error {
	ctx, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if len(events) == 0 {
		return ErrNoEvents
	}

	currentVersion, err := es.currentVersion(ctx, q, aggregateID)
	if err != nil {
		return err
	}
	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	insert := q.Rebind(`
		INSERT INTO events (aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	for i, event := range events {
		version := expectedVersion + i + 1

		var metadata sql.NullString
		if len(event.Metadata) > 0 {
			raw, err := json.Marshal(event.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata of event %d: %w", i, err)
			}
			metadata = sql.NullString{String: string(raw), Valid: true}
		}

		_, err := q.ExecContext(ctx, insert,
			aggregateID.String(),
			aggregateType,
			event.EventType,
			string(event.Data),
			metadata,
			version,
			store.Now(),
		)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return ErrConcurrencyConflict
			}
			return fmt.Errorf("insert event %d: %w", i, err)
		}

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.Int("event.version", version),
			attribute.String("event.type", event.EventType),
		))
	}

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// Load returns the events of aggregateID from fromVersion on, up to
// toVersion when it is positive, oldest first.
func (es *EventStore) Load(ctx context.Context, q store.Querier, aggregateID uuid.UUID, fromVersion, toVersion int) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	query := `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at
		FROM events
		WHERE aggregate_id = ?
		AND version >= ?
	`
	args := []any{aggregateID.String(), fromVersion}

	if toVersion > 0 {
		query += " AND version <= ?"
		args = append(args, toVersion)
	}
	query += " ORDER BY version ASC"

	events, err := es.query(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// Stream returns up to batchSize events with an id greater than fromID, in
// commit order, for feeds that follow the whole log.
func (es *EventStore) Stream(ctx context.Context, q store.Querier, fromID int64, batchSize int) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.stream",
		trace.WithAttributes(
			attribute.Int64("from.id", fromID),
			attribute.Int("batch.size", batchSize),
		),
	)
	defer span.End()

	events, err := es.query(ctx, q, `
		SELECT id, aggregate_id, aggregate_type, event_type, event_data, metadata, version, created_at
		FROM events
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?
	`, fromID, batchSize)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("events.streamed", len(events)))
	return events, nil
}

// CurrentVersion returns the latest version recorded for aggregateID, 0 if none.
func (es *EventStore) CurrentVersion(ctx context.Context, q store.Querier, aggregateID uuid.UUID) (int, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.get_version",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	version, err := es.currentVersion(ctx, q, aggregateID)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("current.version", version))
	return version, nil
}

func (es *EventStore) currentVersion(ctx context.Context, q store.Querier, aggregateID uuid.UUID) (int, error) {
	var version int
	err := sqlx.GetContext(ctx, q, &version, q.Rebind(`
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE aggregate_id = ?
	`), aggregateID.String())
	if err != nil {
		return 0, fmt.Errorf("query current version: %w", err)
	}
	return version, nil
}

func (es *EventStore) query(ctx context.Context, q store.Querier, query string, args ...any) ([]Event, error) {
	var rows []eventRow
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.event()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
