package store

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// timeLayout is fixed-width so text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Time is a UTC timestamp that round-trips through both drivers: Postgres
// hands back time.Time, SQLite hands back the stored text.
type Time struct {
	time.Time
}

// Now returns the current time in UTC, truncated to microseconds to match
// Postgres precision.
func Now() Time {
	return Time{time.Now().UTC().Truncate(time.Microsecond)}
}

func (t Time) Value() (driver.Value, error) {
	return t.UTC().Format(timeLayout), nil
}

func (t *Time) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("store.Time: cannot scan %T", src)
	}
}

func (t *Time) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("store.Time: %w", err)
	}
	t.Time = parsed.UTC()
	return nil
}
