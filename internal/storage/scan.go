package storage

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// timeLayout is fixed width so TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timeValue scans timestamps stored as TEXT (SQLite) or TIMESTAMPTZ (Postgres).
type timeValue struct {
	time.Time
}

func (v *timeValue) Scan(src any) error {
	switch x := src.(type) {
	case time.Time:
		v.Time = x.UTC()
		return nil
	case string:
		return v.parse(x)
	case []byte:
		return v.parse(string(x))
	case nil:
		v.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (v *timeValue) parse(s string) error {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			v.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}

// dateValue scans dates stored as TEXT (SQLite) or DATE (Postgres).
type dateValue struct {
	core.Date
}

func (v *dateValue) Scan(src any) error {
	switch x := src.(type) {
	case time.Time:
		v.Date = core.NewDate(x.Year(), x.Month(), x.Day())
		return nil
	case string:
		return v.parse(x)
	case []byte:
		return v.parse(string(x))
	default:
		return fmt.Errorf("unsupported date type %T", src)
	}
}

func (v *dateValue) parse(s string) error {
	d, err := core.ParseDate(s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	v.Date = d
	return nil
}
