package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// TimeFormat is how times are stored: UTC, fixed width, so that text
// comparison in SQL orders the same way as time comparison
const TimeFormat = "2006-01-02T15:04:05.000000000Z"

// FormatTime converts t to its stored form
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// marshal converts parameters to their stored form:
// bool -> 0/1, time.Time -> TimeFormat text, nil *time.Time -> NULL
func marshal(args []any) []any {
	if len(args) == 0 {
		return args
	}

	out := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case bool:
			if v {
				out[i] = 1
			} else {
				out[i] = 0
			}
		case time.Time:
			out[i] = FormatTime(v)
		case *time.Time:
			if v == nil {
				out[i] = nil
			} else {
				out[i] = FormatTime(*v)
			}
		case *string:
			if v == nil {
				out[i] = nil
			} else {
				out[i] = *v
			}
		default:
			out[i] = arg
		}
	}
	return out
}

// Time returns a scan destination that decodes a NOT NULL time column into dst
func Time(dst *time.Time) sql.Scanner {
	return timeScanner{dst: dst}
}

// NullTime returns a scan destination that decodes a nullable time column
// into dst, NULL becomes a nil pointer
func NullTime(dst **time.Time) sql.Scanner {
	return nullTimeScanner{dst: dst}
}

type timeScanner struct {
	dst *time.Time
}

func (s timeScanner) Scan(src any) error {
	if src == nil {
		return fmt.Errorf("cannot scan NULL into time.Time")
	}
	t, err := parseTime(src)
	if err != nil {
		return err
	}
	*s.dst = t
	return nil
}

type nullTimeScanner struct {
	dst **time.Time
}

func (s nullTimeScanner) Scan(src any) error {
	if src == nil {
		*s.dst = nil
		return nil
	}
	t, err := parseTime(src)
	if err != nil {
		return err
	}
	*s.dst = &t
	return nil
}

func parseTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseTimeText(v)
	case []byte:
		return parseTimeText(string(v))
	default:
		return time.Time{}, fmt.Errorf("cannot scan %T into time.Time", src)
	}
}

func parseTimeText(s string) (time.Time, error) {
	t, err := time.Parse(TimeFormat, s)
	if err == nil {
		return t, nil
	}
	// rows written by hand or by older builds
	t, err = time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
