package daterange

import (
	"errors"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrEmptyRange   = errors.New("start must be before end")
	ErrRangeTooLong = errors.New("range too long")
)

// FieldError ties a parse failure to the query field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// Field names the input a Parse error refers to. Range-level errors are
// reported against startDate.
func Field(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return "startDate"
}

// Range is the half-open interval [Start, End).
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Days returns the UTC midnights of every day touched by the range.
func (r Range) Days() []time.Time {
	var out []time.Time
	day := truncateDay(r.Start)
	for day.Before(r.End) {
		out = append(out, day)
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// Options controls defaults and limits for Parse.
type Options struct {
	Now         time.Time
	DefaultSpan time.Duration
	MaxSpan     time.Duration
}

// Parse reads startDate and endDate values given as YYYY-MM-DD or RFC3339.
// A date-only end includes that whole day. A missing end means the end of
// the current UTC day; a missing start means end minus DefaultSpan.
func Parse(startRaw, endRaw string, opts Options) (Range, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	end := truncateDay(now).AddDate(0, 0, 1)
	if strings.TrimSpace(endRaw) != "" {
		t, dateOnly, err := parseOne(endRaw)
		if err != nil {
			return Range{}, &FieldError{Field: "endDate", Err: err}
		}
		end = t
		if dateOnly {
			end = t.AddDate(0, 0, 1)
		}
	}

	var start time.Time
	if strings.TrimSpace(startRaw) != "" {
		t, _, err := parseOne(startRaw)
		if err != nil {
			return Range{}, &FieldError{Field: "startDate", Err: err}
		}
		start = t
	} else {
		span := opts.DefaultSpan
		if span <= 0 {
			span = 30 * 24 * time.Hour
		}
		start = end.Add(-span)
	}

	if !start.Before(end) {
		return Range{}, ErrEmptyRange
	}
	if opts.MaxSpan > 0 && end.Sub(start) > opts.MaxSpan {
		return Range{}, ErrRangeTooLong
	}
	return Range{Start: start, End: end}, nil
}

// LastDays returns [midnight of now-(days-1), midnight after now).
func LastDays(now time.Time, days int) Range {
	if days <= 0 {
		days = 1
	}
	end := truncateDay(now.UTC()).AddDate(0, 0, 1)
	return Range{Start: end.AddDate(0, 0, -days), End: end}
}

func parseOne(raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), true, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, ErrInvalidDate
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
