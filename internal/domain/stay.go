package domain

import "time"

// DateLayout is the single canonical date format for all core operations.
const DateLayout = "2006-01-02"

// Stay is a half-open [Start, End) date interval. A checkout morning and
// a checkin morning on the same day do not conflict.
type Stay struct {
	Start time.Time
	End   time.Time
}

// NewStay validates that end is strictly after start.
func NewStay(start, end time.Time) (Stay, error) {
	if !end.After(start) {
		return Stay{}, invalid("end_date", end.Format(DateLayout), "must be after start_date")
	}
	return Stay{Start: start, End: end}, nil
}

// ParseDate parses a YYYY-MM-DD string; field names the input for error context.
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, invalid(field, s, "expected YYYY-MM-DD")
	}
	return t, nil
}

// ParseStay parses and validates a start/end date pair.
func ParseStay(start, end string) (Stay, error) {
	s, err := ParseDate("start_date", start)
	if err != nil {
		return Stay{}, err
	}
	e, err := ParseDate("end_date", end)
	if err != nil {
		return Stay{}, err
	}
	return NewStay(s, e)
}

// Overlaps reports whether two stays share at least one night.
// Touching endpoints are not a conflict.
func (s Stay) Overlaps(o Stay) bool {
	return s.Start.Before(o.End) && s.End.After(o.Start)
}

func (s Stay) Nights() int {
	return int(s.End.Sub(s.Start).Hours() / 24)
}

func (s Stay) StartString() string { return s.Start.Format(DateLayout) }
func (s Stay) EndString() string   { return s.End.Format(DateLayout) }
