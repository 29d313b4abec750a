// Package builtin holds the value-level coercions shared by the
// denormalizer and the document builder.
package builtin

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrNotNumeric is wrapped by ParseFloat and ParseInt failures.
var ErrNotNumeric = errors.New("not numeric")

// TimestampLayouts are tried in order by ParseTimestamp. The first entry is
// the layout of the Olist extracts.
var TimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ParseTimestamp parses v with the first matching layout. Absent, blank or
// unparseable input yields nil, never an error. Layouts without a zone are
// read as UTC.
func ParseTimestamp(v *string) *time.Time {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	for _, layout := range TimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// ParseFloat converts v to float64. Null, blank, NaN and non-numeric input
// are errors wrapping ErrNotNumeric.
func ParseFloat(v *string) (float64, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return 0, fmt.Errorf("empty value: %w", ErrNotNumeric)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(*v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q: %w", *v, ErrNotNumeric)
	}
	return f, nil
}

// ParseInt converts v to int. Integral floats such as "3.0" are accepted,
// "3.5" is not.
func ParseInt(v *string) (int, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return 0, fmt.Errorf("empty value: %w", ErrNotNumeric)
	}
	s := strings.TrimSpace(*v)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%q: %w", *v, ErrNotNumeric)
	}
	return int(f), nil
}
