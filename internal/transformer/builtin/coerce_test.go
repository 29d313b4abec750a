package builtin

import (
	"errors"
	"testing"
	"time"
)

func sp(s string) *string { return &s }

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		name string
		in   *string
		want string // RFC3339, or "" for nil
	}{
		{"olist layout", sp("2017-10-02 10:56:33"), "2017-10-02T10:56:33Z"},
		{"iso T", sp("2018-01-01T00:00:00"), "2018-01-01T00:00:00Z"},
		{"rfc3339 offset", sp("2018-01-01T02:00:00+02:00"), "2018-01-01T00:00:00Z"},
		{"date only", sp("2018-03-04"), "2018-03-04T00:00:00Z"},
		{"surrounding space", sp("  2018-03-04  "), "2018-03-04T00:00:00Z"},
		{"nil", nil, ""},
		{"blank", sp("   "), ""},
		{"garbage", sp("not a date"), ""},
		{"impossible date", sp("2018-02-30 10:00:00"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTimestamp(tc.in)
			if tc.want == "" {
				if got != nil {
					t.Fatalf("ParseTimestamp = %v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseTimestamp = nil, want %s", tc.want)
			}
			if s := got.Format(time.RFC3339); s != tc.want {
				t.Fatalf("ParseTimestamp = %s, want %s", s, tc.want)
			}
		})
	}
}

func TestParseFloat(t *testing.T) {
	if f, err := ParseFloat(sp(" 29.99 ")); err != nil || f != 29.99 {
		t.Fatalf("ParseFloat = %v, %v; want 29.99", f, err)
	}
	for _, bad := range []*string{nil, sp(""), sp("abc"), sp("NaN"), sp("1,5")} {
		if _, err := ParseFloat(bad); !errors.Is(err, ErrNotNumeric) {
			t.Fatalf("ParseFloat(%v) err = %v, want ErrNotNumeric", bad, err)
		}
	}
}

func TestParseInt(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"3", 3},
		{"3.0", 3},
		{" 12 ", 12},
		{"-1", -1},
	}
	for _, tc := range cases {
		got, err := ParseInt(sp(tc.in))
		if err != nil || got != tc.want {
			t.Fatalf("ParseInt(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}
	for _, bad := range []*string{nil, sp(""), sp("3.5"), sp("x")} {
		if _, err := ParseInt(bad); !errors.Is(err, ErrNotNumeric) {
			t.Fatalf("ParseInt(%v) err = %v, want ErrNotNumeric", bad, err)
		}
	}
}
