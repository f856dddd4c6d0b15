package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is used for date-only due values. They carry no zone.
	DateLayout = "2006-01-02"
	// DateTimeLayout is used for due values with a time of day.
	DateTimeLayout = time.RFC3339
)

// Due is a task due date. A date-only value keeps HasTime false and stores the
// calendar day at midnight UTC; a value with a time keeps its offset.
type Due struct {
	Time    time.Time
	HasTime bool
}

// NewDate returns a date-only due value.
func NewDate(year int, month time.Month, day int) *Due {
	return &Due{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// NewDateTime returns a due value with a time of day. Sub-second precision is
// dropped.
func NewDateTime(t time.Time) *Due {
	return &Due{Time: t.Truncate(time.Second), HasTime: true}
}

// String renders the value the way it is stored on disk.
func (d Due) String() string {
	if !d.HasTime {
		return d.Time.Format(DateLayout)
	}
	return d.Time.Format(DateTimeLayout)
}

// ParseDue parses a stored due value: either a bare date or an RFC 3339
// timestamp with an explicit offset.
func ParseDue(s string) (*Due, error) {
	s = strings.TrimSpace(s)
	if len(s) == len(DateLayout) {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse due date '%s': %w", s, err)
		}
		return &Due{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse due datetime '%s': %w", s, err)
	}
	return NewDateTime(t), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface for Due.
func (d *Due) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDue(s)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Due.
func (d Due) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// EqualDue compares two optional due values by their stored representation,
// so a date-only value never equals a midnight datetime.
func EqualDue(a, b *Due) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}
