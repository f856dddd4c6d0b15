package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/tasksync/pkg/model"
)

// DefaultZone is the canonical zone used when none is configured (GMT+8).
const DefaultZone = "+08:00"

// naiveLayouts are accepted for datetimes that carry no offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Zones is the single place where timestamps are converted. Canonical is the
// zone every stored timestamp is expressed in; Local is assumed for datetimes
// that arrive without an offset.
type Zones struct {
	Canonical *time.Location
	Local     *time.Location
}

// NewZones resolves the configured zone names. An empty local zone falls back
// to the canonical one.
func NewZones(canonical, local string) (Zones, error) {
	if canonical == "" {
		canonical = DefaultZone
	}
	c, err := LoadZone(canonical)
	if err != nil {
		return Zones{}, err
	}
	l := c
	if local != "" {
		if l, err = LoadZone(local); err != nil {
			return Zones{}, err
		}
	}
	return Zones{Canonical: c, Local: l}, nil
}

// LoadZone accepts "UTC", an IANA name or a fixed offset such as "+08:00".
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "+") || strings.HasPrefix(name, "-") {
		t, err := time.Parse("-07:00", name)
		if err != nil {
			return nil, fmt.Errorf("invalid zone offset '%s': %w", name, err)
		}
		_, offset := t.Zone()
		return time.FixedZone("UTC"+name, offset), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid zone '%s': %w", name, err)
	}
	return loc, nil
}

// Now returns the current time in the canonical zone.
func (z Zones) Now() time.Time {
	return z.In(time.Now())
}

// In converts t to the canonical zone.
func (z Zones) In(t time.Time) time.Time {
	if z.Canonical == nil {
		return t
	}
	return t.In(z.Canonical)
}

// ParseDue decodes a due value received from a remote. A bare date stays
// date-only and zone-free. A datetime loses sub-second precision and is moved
// into the canonical zone; without an offset it is read in the local zone.
func (z Zones) ParseDue(s string) (*model.Due, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if len(s) == len(model.DateLayout) {
		return model.ParseDue(s)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return model.NewDateTime(z.In(t)), nil
	}
	local := z.Local
	if local == nil {
		local = time.UTC
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, local); err == nil {
			return model.NewDateTime(z.In(t)), nil
		}
	}
	return nil, fmt.Errorf("unrecognized due value '%s'", s)
}

// FormatDate renders the calendar day of d.
func FormatDate(d *model.Due) string {
	return d.Time.Format(model.DateLayout)
}

// FormatDateTime renders d with its full offset, in the canonical zone.
func (z Zones) FormatDateTime(d *model.Due) string {
	return z.In(d.Time).Format(time.RFC3339)
}
