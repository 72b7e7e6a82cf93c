// Package times renders the timestamps stored for clients.
package times

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the format of every stored timestamp
const Layout = time.RFC3339

// Clock produces timestamps in a fixed location
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a clock rendering in loc, or the local zone when loc is nil
func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.Local
	}
	return &Clock{loc: loc, now: time.Now}
}

// NewClockFromOffset builds a clock from a "+HH:MM" offset; empty means local time
func NewClockFromOffset(offset string) (*Clock, error) {
	if offset == "" {
		return NewClock(nil), nil
	}
	loc, err := ParseUTCOffset(offset)
	if err != nil {
		return nil, err
	}
	return NewClock(loc), nil
}

// Now returns the current time in the clock's location
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Format renders t in the clock's location
func (c *Clock) Format(t time.Time) string {
	return t.In(c.loc).Format(Layout)
}

// NowString is Format(Now())
func (c *Clock) NowString() string {
	return c.Format(c.Now())
}

// Location returns the clock's location
func (c *Clock) Location() *time.Location {
	return c.loc
}

// ParseUTCOffset parses "+HH:MM" or "-HH:MM" into a fixed zone
func ParseUTCOffset(offset string) (*time.Location, error) {
	if len(offset) != 6 || (offset[0] != '+' && offset[0] != '-') || offset[3] != ':' {
		return nil, fmt.Errorf("invalid utc offset %q: expected +HH:MM", offset)
	}

	hours, err := strconv.Atoi(offset[1:3])
	if err != nil || hours > 14 {
		return nil, fmt.Errorf("invalid utc offset %q: bad hours", offset)
	}
	minutes, err := strconv.Atoi(offset[4:6])
	if err != nil || minutes > 59 {
		return nil, fmt.Errorf("invalid utc offset %q: bad minutes", offset)
	}

	secs := hours*3600 + minutes*60
	if offset[0] == '-' {
		secs = -secs
	}
	return time.FixedZone("UTC"+strings.TrimSuffix(offset, ":00"), secs), nil
}
