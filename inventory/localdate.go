package inventory

import (
	"fmt"
	"strings"
	"time"

	_ "time/tzdata"
)

// =============================================================================
// LOCAL DATE - Calendar day in the store's fixed time zone
// =============================================================================

// DefaultStoreZone is used when no zone is configured.
const DefaultStoreZone = "America/Phoenix"

const localDateLayout = "2006-01-02"

// LocalDate is a civil calendar date. It carries no zone; a StoreClock
// maps it to a UTC window.
type LocalDate struct {
	Time time.Time // midnight UTC of the civil date
}

func NewLocalDate(year int, month time.Month, day int) LocalDate {
	return LocalDate{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseLocalDate accepts YYYY-MM-DD or MM/DD/YYYY.
func ParseLocalDate(s string) (LocalDate, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{localDateLayout, "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return LocalDate{Time: t}, nil
		}
	}
	return LocalDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d LocalDate) String() string { return d.Time.Format(localDateLayout) }

// USString formats the date as MM/DD/YYYY for printed sheets.
func (d LocalDate) USString() string { return d.Time.Format("01/02/2006") }

func (d LocalDate) IsZero() bool                 { return d.Time.IsZero() }
func (d LocalDate) Before(other LocalDate) bool  { return d.Time.Before(other.Time) }
func (d LocalDate) After(other LocalDate) bool   { return d.Time.After(other.Time) }
func (d LocalDate) Equal(other LocalDate) bool   { return d.Time.Equal(other.Time) }
func (d LocalDate) AddDays(n int) LocalDate      { return LocalDate{Time: d.Time.AddDate(0, 0, n)} }
func (d LocalDate) Weekday() time.Weekday        { return d.Time.Weekday() }
func (d LocalDate) Month() time.Month            { return d.Time.Month() }

// =============================================================================
// STORE CLOCK
// =============================================================================

// StoreClock converts between UTC instants and store-local dates.
type StoreClock struct {
	loc *time.Location
	now func() time.Time
}

// NewStoreClock loads a named IANA zone. Day boundaries follow that zone,
// never UTC truncation.
func NewStoreClock(zone string) (*StoreClock, error) {
	if zone == "" {
		zone = DefaultStoreZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load store zone %q: %w", zone, err)
	}
	return &StoreClock{loc: loc, now: time.Now}, nil
}

// WithNow returns a copy of the clock that reads time from fn.
func (c *StoreClock) WithNow(fn func() time.Time) *StoreClock {
	return &StoreClock{loc: c.loc, now: fn}
}

func (c *StoreClock) Location() *time.Location { return c.loc }

// Now returns the current instant in UTC.
func (c *StoreClock) Now() time.Time { return c.now().UTC() }

// Today returns the current store-local date.
func (c *StoreClock) Today() LocalDate { return c.DateOf(c.now()) }

// DateOf returns the store-local date of an instant.
func (c *StoreClock) DateOf(t time.Time) LocalDate {
	l := t.In(c.loc)
	return NewLocalDate(l.Year(), l.Month(), l.Day())
}

// DayBounds returns the UTC half-open window [start, end) covering d.
func (c *StoreClock) DayBounds(d LocalDate) (time.Time, time.Time) {
	start := time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, c.loc)
	end := time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day()+1, 0, 0, 0, 0, c.loc)
	return start.UTC(), end.UTC()
}
