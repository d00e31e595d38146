// Package temporal converts loosely-formatted date and time expressions
// into unambiguous UTC instants against a fixed local-zone convention.
package temporal

import (
	"fmt"
	"strings"
	"time"

	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
)

// DefaultZone is the reference local zone when none is configured. Its
// offset is -6 during the daylight period and -7 otherwise.
const DefaultZone = "America/Denver"

// Normalizer resolves date/time expressions in a single named zone using
// the zone's published transition rules.
type Normalizer struct {
	loc *time.Location
}

// New returns a Normalizer for the given zone. A nil location falls back
// to UTC.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc}
}

// Location returns the normalizer's local zone.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Resolved is an unambiguous point produced from a date/time expression
// pair. An empty time expression denotes an all-day point: Start is UTC
// midnight of the calendar date and carries no time-of-day.
type Resolved struct {
	Start  time.Time
	AllDay bool
}

// Resolve turns a date expression plus an optional time-of-day expression
// into a UTC instant. Relative dates resolve against the injected now,
// never the system clock, so "tomorrow" is reproducible in tests.
//
// The zone offset in effect at local midnight of the resolved date is
// applied to every time on that date. On a transition date this means all
// times share the pre-transition offset; a documented policy that avoids
// mixing offsets within a single day.
func (n *Normalizer) Resolve(now time.Time, dateExpr, timeExpr string) (Resolved, error) {
	year, month, day, err := n.resolveDate(now, dateExpr)
	if err != nil {
		return Resolved{}, err
	}

	if strings.TrimSpace(timeExpr) == "" {
		// All-day: a calendar date without time-of-day.
		return Resolved{
			Start:  time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
			AllDay: true,
		}, nil
	}

	clock, err := NormalizeClock(timeExpr)
	if err != nil {
		return Resolved{}, err
	}
	hour, min := mustSplitClock(clock)

	midnight := time.Date(year, month, day, 0, 0, 0, 0, n.loc)
	_, offset := midnight.Zone()

	utc := time.Date(year, month, day, hour, min, 0, 0, time.UTC).
		Add(-time.Duration(offset) * time.Second)
	return Resolved{Start: utc}, nil
}

// ToLocal converts a UTC instant back to the local wall clock using the
// offset in effect at local midnight of the local date, the inverse of
// Resolve for non-all-day points.
func (n *Normalizer) ToLocal(utc time.Time) time.Time {
	local := utc.In(n.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, n.loc)
	_, offset := midnight.Zone()
	return utc.Add(time.Duration(offset) * time.Second).UTC()
}

// resolveDate resolves a date expression to a calendar date. Supported
// forms: "today", "tomorrow", "yesterday", "next week", weekday names
// (next occurrence), "2006-01-02" and "01/02/2006".
func (n *Normalizer) resolveDate(now time.Time, expr string) (int, time.Month, int, error) {
	local := now.In(n.loc)
	trimmed := strings.TrimSpace(strings.ToLower(expr))

	switch trimmed {
	case "", "today":
		return local.Year(), local.Month(), local.Day(), nil
	case "tomorrow":
		t := local.AddDate(0, 0, 1)
		return t.Year(), t.Month(), t.Day(), nil
	case "yesterday":
		t := local.AddDate(0, 0, -1)
		return t.Year(), t.Month(), t.Day(), nil
	case "next week":
		t := local.AddDate(0, 0, 7)
		return t.Year(), t.Month(), t.Day(), nil
	}

	if wd, ok := weekdays[trimmed]; ok {
		days := (int(wd) - int(local.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		t := local.AddDate(0, 0, days)
		return t.Year(), t.Month(), t.Day(), nil
	}

	for _, layout := range []string{"2006-01-02", "01/02/2006"} {
		if t, err := time.Parse(layout, strings.TrimSpace(expr)); err == nil {
			return t.Year(), t.Month(), t.Day(), nil
		}
	}

	return 0, 0, 0, domain.Errorf(domain.ErrInvalidTimeFormat,
		"unrecognized date expression %q", expr)
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NormalizeClock normalizes a time-of-day expression to "HH:MM" 24-hour
// form. A 4-digit military string gets a colon inserted before the last two
// digits; "HH:MM" is validated as-is; informal forms like "2PM" and
// "2:30 pm" are accepted. Anything else fails with InvalidTimeFormat.
func NormalizeClock(expr string) (string, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return "", domain.Errorf(domain.ErrInvalidTimeFormat, "empty time expression")
	}

	if isDigits(s) {
		if len(s) != 4 {
			return "", domain.Errorf(domain.ErrInvalidTimeFormat,
				"military time must be exactly 4 digits, got %q", expr)
		}
		s = s[:2] + ":" + s[2:]
	}

	if t, err := time.Parse("15:04", s); err == nil {
		return t.Format("15:04"), nil
	}

	// Informal 12-hour forms.
	upper := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	for _, layout := range []string{"3:04PM", "3PM"} {
		if t, err := time.Parse(layout, upper); err == nil {
			return t.Format("15:04"), nil
		}
	}

	return "", domain.Errorf(domain.ErrInvalidTimeFormat,
		"unrecognized time expression %q", expr)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func mustSplitClock(clock string) (hour, min int) {
	// clock is always the output of NormalizeClock here.
	fmt.Sscanf(clock, "%d:%d", &hour, &min)
	return hour, min
}
