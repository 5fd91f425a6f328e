// Package billing holds the pure domain rules for the billing job layer:
// business-day calendar, presentment window gating, and lock key derivation.
package billing

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for billing dates (local calendar days).
const DateLayout = "2006-01-02"

// GateReason explains why a cron presentment window is closed.
type GateReason string

const (
	// GateNonBusinessDay indicates the target date is a weekend or bank holiday.
	GateNonBusinessDay GateReason = "non_business_day"
	// GateDeferredToNextWindow indicates the cutoff hour for today's window has passed.
	GateDeferredToNextWindow GateReason = "deferred_to_next_window"
)

// GateDecision captures the outcome of evaluating the presentment window.
type GateDecision struct {
	Open   bool
	Reason GateReason
}

// Calendar resolves billing dates and window gating in the operating timezone.
// The zero value is not usable; construct with NewCalendar.
type Calendar struct {
	loc      *time.Location
	holidays map[string]struct{}
}

// NewCalendar constructs a Calendar for the given location and bank holidays
// (YYYY-MM-DD). A nil location falls back to UTC.
func NewCalendar(loc *time.Location, holidays []string) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	hs := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		if _, err := time.ParseInLocation(DateLayout, h, loc); err == nil {
			hs[h] = struct{}{}
		}
	}
	return &Calendar{loc: loc, holidays: hs}
}

// Location returns the calendar's timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// LocalDate formats the instant as a calendar day in the operating timezone.
func (c *Calendar) LocalDate(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date at local midnight.
func (c *Calendar) ParseDate(dateAR string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, dateAR, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse billing date %q: %w", dateAR, err)
	}
	return t, nil
}

// DayBounds returns the half-open interval [local midnight, next local
// midnight) for the given date. DST transitions are handled by the location.
func (c *Calendar) DayBounds(dateAR string) (time.Time, time.Time, error) {
	start, err := c.ParseDate(dateAR)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}

// IsBusinessDay reports whether the date is a bank working day: not a
// weekend and not a configured holiday.
func (c *Calendar) IsBusinessDay(dateAR string) (bool, error) {
	day, err := c.ParseDate(dateAR)
	if err != nil {
		return false, err
	}
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false, nil
	}
	if _, holiday := c.holidays[dateAR]; holiday {
		return false, nil
	}
	return true, nil
}

// PresentmentWindow decides whether a cron-driven presentment pass may run
// now for the target date. The window is closed on non-business days and,
// when cutoffHour is 0-23, once the local hour reaches the cutoff. A
// negative cutoffHour disables the cutoff gate.
func (c *Calendar) PresentmentWindow(now time.Time, targetDateAR string, cutoffHour int) (GateDecision, error) {
	business, err := c.IsBusinessDay(targetDateAR)
	if err != nil {
		return GateDecision{}, err
	}
	if !business {
		return GateDecision{Open: false, Reason: GateNonBusinessDay}, nil
	}
	if cutoffHour >= 0 && now.In(c.loc).Hour() >= cutoffHour {
		return GateDecision{Open: false, Reason: GateDeferredToNextWindow}, nil
	}
	return GateDecision{Open: true}, nil
}
