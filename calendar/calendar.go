package calendar

import (
	"fmt"
	"strings"
	"time"
)

// CalendarID identifies a built-in holiday calendar.
type CalendarID string

const (
	TARGET CalendarID = "TARGET"
	JPN    CalendarID = "JPN"
	USD    CalendarID = "USD"
	KRW    CalendarID = "KRW"
	// NONE treats every weekday as a business day.
	NONE CalendarID = "NONE"
)

// BusinessCalendar decides which dates are good business days. A nil
// BusinessCalendar behaves like NONE.
type BusinessCalendar interface {
	IsBusinessDay(t time.Time) bool
}

// Parse maps a calendar name to its CalendarID.
func Parse(name string) (CalendarID, error) {
	switch id := CalendarID(strings.ToUpper(strings.TrimSpace(name))); id {
	case TARGET, JPN, USD, KRW, NONE:
		return id, nil
	case "":
		return NONE, nil
	default:
		return "", fmt.Errorf("calendar: unknown calendar %q", name)
	}
}

// IsBusinessDay checks weekends and the fixed holidays of id.
func (id CalendarID) IsBusinessDay(t time.Time) bool {
	if weekend(t) {
		return false
	}
	return !fixedHoliday(id, t.Month(), t.Day())
}

// Calendar is a base calendar plus extra holidays, such as moveable feasts,
// supplied by the caller. It is immutable once built.
type Calendar struct {
	base  CalendarID
	extra map[string]struct{}
}

// WithHolidays returns base extended by dates (YYYY-MM-DD).
func WithHolidays(base CalendarID, dates ...string) (*Calendar, error) {
	extra := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		t, err := time.Parse("2006-01-02", strings.TrimSpace(d))
		if err != nil {
			return nil, fmt.Errorf("calendar: invalid holiday %q", d)
		}
		extra[t.Format("2006-01-02")] = struct{}{}
	}
	return &Calendar{base: base, extra: extra}, nil
}

func (c *Calendar) ID() CalendarID { return c.base }

func (c *Calendar) IsBusinessDay(t time.Time) bool {
	if !c.base.IsBusinessDay(t) {
		return false
	}
	_, holiday := c.extra[t.Format("2006-01-02")]
	return !holiday
}

func weekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal BusinessCalendar, t time.Time) bool {
	if cal == nil {
		return !weekend(t)
	}
	return cal.IsBusinessDay(t)
}

// Adjust applies Modified Following.
func Adjust(cal BusinessCalendar, t time.Time) time.Time {
	origMonth := t.Month()
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !IsBusinessDay(cal, t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal BusinessCalendar, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}
