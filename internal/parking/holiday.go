package parking

import (
	"fmt"
	"sort"
	"time"
)

// ClockTime is a time of day in minutes after midnight.
type ClockTime int

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Holiday carries a rush window for one calendar day. The window is checked
// in whole hours: RushFrom is inclusive and RushTo exclusive, with 23:59
// standing for the end of the day. A window with RushFrom after RushTo wraps
// past midnight.
type Holiday struct {
	Date     time.Time
	Name     string
	RushFrom ClockTime
	RushTo   ClockTime
}

const endOfDay ClockTime = 23*60 + 59

func (h Holiday) covers(t time.Time) bool {
	from := int(h.RushFrom) / 60
	to := int(h.RushTo) / 60
	if h.RushTo == endOfDay {
		to = 24
	}
	hour := t.Hour()
	if from <= to {
		return hour >= from && hour < to
	}
	return hour >= from || hour < to
}

type HolidayCalendar struct {
	byDay    map[string]Holiday
	holidays []Holiday
}

func NewHolidayCalendar(holidays []Holiday) *HolidayCalendar {
	hc := &HolidayCalendar{
		byDay:    make(map[string]Holiday, len(holidays)),
		holidays: make([]Holiday, len(holidays)),
	}
	copy(hc.holidays, holidays)
	sort.SliceStable(hc.holidays, func(i, j int) bool {
		return hc.holidays[i].Date.Before(hc.holidays[j].Date)
	})
	for _, h := range hc.holidays {
		hc.byDay[dayKey(h.Date)] = h
	}
	return hc
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (hc *HolidayCalendar) Lookup(t time.Time) (Holiday, bool) {
	if hc == nil {
		return Holiday{}, false
	}
	h, ok := hc.byDay[dayKey(t)]
	return h, ok
}

// RushAt reports whether t falls inside the rush window of a holiday on t's date.
func (hc *HolidayCalendar) RushAt(t time.Time) bool {
	h, ok := hc.Lookup(t)
	return ok && h.covers(t)
}

// Holidays returns the schedule sorted by date.
func (hc *HolidayCalendar) Holidays() []Holiday {
	if hc == nil {
		return nil
	}
	out := make([]Holiday, len(hc.holidays))
	copy(out, hc.holidays)
	return out
}

func (hc *HolidayCalendar) Len() int {
	if hc == nil {
		return 0
	}
	return len(hc.holidays)
}
