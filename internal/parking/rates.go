package parking

import (
	"fmt"
	"time"
)

// Rate is the hourly price for one vehicle type.
type Rate struct {
	BasePerHour   float64
	RushSurcharge float64
}

// RushWindow marks a weekday as rush from FromHour to ToHour, both inclusive.
type RushWindow struct {
	Weekday  time.Weekday
	FromHour int
	ToHour   int
}

func (w RushWindow) covers(t time.Time) bool {
	h := t.Hour()
	return t.Weekday() == w.Weekday && h >= w.FromHour && h <= w.ToHour
}

// RateTable is built once at startup and never mutated afterwards.
type RateTable struct {
	Rates        map[VehicleType]Rate
	FallbackType VehicleType
	NightRate    float64
	// Night pricing covers [NightStartHour, NightEndHour), wrapping midnight
	// when the start is later than the end.
	NightStartHour int
	NightEndHour   int
	RushWindows    []RushWindow
}

func DefaultRateTable() RateTable {
	return RateTable{
		Rates: map[VehicleType]Rate{
			VehicleBike:  {BasePerHour: 200, RushSurcharge: 50},
			VehicleCar:   {BasePerHour: 150, RushSurcharge: 30},
			VehicleTruck: {BasePerHour: 300, RushSurcharge: 70},
		},
		FallbackType:   VehicleCar,
		NightRate:      100,
		NightStartHour: 23,
		NightEndHour:   5,
		RushWindows: []RushWindow{
			{Weekday: time.Friday, FromHour: 17, ToHour: 23},
			{Weekday: time.Saturday, FromHour: 11, ToHour: 23},
			{Weekday: time.Sunday, FromHour: 11, ToHour: 23},
		},
	}
}

func (rt RateTable) Validate() error {
	if _, ok := rt.Rates[rt.FallbackType]; !ok {
		return fmt.Errorf("fallback vehicle type %q has no rate", rt.FallbackType)
	}
	for vt, r := range rt.Rates {
		if r.BasePerHour <= 0 {
			return fmt.Errorf("base rate for %s must be positive", vt)
		}
		if r.RushSurcharge < 0 {
			return fmt.Errorf("rush surcharge for %s must not be negative", vt)
		}
	}
	if rt.NightRate <= 0 {
		return fmt.Errorf("night rate must be positive")
	}
	if rt.NightStartHour < 0 || rt.NightStartHour > 23 || rt.NightEndHour < 0 || rt.NightEndHour > 23 {
		return fmt.Errorf("night hours must be within 0-23")
	}
	for _, w := range rt.RushWindows {
		if w.FromHour < 0 || w.ToHour > 23 || w.FromHour > w.ToHour {
			return fmt.Errorf("invalid rush window %s %d-%d", w.Weekday, w.FromHour, w.ToHour)
		}
	}
	return nil
}

// RateFor returns the rate for vt, or the fallback entry for unknown types.
func (rt RateTable) RateFor(vt VehicleType) Rate {
	if r, ok := rt.Rates[vt]; ok {
		return r
	}
	return rt.Rates[rt.FallbackType]
}

func (rt RateTable) isNight(t time.Time) bool {
	h := t.Hour()
	if rt.NightStartHour > rt.NightEndHour {
		return h >= rt.NightStartHour || h < rt.NightEndHour
	}
	return h >= rt.NightStartHour && h < rt.NightEndHour
}

func (rt RateTable) isRush(t time.Time) bool {
	for _, w := range rt.RushWindows {
		if w.covers(t) {
			return true
		}
	}
	return false
}
