package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"vacancy-vault/internal/parking"
)

type RateConfig struct {
	Base          float64 `json:"base"`
	RushSurcharge float64 `json:"rush_surcharge"`
}

// RushWindowConfig covers From through To on Weekday, whole hours inclusive.
type RushWindowConfig struct {
	Weekday string `json:"weekday"`
	From    int    `json:"from"`
	To      int    `json:"to"`
}

type PricingConfig struct {
	// Rates is keyed by vehicle type, matched case-insensitively.
	Rates          map[string]RateConfig `json:"rates"`
	FallbackType   string                `json:"fallback_type"`
	NightRate      float64               `json:"night_rate"`
	NightStartHour int                   `json:"night_start_hour"`
	NightEndHour   int                   `json:"night_end_hour"`
	RushWindows    []RushWindowConfig    `json:"rush_windows"`
	// HolidayRush adds the stored holiday schedule's rush windows to pricing.
	HolidayRush bool `json:"holiday_rush"`
}

func DefaultPricing() PricingConfig {
	rt := parking.DefaultRateTable()
	p := PricingConfig{
		Rates:          make(map[string]RateConfig, len(rt.Rates)),
		FallbackType:   string(rt.FallbackType),
		NightRate:      rt.NightRate,
		NightStartHour: rt.NightStartHour,
		NightEndHour:   rt.NightEndHour,
	}
	for vt, r := range rt.Rates {
		p.Rates[strings.ToLower(string(vt))] = RateConfig{Base: r.BasePerHour, RushSurcharge: r.RushSurcharge}
	}
	for _, w := range rt.RushWindows {
		p.RushWindows = append(p.RushWindows, RushWindowConfig{Weekday: w.Weekday.String(), From: w.FromHour, To: w.ToHour})
	}
	return p
}

// SetDefaults fills in every vehicle type, rate and window left unset.
// Night hours are not defaulted here since zero is a valid hour.
func (c *PricingConfig) SetDefaults() {
	def := DefaultPricing()
	if c.Rates == nil {
		c.Rates = make(map[string]RateConfig)
	}
	have := make(map[parking.VehicleType]bool, len(c.Rates))
	for name := range c.Rates {
		have[parking.ParseVehicleType(name)] = true
	}
	for name, r := range def.Rates {
		if !have[parking.ParseVehicleType(name)] {
			c.Rates[name] = r
		}
	}
	if c.FallbackType == "" {
		c.FallbackType = def.FallbackType
	}
	if c.NightRate <= 0 {
		c.NightRate = def.NightRate
	}
	if c.RushWindows == nil {
		c.RushWindows = def.RushWindows
	}
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return wd, nil
}

// RateTable builds the engine's rate table and validates it.
func (c PricingConfig) RateTable() (parking.RateTable, error) {
	rt := parking.RateTable{
		Rates:          make(map[parking.VehicleType]parking.Rate, len(c.Rates)),
		FallbackType:   parking.ParseVehicleType(c.FallbackType),
		NightRate:      c.NightRate,
		NightStartHour: c.NightStartHour,
		NightEndHour:   c.NightEndHour,
	}

	names := make([]string, 0, len(c.Rates))
	for name := range c.Rates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		vt := parking.ParseVehicleType(name)
		if _, dup := rt.Rates[vt]; dup {
			return parking.RateTable{}, fmt.Errorf("pricing: vehicle type %s configured twice", vt)
		}
		r := c.Rates[name]
		rt.Rates[vt] = parking.Rate{BasePerHour: r.Base, RushSurcharge: r.RushSurcharge}
	}

	for _, w := range c.RushWindows {
		wd, err := parseWeekday(w.Weekday)
		if err != nil {
			return parking.RateTable{}, fmt.Errorf("pricing: %w", err)
		}
		rt.RushWindows = append(rt.RushWindows, parking.RushWindow{Weekday: wd, FromHour: w.From, ToHour: w.To})
	}

	if err := rt.Validate(); err != nil {
		return parking.RateTable{}, fmt.Errorf("pricing: %w", err)
	}
	return rt, nil
}
