package parking

import (
	"fmt"
	"time"
)

// ChargeBreakdown is the result of pricing one stay. Surcharge is the rush
// surcharge summed over all hours, not the hourly figure.
type ChargeBreakdown struct {
	VehicleType   VehicleType
	BaseRate      float64
	Surcharge     float64
	RatePerHour   float64
	DurationHours int
	Total         float64
	RushHour      bool
	NightRate     bool
	// Holiday names the holiday whose rush window applied, if any.
	Holiday string
}

// Quote prices a stay of hours starting at at. Night pricing wins over any
// rush window. On a holiday date the holiday window replaces the weekday
// rush windows.
func (e *Engine) Quote(vehicleType VehicleType, hours int, at time.Time) (ChargeBreakdown, error) {
	if hours < 1 {
		return ChargeBreakdown{}, fmt.Errorf("%d hours: %w", hours, ErrInvalidDuration)
	}

	rate := e.rates.RateFor(vehicleType)
	b := ChargeBreakdown{
		VehicleType:   vehicleType,
		BaseRate:      rate.BasePerHour,
		DurationHours: hours,
	}

	switch {
	case e.rates.isNight(at):
		b.NightRate = true
		b.RatePerHour = e.rates.NightRate
	default:
		rush := e.rates.isRush(at)
		if h, ok := e.holidays.Lookup(at); ok {
			rush = h.covers(at)
			if rush {
				b.Holiday = h.Name
			}
		}
		if rush {
			b.RushHour = true
			b.RatePerHour = rate.BasePerHour + rate.RushSurcharge
			b.Surcharge = rate.RushSurcharge * float64(hours)
		} else {
			b.RatePerHour = rate.BasePerHour
		}
	}

	b.Total = b.RatePerHour * float64(hours)
	return b, nil
}
