package parking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-02-03 is a Monday.
func on(weekday time.Weekday, hour, minute int) time.Time {
	day := 3 + (int(weekday)+6)%7
	return time.Date(2025, 2, day, hour, minute, 0, 0, time.UTC)
}

func TestQuote(t *testing.T) {
	e := NewEngine(DefaultRateTable())

	tests := []struct {
		name        string
		vehicle     VehicleType
		hours       int
		at          time.Time
		ratePerHour float64
		surcharge   float64
		total       float64
		rush        bool
		night       bool
	}{
		{"tuesday afternoon car", VehicleCar, 2, on(time.Tuesday, 14, 0), 150, 0, 300, false, false},
		{"night starts at 23", VehicleCar, 3, on(time.Tuesday, 23, 0), 100, 0, 300, false, true},
		{"22:59 is not night", VehicleCar, 1, on(time.Tuesday, 22, 59), 150, 0, 150, false, false},
		{"04:59 is night", VehicleTruck, 2, on(time.Tuesday, 4, 59), 100, 0, 200, false, true},
		{"night ends at 5", VehicleTruck, 2, on(time.Tuesday, 5, 0), 300, 0, 600, false, false},
		{"friday 17 is rush", VehicleTruck, 2, on(time.Friday, 17, 0), 370, 140, 740, true, false},
		{"friday 16 is not rush", VehicleBike, 1, on(time.Friday, 16, 59), 200, 0, 200, false, false},
		{"friday 22 is rush", VehicleBike, 1, on(time.Friday, 22, 0), 250, 50, 250, true, false},
		{"friday 23 is night", VehicleBike, 1, on(time.Friday, 23, 0), 100, 0, 100, false, true},
		{"saturday 11 is rush", VehicleCar, 1, on(time.Saturday, 11, 0), 180, 30, 180, true, false},
		{"saturday 10 is not rush", VehicleCar, 1, on(time.Saturday, 10, 59), 150, 0, 150, false, false},
		{"sunday noon truck", VehicleTruck, 3, on(time.Sunday, 12, 0), 370, 210, 1110, true, false},
		{"monday evening is not rush", VehicleCar, 1, on(time.Monday, 18, 0), 150, 0, 150, false, false},
		{"unknown type uses car rate", VehicleType("Bus"), 2, on(time.Tuesday, 14, 0), 150, 0, 300, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := e.Quote(tt.vehicle, tt.hours, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.ratePerHour, b.RatePerHour)
			assert.Equal(t, tt.surcharge, b.Surcharge)
			assert.Equal(t, tt.total, b.Total)
			assert.Equal(t, tt.rush, b.RushHour)
			assert.Equal(t, tt.night, b.NightRate)
			assert.Equal(t, tt.hours, b.DurationHours)
		})
	}
}

func TestQuoteBreakdownForTuesdayCar(t *testing.T) {
	e := NewEngine(DefaultRateTable())

	b, err := e.Quote(VehicleCar, 2, on(time.Tuesday, 14, 0))
	require.NoError(t, err)

	assert.Equal(t, ChargeBreakdown{
		VehicleType:   VehicleCar,
		BaseRate:      150,
		Surcharge:     0,
		RatePerHour:   150,
		DurationHours: 2,
		Total:         300,
	}, b)
}

func TestQuoteRejectsNonPositiveDuration(t *testing.T) {
	e := NewEngine(DefaultRateTable())

	for _, hours := range []int{0, -3} {
		_, err := e.Quote(VehicleCar, hours, on(time.Tuesday, 14, 0))
		assert.ErrorIs(t, err, ErrInvalidDuration)
	}
}

func TestQuoteHolidayRush(t *testing.T) {
	republicDay := Holiday{
		Date:     time.Date(2025, 1, 26, 0, 0, 0, 0, time.UTC),
		Name:     "Republic Day",
		RushFrom: 8 * 60,
		RushTo:   14 * 60,
	}
	christmas := Holiday{
		Date:     time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
		Name:     "Christmas Day",
		RushFrom: 9 * 60,
		RushTo:   22 * 60,
	}
	cal := NewHolidayCalendar([]Holiday{christmas, republicDay})

	withHolidays := NewEngine(DefaultRateTable(), WithHolidays(cal))
	plain := NewEngine(DefaultRateTable())

	t.Run("holiday window adds rush on a sunday morning", func(t *testing.T) {
		at := time.Date(2025, 1, 26, 9, 0, 0, 0, time.UTC)
		b, err := withHolidays.Quote(VehicleCar, 2, at)
		require.NoError(t, err)
		assert.True(t, b.RushHour)
		assert.Equal(t, "Republic Day", b.Holiday)
		assert.Equal(t, float64(360), b.Total)

		b, err = plain.Quote(VehicleCar, 2, at)
		require.NoError(t, err)
		assert.False(t, b.RushHour)
	})

	t.Run("weekday holiday", func(t *testing.T) {
		b, err := withHolidays.Quote(VehicleBike, 1, time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.True(t, b.RushHour)
		assert.Equal(t, float64(250), b.Total)
	})

	t.Run("window end is exclusive", func(t *testing.T) {
		b, err := withHolidays.Quote(VehicleBike, 1, time.Date(2025, 12, 25, 22, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.False(t, b.RushHour)
		assert.Empty(t, b.Holiday)
		assert.Equal(t, float64(200), b.Total)
	})

	t.Run("holiday window replaces weekend rush", func(t *testing.T) {
		at := time.Date(2025, 1, 26, 15, 0, 0, 0, time.UTC)
		b, err := withHolidays.Quote(VehicleCar, 1, at)
		require.NoError(t, err)
		assert.False(t, b.RushHour)
		assert.Equal(t, float64(150), b.Total)

		b, err = plain.Quote(VehicleCar, 1, at)
		require.NoError(t, err)
		assert.True(t, b.RushHour)
	})

	t.Run("night still wins", func(t *testing.T) {
		cal := NewHolidayCalendar([]Holiday{{
			Date:     time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
			Name:     "New Year's Eve",
			RushFrom: 0,
			RushTo:   23*60 + 59,
		}})
		e := NewEngine(DefaultRateTable(), WithHolidays(cal))
		b, err := e.Quote(VehicleTruck, 1, time.Date(2025, 12, 31, 23, 30, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.True(t, b.NightRate)
		assert.False(t, b.RushHour)
		assert.Equal(t, float64(100), b.Total)
	})
}

func TestQuoteWithSubstitutedRateTable(t *testing.T) {
	rt := DefaultRateTable()
	rt.Rates = map[VehicleType]Rate{VehicleCar: {BasePerHour: 10, RushSurcharge: 5}}
	rt.NightRate = 7
	require.NoError(t, rt.Validate())

	e := NewEngine(rt)

	b, err := e.Quote(VehicleTruck, 4, on(time.Saturday, 12, 0))
	require.NoError(t, err)
	assert.Equal(t, float64(60), b.Total)
	assert.Equal(t, float64(20), b.Surcharge)

	b, err = e.Quote(VehicleCar, 4, on(time.Saturday, 2, 0))
	require.NoError(t, err)
	assert.Equal(t, float64(28), b.Total)
}

func TestRateTableValidate(t *testing.T) {
	assert.NoError(t, DefaultRateTable().Validate())

	noFallback := DefaultRateTable()
	noFallback.FallbackType = "Bus"
	assert.Error(t, noFallback.Validate())

	badRate := DefaultRateTable()
	badRate.Rates = map[VehicleType]Rate{VehicleCar: {BasePerHour: 0}}
	assert.Error(t, badRate.Validate())

	badWindow := DefaultRateTable()
	badWindow.RushWindows = []RushWindow{{Weekday: time.Friday, FromHour: 20, ToHour: 17}}
	assert.Error(t, badWindow.Validate())
}
