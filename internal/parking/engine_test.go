package parking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(at time.Time) (*Engine, *fakeClock) {
	clock := &fakeClock{t: at}
	return NewEngine(DefaultRateTable(), WithClock(clock.Now)), clock
}

func TestParkClaimsLowestEmptySlot(t *testing.T) {
	e, _ := newTestEngine(on(time.Tuesday, 14, 0))
	slots := NewSlots(5)
	slots[1].Park(&Occupant{Vehicle: NewVehicle(VehicleCar, "OCC1"), Charge: 150})

	res, err := e.Park(slots, VehicleCar, "xx1", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SlotID)
	assert.Equal(t, float64(300), res.Charge.Total)

	occ := slots[0].Occupant
	require.NotNil(t, occ)
	assert.Equal(t, "XX1", occ.Vehicle.Number)
	assert.Equal(t, on(time.Tuesday, 14, 0), occ.Arrival)
	assert.Equal(t, on(time.Tuesday, 16, 0), occ.ExpectedPickup)
	assert.Equal(t, "Tue", occ.Weekday)
	assert.Equal(t, float64(300), occ.Charge)

	res, err = e.Park(slots, VehicleBike, "xx2", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, res.SlotID)
}

func TestParkSkipsReservedSlots(t *testing.T) {
	e, _ := newTestEngine(on(time.Tuesday, 14, 0))
	slots := NewSlots(3)
	slots[0].Reserve(&Reservation{CustomerName: "John Doe"})

	res, err := e.Park(slots, VehicleTruck, "T1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SlotID)
	assert.Equal(t, SlotReserved, slots[0].State)
}

func TestParkOnFullLotLeavesSlotsUnchanged(t *testing.T) {
	e, _ := newTestEngine(on(time.Tuesday, 14, 0))
	slots := NewSlots(3)
	slots[0].Park(&Occupant{Vehicle: NewVehicle(VehicleCar, "A"), Charge: 150})
	slots[1].Reserve(&Reservation{CustomerName: "B"})
	slots[2].Park(&Occupant{Vehicle: NewVehicle(VehicleBike, "C"), Charge: 200})
	before := slots.Clone()

	_, err := e.Park(slots, VehicleCar, "D", 2)

	assert.ErrorIs(t, err, ErrNoAvailableSlot)
	assert.Equal(t, before, slots)
}

func TestParkRejectsDurationOutOfRange(t *testing.T) {
	e, _ := newTestEngine(on(time.Tuesday, 14, 0))
	slots := NewSlots(2)
	before := slots.Clone()

	for _, hours := range []int{0, 25} {
		_, err := e.Park(slots, VehicleCar, "A", hours)
		assert.ErrorIs(t, err, ErrInvalidDuration)
	}
	assert.Equal(t, before, slots)

	short := NewEngine(DefaultRateTable(), WithMaxDuration(4))
	_, err := short.Park(slots, VehicleCar, "A", 5)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestReleaseBillsStoredCharge(t *testing.T) {
	e, clock := newTestEngine(on(time.Saturday, 12, 0))
	slots := NewSlots(2)

	res, err := e.Park(slots, VehicleTruck, "wb03c9101", 2)
	require.NoError(t, err)
	require.Equal(t, float64(740), res.Charge.Total)

	clock.Advance(5*time.Hour + 40*time.Minute)

	bill, err := e.Release(slots, res.SlotID)
	require.NoError(t, err)

	assert.NotEmpty(t, bill.ID)
	assert.Equal(t, 1, bill.SlotID)
	assert.Equal(t, "WB03C9101", bill.Vehicle.Number)
	assert.Equal(t, VehicleTruck, bill.Vehicle.Type)
	assert.Equal(t, on(time.Saturday, 12, 0), bill.Arrival)
	assert.Equal(t, on(time.Saturday, 17, 40), bill.Departure)
	assert.Equal(t, 5, bill.DurationHours)
	assert.Equal(t, float64(300), bill.BaseRate)
	assert.Equal(t, float64(140), bill.Surcharge)
	assert.Equal(t, float64(740), bill.Total)

	assert.True(t, slots[0].IsEmpty())
	assert.Nil(t, slots[0].Occupant)
}

func TestReleaseDurationFallbacks(t *testing.T) {
	e, clock := newTestEngine(on(time.Tuesday, 14, 0))
	slots := NewSlots(2)

	_, err := e.Park(slots, VehicleCar, "A", 2)
	require.NoError(t, err)
	clock.Advance(10 * time.Minute)

	bill, err := e.Release(slots, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, bill.DurationHours)
	assert.Equal(t, float64(0), bill.Surcharge)

	slots[1].Park(&Occupant{Vehicle: NewVehicle(VehicleCar, "B"), Charge: 400})
	bill, err = e.Release(slots, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, bill.DurationHours)
	assert.Equal(t, float64(400), bill.Total)
}

func TestReleaseFailuresDoNotMutate(t *testing.T) {
	e, _ := newTestEngine(on(time.Tuesday, 14, 0))
	slots := NewSlots(3)
	slots[1].Reserve(&Reservation{CustomerName: "R"})
	before := slots.Clone()

	_, err := e.Release(slots, 1)
	assert.ErrorIs(t, err, ErrSlotAlreadyEmpty)

	_, err = e.Release(slots, 2)
	assert.ErrorIs(t, err, ErrSlotAlreadyEmpty)

	_, err = e.Release(slots, 9)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	assert.Equal(t, before, slots)
}

func TestReserve(t *testing.T) {
	e, _ := newTestEngine(on(time.Tuesday, 14, 0))
	slots := NewSlots(3)
	slots[0].Park(&Occupant{Vehicle: NewVehicle(VehicleCar, "A"), Charge: 150})

	req := ReservationRequest{
		CustomerName:  " John Doe ",
		VehicleType:   VehicleCar,
		VehicleNumber: "wb11x1234",
		Date:          "01-02-25",
		Time:          "14:00",
		DurationHours: 3,
	}

	id, err := e.Reserve(slots, req)
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	r := slots[1].Reservation
	require.NotNil(t, r)
	assert.Equal(t, "John Doe", r.CustomerName)
	assert.Equal(t, "WB11X1234", r.Vehicle.Number)
	assert.Equal(t, 3, r.DurationHours)
	assert.Nil(t, slots[1].Occupant)

	id, err = e.Reserve(slots, req)
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	before := slots.Clone()
	_, err = e.Reserve(slots, req)
	assert.ErrorIs(t, err, ErrNoAvailableSlot)
	assert.Equal(t, before, slots)
}

func TestReserveAllSlotsThenFail(t *testing.T) {
	e, _ := newTestEngine(on(time.Tuesday, 14, 0))
	slots := NewSlots(20)
	req := ReservationRequest{CustomerName: "c", VehicleType: VehicleBike, VehicleNumber: "b", DurationHours: 1}

	for i := 1; i <= 20; i++ {
		id, err := e.Reserve(slots, req)
		require.NoError(t, err)
		assert.Equal(t, i, id)
	}

	_, err := e.Reserve(slots, req)
	assert.ErrorIs(t, err, ErrNoAvailableSlot)

	st := e.Stats(slots)
	assert.Equal(t, 20, st.Reserved)
	assert.Equal(t, 0, st.Available)
}

func TestCancelReservation(t *testing.T) {
	e, _ := newTestEngine(on(time.Tuesday, 14, 0))
	slots := NewSlots(2)
	_, err := e.Reserve(slots, ReservationRequest{CustomerName: "Jane", VehicleType: VehicleCar, VehicleNumber: "c1", DurationHours: 2})
	require.NoError(t, err)

	r, err := e.CancelReservation(slots, 1)
	require.NoError(t, err)
	assert.Equal(t, "Jane", r.CustomerName)
	assert.True(t, slots[0].IsEmpty())

	_, err = e.CancelReservation(slots, 1)
	assert.ErrorIs(t, err, ErrSlotNotReserved)

	_, err = e.CancelReservation(slots, 3)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestFind(t *testing.T) {
	e, _ := newTestEngine(on(time.Tuesday, 14, 0))
	slots := NewSlots(4)
	_, _ = e.Park(slots, VehicleCar, "WB01A1234", 1)
	_, _ = e.Park(slots, VehicleBike, "WB02B5678", 1)
	_, _ = e.Reserve(slots, ReservationRequest{CustomerName: "x", VehicleNumber: "WB01ZZZZ", DurationHours: 1})

	found := e.Find(slots, "wb0")
	require.Len(t, found, 2)
	assert.Equal(t, 1, found[0].ID)
	assert.Equal(t, 2, found[1].ID)

	assert.Len(t, e.Find(slots, "5678"), 1)
	assert.Empty(t, e.Find(slots, "zzzz"))
	assert.Empty(t, e.Find(slots, "  "))
}

func TestStatsAccounting(t *testing.T) {
	e, _ := newTestEngine(on(time.Tuesday, 14, 0))
	slots := NewSlots(6)

	st := e.Stats(slots)
	assert.Equal(t, Stats{Available: 6, Total: 6, RevenueByType: map[VehicleType]float64{}}, st)

	_, err := e.Park(slots, VehicleCar, "A", 2)
	require.NoError(t, err)
	_, err = e.Park(slots, VehicleTruck, "B", 1)
	require.NoError(t, err)
	_, err = e.Reserve(slots, ReservationRequest{CustomerName: "c", VehicleNumber: "C", DurationHours: 1})
	require.NoError(t, err)

	st = e.Stats(slots)
	assert.Equal(t, 3, st.Available)
	assert.Equal(t, 2, st.Occupied)
	assert.Equal(t, 1, st.Reserved)
	assert.Equal(t, st.Total, st.Available+st.Occupied+st.Reserved)
	assert.LessOrEqual(t, st.Available+st.Occupied, st.Total)
	assert.Equal(t, float64(600), st.Revenue)
	assert.Equal(t, float64(300), st.RevenueByType[VehicleCar])
	assert.InDelta(t, 33.33, st.OccupancyRate, 0.01)

	bill, err := e.Release(slots, 1)
	require.NoError(t, err)

	after := e.Stats(slots)
	assert.Equal(t, st.Available+1, after.Available)
	assert.Equal(t, st.Occupied-1, after.Occupied)
	assert.Equal(t, st.Revenue-bill.Total, after.Revenue)
}
