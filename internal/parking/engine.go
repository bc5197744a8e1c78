package parking

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultMaxDurationHours = 24

// Engine allocates slots and prices stays. It keeps no slot state: every
// operation works on the collection it is handed and mutates it in place.
// Callers must not run two operations on the same collection concurrently.
type Engine struct {
	rates       RateTable
	holidays    *HolidayCalendar
	now         func() time.Time
	maxDuration int
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithHolidays adds the calendar's rush windows as an extra rush source.
func WithHolidays(hc *HolidayCalendar) Option {
	return func(e *Engine) { e.holidays = hc }
}

func WithMaxDuration(hours int) Option {
	return func(e *Engine) {
		if hours > 0 {
			e.maxDuration = hours
		}
	}
}

func NewEngine(rates RateTable, opts ...Option) *Engine {
	e := &Engine{
		rates:       rates,
		now:         time.Now,
		maxDuration: DefaultMaxDurationHours,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Rates() RateTable { return e.rates }

func (e *Engine) MaxDuration() int { return e.maxDuration }

func (e *Engine) Now() time.Time { return e.now() }

type ParkResult struct {
	SlotID int
	Charge ChargeBreakdown
}

type Bill struct {
	ID            string
	SlotID        int
	Vehicle       Vehicle
	Arrival       time.Time
	Departure     time.Time
	DurationHours int
	BaseRate      float64
	Surcharge     float64
	Total         float64
}

type ReservationRequest struct {
	CustomerName  string
	VehicleType   VehicleType
	VehicleNumber string
	Date          string
	Time          string
	DurationHours int
}

type Stats struct {
	Available     int
	Occupied      int
	Reserved      int
	Total         int
	Revenue       float64
	OccupancyRate float64
	RevenueByType map[VehicleType]float64
}

func (e *Engine) checkDuration(hours int) error {
	if hours < 1 || hours > e.maxDuration {
		return fmt.Errorf("%d hours, want 1-%d: %w", hours, e.maxDuration, ErrInvalidDuration)
	}
	return nil
}

// Park claims the lowest-numbered empty slot and prices the stay from now.
func (e *Engine) Park(slots Slots, vehicleType VehicleType, vehicleNumber string, hours int) (ParkResult, error) {
	if err := e.checkDuration(hours); err != nil {
		return ParkResult{}, err
	}

	slot := slots.firstEmpty()
	if slot == nil {
		return ParkResult{}, ErrNoAvailableSlot
	}

	now := e.now()
	charge, err := e.Quote(vehicleType, hours, now)
	if err != nil {
		return ParkResult{}, err
	}

	slot.Park(&Occupant{
		Vehicle:        NewVehicle(vehicleType, vehicleNumber),
		Arrival:        now,
		ExpectedPickup: now.Add(time.Duration(hours) * time.Hour),
		Weekday:        now.Format("Mon"),
		Charge:         charge.Total,
	})

	return ParkResult{SlotID: slot.ID, Charge: charge}, nil
}

// Release empties an occupied slot and bills the charge fixed at park time.
// The elapsed duration on the bill is informational only.
func (e *Engine) Release(slots Slots, slotID int) (Bill, error) {
	slot, err := slots.Get(slotID)
	if err != nil {
		return Bill{}, err
	}
	if slot.State != SlotOccupied {
		return Bill{}, fmt.Errorf("slot %d: %w", slotID, ErrSlotAlreadyEmpty)
	}

	now := e.now()
	occ := slot.Occupant
	bill := Bill{
		ID:            uuid.NewString(),
		SlotID:        slot.ID,
		Vehicle:       occ.Vehicle,
		Arrival:       occ.Arrival,
		Departure:     now,
		DurationHours: elapsedHours(occ.Arrival, now),
		BaseRate:      e.rates.RateFor(occ.Vehicle.Type).BasePerHour,
		Surcharge:     e.impliedSurcharge(occ),
		Total:         occ.Charge,
	}

	slot.Leave()
	return bill, nil
}

// elapsedHours rounds down, never returns less than one hour, and treats an
// unknown arrival as one hour.
func elapsedHours(arrival, now time.Time) int {
	if arrival.IsZero() {
		return 1
	}
	h := int(now.Sub(arrival).Hours())
	if h < 1 {
		return 1
	}
	return h
}

// impliedSurcharge recovers the rush surcharge from the stored total. Only
// the total is kept on the slot, so a charge that matches rush pricing for
// the booked hours is the one case where the surcharge is known.
func (e *Engine) impliedSurcharge(occ *Occupant) float64 {
	if occ.Arrival.IsZero() || occ.ExpectedPickup.IsZero() {
		return 0
	}
	booked := int(math.Round(occ.ExpectedPickup.Sub(occ.Arrival).Hours()))
	if booked < 1 {
		return 0
	}
	rate := e.rates.RateFor(occ.Vehicle.Type)
	if rate.RushSurcharge == 0 {
		return 0
	}
	rush := (rate.BasePerHour + rate.RushSurcharge) * float64(booked)
	if math.Abs(occ.Charge-rush) > 0.005 {
		return 0
	}
	return rate.RushSurcharge * float64(booked)
}

// Reserve holds the lowest-numbered empty slot. Nothing is charged.
func (e *Engine) Reserve(slots Slots, req ReservationRequest) (int, error) {
	if err := e.checkDuration(req.DurationHours); err != nil {
		return 0, err
	}

	slot := slots.firstEmpty()
	if slot == nil {
		return 0, ErrNoAvailableSlot
	}

	slot.Reserve(&Reservation{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		Vehicle:       NewVehicle(req.VehicleType, req.VehicleNumber),
		Date:          req.Date,
		Time:          req.Time,
		DurationHours: req.DurationHours,
	})
	return slot.ID, nil
}

// CancelReservation returns a reserved slot to empty.
func (e *Engine) CancelReservation(slots Slots, slotID int) (Reservation, error) {
	slot, err := slots.Get(slotID)
	if err != nil {
		return Reservation{}, err
	}
	if slot.State != SlotReserved {
		return Reservation{}, fmt.Errorf("slot %d: %w", slotID, ErrSlotNotReserved)
	}
	return *slot.CancelReservation(), nil
}

// Find returns occupied slots whose vehicle number contains query,
// ignoring case.
func (e *Engine) Find(slots Slots, query string) []*Slot {
	q := NormalizeVehicleNumber(query)
	if q == "" {
		return nil
	}
	var found []*Slot
	for _, s := range slots {
		if s.State == SlotOccupied && strings.Contains(s.Occupant.Vehicle.Number, q) {
			found = append(found, s)
		}
	}
	return found
}

func (e *Engine) Stats(slots Slots) Stats {
	st := Stats{
		Total:         len(slots),
		RevenueByType: make(map[VehicleType]float64),
	}
	for _, s := range slots {
		switch s.State {
		case SlotEmpty:
			st.Available++
		case SlotOccupied:
			st.Occupied++
			st.Revenue += s.Occupant.Charge
			st.RevenueByType[s.Occupant.Vehicle.Type] += s.Occupant.Charge
		case SlotReserved:
			st.Reserved++
		}
	}
	if st.Total > 0 {
		st.OccupancyRate = float64(st.Occupied) / float64(st.Total) * 100
	}
	return st
}
