package parking

import (
	"fmt"
	"time"
)

type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotOccupied
	SlotReserved
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "available"
	case SlotOccupied:
		return "occupied"
	case SlotReserved:
		return "reserved"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

// Occupant is the vehicle currently parked in a slot. Arrival is zero when the
// persisted timestamp could not be read back.
type Occupant struct {
	Vehicle        Vehicle
	Arrival        time.Time
	ExpectedPickup time.Time
	Weekday        string
	Charge         float64
}

type Reservation struct {
	CustomerName  string
	Vehicle       Vehicle
	Date          string
	Time          string
	DurationHours int
}

// Slot is one fixed-identity parking space. Occupant is set only while
// Occupied and Reservation only while Reserved.
type Slot struct {
	ID          int
	State       SlotState
	Occupant    *Occupant
	Reservation *Reservation
}

func NewSlot(id int) *Slot {
	return &Slot{
		ID:    id,
		State: SlotEmpty,
	}
}

func (s *Slot) IsEmpty() bool { return s.State == SlotEmpty }

func (s *Slot) Park(occupant *Occupant) {
	*s = Slot{ID: s.ID, State: SlotOccupied, Occupant: occupant}
}

func (s *Slot) Leave() *Occupant {
	occupant := s.Occupant
	*s = Slot{ID: s.ID, State: SlotEmpty}
	return occupant
}

func (s *Slot) Reserve(reservation *Reservation) {
	*s = Slot{ID: s.ID, State: SlotReserved, Reservation: reservation}
}

func (s *Slot) CancelReservation() *Reservation {
	reservation := s.Reservation
	*s = Slot{ID: s.ID, State: SlotEmpty}
	return reservation
}

func (s *Slot) clone() *Slot {
	c := &Slot{ID: s.ID, State: s.State}
	if s.Occupant != nil {
		o := *s.Occupant
		c.Occupant = &o
	}
	if s.Reservation != nil {
		r := *s.Reservation
		c.Reservation = &r
	}
	return c
}

// Slots is the ordered slot collection. Index i holds the slot with ID i+1.
type Slots []*Slot

func NewSlots(capacity int) Slots {
	slots := make(Slots, capacity)
	for i := 0; i < capacity; i++ {
		slots[i] = NewSlot(i + 1)
	}
	return slots
}

func (ss Slots) Get(id int) (*Slot, error) {
	if id < 1 || id > len(ss) {
		return nil, fmt.Errorf("slot %d: %w", id, ErrSlotNotFound)
	}
	return ss[id-1], nil
}

func (ss Slots) Clone() Slots {
	out := make(Slots, len(ss))
	for i, s := range ss {
		out[i] = s.clone()
	}
	return out
}

func (ss Slots) firstEmpty() *Slot {
	for _, s := range ss {
		if s.IsEmpty() {
			return s
		}
	}
	return nil
}
