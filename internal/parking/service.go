package parking

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"vacancy-vault/internal/logging"
)

const DefaultCapacity = 20

// Store persists the slot collection as a whole. LoadSlots returns nil
// when nothing has been saved yet.
type Store interface {
	LoadSlots(ctx context.Context) (Slots, error)
	SaveSlots(ctx context.Context, slots Slots) error
	LoadHolidays(ctx context.Context) ([]Holiday, error)
}

// Ledger keeps every bill issued on release.
type Ledger interface {
	AppendBill(ctx context.Context, bill Bill) error
	Bills(ctx context.Context) ([]Bill, error)
}

type ServiceOption func(*Service)

func WithCapacity(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func WithMetrics(m *PromMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// WithCalendar sets the schedule listed by Holidays. Whether it also
// affects pricing is decided when the engine is built.
func WithCalendar(hc *HolidayCalendar) ServiceOption {
	return func(s *Service) { s.holidays = hc }
}

// Service runs engine operations against a stored lot. Every mutating
// operation loads the collection, applies the engine and saves it back
// while holding the service mutex.
type Service struct {
	engine   *InstrumentedEngine
	store    Store
	ledger   Ledger
	metrics  *PromMetrics
	log      zerolog.Logger
	holidays *HolidayCalendar
	capacity int

	mu sync.Mutex
}

func NewService(engine *InstrumentedEngine, store Store, ledger Ledger, opts ...ServiceOption) *Service {
	s := &Service{
		engine:   engine,
		store:    store,
		ledger:   ledger,
		log:      zerolog.Nop(),
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Capacity() int { return s.capacity }

func (s *Service) MaxDuration() int { return s.engine.MaxDuration() }

func (s *Service) load(ctx context.Context) (Slots, error) {
	slots, err := s.store.LoadSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	if len(slots) == 0 {
		slots = NewSlots(s.capacity)
	}
	return slots, nil
}

func (s *Service) save(ctx context.Context, slots Slots) error {
	if err := s.store.SaveSlots(ctx, slots); err != nil {
		return fmt.Errorf("save slots: %w", err)
	}
	s.metrics.ObserveStats(s.engine.Engine.Stats(slots))
	return nil
}

// mutate runs op on the current collection and saves it only if op succeeds.
func (s *Service) mutate(ctx context.Context, operation string, op func(Slots) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := op(slots); err != nil {
		s.metrics.RecordRejection(operation, err)
		return err
	}
	return s.save(ctx, slots)
}

func (s *Service) Park(ctx context.Context, vehicleType VehicleType, vehicleNumber string, hours int) (ParkResult, error) {
	var res ParkResult
	err := s.mutate(ctx, "park", func(slots Slots) error {
		var err error
		res, err = s.engine.Park(ctx, slots, vehicleType, vehicleNumber, hours)
		return err
	})
	if err != nil {
		return ParkResult{}, err
	}

	log := logging.Trace(ctx, s.log)
	log.Info().
		Int("slot", res.SlotID).
		Str("vehicle_type", string(vehicleType)).
		Float64("charge", res.Charge.Total).
		Msg("vehicle parked")
	return res, nil
}

func (s *Service) Release(ctx context.Context, slotID int) (Bill, error) {
	var bill Bill
	err := s.mutate(ctx, "release", func(slots Slots) error {
		var err error
		bill, err = s.engine.Release(ctx, slots, slotID)
		return err
	})
	if err != nil {
		return Bill{}, err
	}

	s.metrics.RecordBill(bill)
	log := logging.Trace(ctx, s.log)
	if err := s.ledger.AppendBill(ctx, bill); err != nil {
		log.Error().Err(err).Str("bill_id", bill.ID).Msg("failed to record bill")
	}
	log.Info().
		Int("slot", bill.SlotID).
		Str("bill_id", bill.ID).
		Float64("total", bill.Total).
		Msg("slot released")
	return bill, nil
}

func (s *Service) Reserve(ctx context.Context, req ReservationRequest) (int, error) {
	var slotID int
	err := s.mutate(ctx, "reserve", func(slots Slots) error {
		var err error
		slotID, err = s.engine.Reserve(ctx, slots, req)
		return err
	})
	if err != nil {
		return 0, err
	}

	log := logging.Trace(ctx, s.log)
	log.Info().Int("slot", slotID).Str("date", req.Date).Msg("slot reserved")
	return slotID, nil
}

func (s *Service) CancelReservation(ctx context.Context, slotID int) (Reservation, error) {
	var r Reservation
	err := s.mutate(ctx, "cancel_reservation", func(slots Slots) error {
		var err error
		r, err = s.engine.CancelReservation(ctx, slots, slotID)
		return err
	})
	if err != nil {
		return Reservation{}, err
	}

	log := logging.Trace(ctx, s.log)
	log.Info().Int("slot", slotID).Msg("reservation cancelled")
	return r, nil
}

// Quote prices a stay starting now without touching any slot.
func (s *Service) Quote(ctx context.Context, vehicleType VehicleType, hours int) (ChargeBreakdown, error) {
	return s.engine.Quote(ctx, vehicleType, hours, s.engine.Now())
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	slots, err := s.Slots(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := s.engine.Stats(ctx, slots)
	s.metrics.ObserveStats(st)
	return st, nil
}

// Slots returns a snapshot of the lot.
func (s *Service) Slots(ctx context.Context) (Slots, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return slots.Clone(), nil
}

func (s *Service) Find(ctx context.Context, query string) ([]*Slot, error) {
	slots, err := s.Slots(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Find(ctx, slots, query), nil
}

func (s *Service) Bills(ctx context.Context) ([]Bill, error) {
	bills, err := s.ledger.Bills(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bills: %w", err)
	}
	return bills, nil
}

func (s *Service) Holidays() []Holiday {
	return s.holidays.Holidays()
}
