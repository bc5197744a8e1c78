package parking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	slots    Slots
	holidays []Holiday
	bills    []Bill
	saves    int

	saveErr   error
	appendErr error
}

func (m *memStore) LoadSlots(context.Context) (Slots, error) {
	if m.slots == nil {
		return nil, nil
	}
	return m.slots.Clone(), nil
}

func (m *memStore) SaveSlots(_ context.Context, slots Slots) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.slots = slots.Clone()
	return nil
}

func (m *memStore) LoadHolidays(context.Context) ([]Holiday, error) {
	return m.holidays, nil
}

func (m *memStore) AppendBill(_ context.Context, b Bill) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.bills = append(m.bills, b)
	return nil
}

func (m *memStore) Bills(context.Context) ([]Bill, error) {
	return m.bills, nil
}

func newTestService(t *testing.T, store *memStore, at time.Time, opts ...ServiceOption) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: at}
	ie, err := NewInstrumentedEngine(NewEngine(DefaultRateTable(), WithClock(clock.Now)), newTestTelemetry(t).provider)
	require.NoError(t, err)
	return NewService(ie, store, store, opts...), clock
}

func TestServiceSeedsEmptyStore(t *testing.T) {
	store := &memStore{}
	svc, _ := newTestService(t, store, on(time.Tuesday, 10, 0), WithCapacity(4))

	st, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 4, st.Available)
	assert.Zero(t, store.saves)
}

func TestServiceParkReleaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	svc, clock := newTestService(t, store, on(time.Tuesday, 10, 0))

	res, err := svc.Park(ctx, VehicleCar, "ka01", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SlotID)
	assert.Equal(t, 1, store.saves)
	require.Len(t, store.slots, DefaultCapacity)
	assert.Equal(t, SlotOccupied, store.slots[0].State)

	found, err := svc.Find(ctx, "KA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 1, found[0].ID)

	clock.Advance(3 * time.Hour)
	bill, err := svc.Release(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(300), bill.Total)
	assert.Equal(t, 3, bill.DurationHours)
	assert.Equal(t, SlotEmpty, store.slots[0].State)

	bills, err := svc.Bills(ctx)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, bill.ID, bills[0].ID)
}

func TestServiceRejectionDoesNotSave(t *testing.T) {
	ctx := context.Background()
	store := &memStore{slots: NewSlots(1)}
	reg := prometheus.NewRegistry()
	metrics, err := NewPromMetrics(reg)
	require.NoError(t, err)
	svc, _ := newTestService(t, store, on(time.Tuesday, 10, 0), WithMetrics(metrics))

	_, err = svc.Release(ctx, 1)
	assert.ErrorIs(t, err, ErrSlotAlreadyEmpty)

	_, err = svc.Park(ctx, VehicleBike, "B1", 1)
	require.NoError(t, err)
	_, err = svc.Park(ctx, VehicleBike, "B2", 1)
	assert.ErrorIs(t, err, ErrNoAvailableSlot)

	assert.Equal(t, 1, store.saves)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rejections.WithLabelValues("release", "wrong_state")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.rejections.WithLabelValues("park", "no_slot")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.slots.WithLabelValues("occupied")))
}

func TestServiceSaveFailure(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	svc, _ := newTestService(t, store, on(time.Tuesday, 10, 0))

	_, err := svc.Park(context.Background(), VehicleCar, "X", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save slots")
	assert.Nil(t, store.slots)
}

func TestServiceReleaseSurvivesLedgerFailure(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	svc, _ := newTestService(t, store, on(time.Tuesday, 10, 0))

	_, err := svc.Park(ctx, VehicleTruck, "T", 1)
	require.NoError(t, err)

	store.appendErr = errors.New("ledger down")
	bill, err := svc.Release(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(300), bill.Total)
	assert.Empty(t, store.bills)
	assert.Equal(t, SlotEmpty, store.slots[0].State)
}

func TestServiceReserveAndCancel(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	svc, _ := newTestService(t, store, on(time.Tuesday, 10, 0))

	id, err := svc.Reserve(ctx, ReservationRequest{
		CustomerName:  "John Doe",
		VehicleType:   VehicleCar,
		VehicleNumber: "ab12",
		Date:          "2025-02-10",
		Time:          "09:00",
		DurationHours: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	res, err := svc.Park(ctx, VehicleCar, "P1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SlotID)

	r, err := svc.CancelReservation(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "AB12", r.Vehicle.Number)
	assert.Equal(t, SlotEmpty, store.slots[0].State)

	_, err = svc.CancelReservation(ctx, 1)
	assert.ErrorIs(t, err, ErrSlotNotReserved)
}

func TestServiceQuoteUsesClock(t *testing.T) {
	svc, _ := newTestService(t, &memStore{}, on(time.Saturday, 12, 0))

	b, err := svc.Quote(context.Background(), VehicleBike, 2)
	require.NoError(t, err)
	assert.True(t, b.RushHour)
	assert.Equal(t, float64(500), b.Total)
}

func TestServiceHolidays(t *testing.T) {
	day := time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)
	cal := NewHolidayCalendar([]Holiday{{Date: day, Name: "Christmas", RushFrom: 9 * 60, RushTo: 22 * 60}})
	svc, _ := newTestService(t, &memStore{}, on(time.Tuesday, 10, 0), WithCalendar(cal))

	hs := svc.Holidays()
	require.Len(t, hs, 1)
	assert.Equal(t, "Christmas", hs[0].Name)
	assert.Equal(t, DefaultMaxDurationHours, svc.MaxDuration())
}
