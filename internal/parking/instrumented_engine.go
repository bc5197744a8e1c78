package parking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentedEngine struct {
	*Engine
	telemetry *TelemetryProvider

	// Metrics
	parkingOperations     metric.Int64Counter
	leavingOperations     metric.Int64Counter
	reservationOperations metric.Int64Counter
	operationDuration     metric.Float64Histogram
	billedRevenue         metric.Float64Counter
}

func NewInstrumentedEngine(engine *Engine, telemetry *TelemetryProvider) (*InstrumentedEngine, error) {
	meter := telemetry.Meter()

	parkingOperations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of parking operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	leavingOperations, err := meter.Int64Counter("leaving_operations_total",
		metric.WithDescription("Total number of slot releases"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	reservationOperations, err := meter.Int64Counter("reservation_operations_total",
		metric.WithDescription("Total number of reservation and cancellation operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of engine operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	billedRevenue, err := meter.Float64Counter("billed_revenue_total",
		metric.WithDescription("Sum of bill totals issued on release"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedEngine{
		Engine:                engine,
		telemetry:             telemetry,
		parkingOperations:     parkingOperations,
		leavingOperations:     leavingOperations,
		reservationOperations: reservationOperations,
		operationDuration:     operationDuration,
		billedRevenue:         billedRevenue,
	}, nil
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNoAvailableSlot):
		return "no_slot"
	case errors.Is(err, ErrSlotAlreadyEmpty), errors.Is(err, ErrSlotNotReserved):
		return "wrong_state"
	case errors.Is(err, ErrSlotNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidDuration):
		return "invalid_duration"
	default:
		return "failed"
	}
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (ie *InstrumentedEngine) Park(ctx context.Context, slots Slots, vehicleType VehicleType, vehicleNumber string, hours int) (ParkResult, error) {
	ctx, span := ie.telemetry.Tracer().Start(ctx, "parking_engine.park",
		trace.WithAttributes(
			attribute.String("vehicle.type", string(vehicleType)),
			attribute.String("vehicle.number", NormalizeVehicleNumber(vehicleNumber)),
			attribute.Int("parking.duration_hours", hours),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("finding_available_slot")

	res, err := ie.Engine.Park(slots, vehicleType, vehicleNumber, hours)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "park"),
		attribute.String("vehicle_type", string(vehicleType)),
		attribute.String("status", statusOf(err)),
	}

	if err != nil {
		failSpan(span, err)
	} else {
		span.SetAttributes(
			attribute.Int("allocated_slot_number", res.SlotID),
			attribute.Float64("charge.total", res.Charge.Total),
			attribute.Bool("charge.rush_hour", res.Charge.RushHour),
			attribute.Bool("charge.night_rate", res.Charge.NightRate),
		)
		span.AddEvent("slot_allocated", trace.WithAttributes(
			attribute.Int("slot_number", res.SlotID),
		))
	}

	ie.parkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ie.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return res, err
}

func (ie *InstrumentedEngine) Release(ctx context.Context, slots Slots, slotID int) (Bill, error) {
	ctx, span := ie.telemetry.Tracer().Start(ctx, "parking_engine.release",
		trace.WithAttributes(
			attribute.Int("slot_number", slotID),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("releasing_slot")

	bill, err := ie.Engine.Release(slots, slotID)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "release"),
		attribute.String("status", statusOf(err)),
	}

	if err != nil {
		failSpan(span, err)
	} else {
		labels = append(labels, attribute.String("vehicle_type", string(bill.Vehicle.Type)))
		span.SetAttributes(
			attribute.String("bill.id", bill.ID),
			attribute.String("vehicle.number", bill.Vehicle.Number),
			attribute.Int("bill.duration_hours", bill.DurationHours),
			attribute.Float64("bill.total", bill.Total),
		)
		span.AddEvent("slot_released")
		ie.billedRevenue.Add(ctx, bill.Total, metric.WithAttributes(
			attribute.String("vehicle_type", string(bill.Vehicle.Type)),
		))
	}

	ie.leavingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ie.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return bill, err
}

func (ie *InstrumentedEngine) Reserve(ctx context.Context, slots Slots, req ReservationRequest) (int, error) {
	ctx, span := ie.telemetry.Tracer().Start(ctx, "parking_engine.reserve",
		trace.WithAttributes(
			attribute.String("vehicle.type", string(req.VehicleType)),
			attribute.String("reservation.date", req.Date),
			attribute.String("reservation.time", req.Time),
		))
	defer span.End()

	start := time.Now()

	slotID, err := ie.Engine.Reserve(slots, req)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "reserve"),
		attribute.String("status", statusOf(err)),
	}

	if err != nil {
		failSpan(span, err)
	} else {
		span.SetAttributes(attribute.Int("reserved_slot_number", slotID))
		span.AddEvent("slot_reserved")
	}

	ie.reservationOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ie.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return slotID, err
}

func (ie *InstrumentedEngine) CancelReservation(ctx context.Context, slots Slots, slotID int) (Reservation, error) {
	ctx, span := ie.telemetry.Tracer().Start(ctx, "parking_engine.cancel_reservation",
		trace.WithAttributes(
			attribute.Int("slot_number", slotID),
		))
	defer span.End()

	start := time.Now()

	r, err := ie.Engine.CancelReservation(slots, slotID)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "cancel_reservation"),
		attribute.String("status", statusOf(err)),
	}

	if err != nil {
		failSpan(span, err)
	} else {
		span.AddEvent("reservation_cancelled")
	}

	ie.reservationOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ie.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return r, err
}

func (ie *InstrumentedEngine) Quote(ctx context.Context, vehicleType VehicleType, hours int, at time.Time) (ChargeBreakdown, error) {
	_, span := ie.telemetry.Tracer().Start(ctx, "parking_engine.quote",
		trace.WithAttributes(
			attribute.String("vehicle.type", string(vehicleType)),
			attribute.Int("parking.duration_hours", hours),
		))
	defer span.End()

	b, err := ie.Engine.Quote(vehicleType, hours, at)
	if err != nil {
		failSpan(span, err)
		return b, err
	}

	span.SetAttributes(
		attribute.Float64("charge.total", b.Total),
		attribute.Bool("charge.rush_hour", b.RushHour),
		attribute.Bool("charge.night_rate", b.NightRate),
	)
	return b, nil
}

func (ie *InstrumentedEngine) Stats(ctx context.Context, slots Slots) Stats {
	ctx, span := ie.telemetry.Tracer().Start(ctx, "parking_engine.stats")
	defer span.End()

	start := time.Now()

	st := ie.Engine.Stats(slots)

	span.SetAttributes(
		attribute.Int("slots.available", st.Available),
		attribute.Int("slots.occupied", st.Occupied),
		attribute.Int("slots.reserved", st.Reserved),
		attribute.Int("total_capacity", st.Total),
	)

	ie.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "stats"),
		attribute.String("status", "success"),
	))

	return st
}

func (ie *InstrumentedEngine) Find(ctx context.Context, slots Slots, query string) []*Slot {
	_, span := ie.telemetry.Tracer().Start(ctx, "parking_engine.find",
		trace.WithAttributes(
			attribute.String("query", query),
		))
	defer span.End()

	found := ie.Engine.Find(slots, query)
	if len(found) == 0 {
		span.AddEvent("vehicle_not_found")
	} else {
		span.SetAttributes(attribute.Int("found_count", len(found)))
	}
	return found
}
