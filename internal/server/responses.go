package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"vacancy-vault/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type ParkRequest struct {
	VehicleType   string `json:"vehicle_type" validate:"required,vehicle_type"`
	VehicleNumber string `json:"vehicle_number" validate:"required,max=20"`
	Hours         int    `json:"hours" validate:"required,gte=1"`
}

type LeaveRequest struct {
	SlotNumber int `json:"slot_number" validate:"required,gte=1"`
}

type ReserveRequest struct {
	CustomerName  string `json:"customer_name" validate:"required,max=100"`
	VehicleType   string `json:"vehicle_type" validate:"required,vehicle_type"`
	VehicleNumber string `json:"vehicle_number" validate:"required,max=20"`
	Date          string `json:"date" validate:"required,datetime=02-01-06"`
	Time          string `json:"time" validate:"required,datetime=15:04"`
	DurationHours int    `json:"duration_hours" validate:"required,gte=1"`
}

type QuoteRequest struct {
	VehicleType string `json:"vehicle_type" validate:"required,vehicle_type"`
	Hours       int    `json:"hours" validate:"required,gte=1"`
}

type ReservationView struct {
	CustomerName  string `json:"customer_name"`
	VehicleType   string `json:"vehicle_type"`
	VehicleNumber string `json:"vehicle_number"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	DurationHours int    `json:"duration_hours"`
}

type SlotView struct {
	SlotNumber     int              `json:"slot_number"`
	State          string           `json:"state"`
	VehicleType    string           `json:"vehicle_type,omitempty"`
	VehicleNumber  string           `json:"vehicle_number,omitempty"`
	Arrival        *time.Time       `json:"arrival,omitempty"`
	ExpectedPickup *time.Time       `json:"expected_pickup,omitempty"`
	Weekday        string           `json:"weekday,omitempty"`
	Charge         float64          `json:"charge,omitempty"`
	Reservation    *ReservationView `json:"reservation,omitempty"`
}

type LotView struct {
	Capacity  int        `json:"capacity"`
	Available int        `json:"available"`
	Occupied  int        `json:"occupied"`
	Reserved  int        `json:"reserved"`
	Slots     []SlotView `json:"slots"`
}

type ChargeView struct {
	VehicleType   string  `json:"vehicle_type"`
	BaseRate      float64 `json:"base_rate"`
	Surcharge     float64 `json:"surcharge"`
	RatePerHour   float64 `json:"rate_per_hour"`
	DurationHours int     `json:"duration_hours"`
	Total         float64 `json:"total"`
	RushHour      bool    `json:"rush_hour"`
	NightRate     bool    `json:"night_rate"`
	Holiday       string  `json:"holiday,omitempty"`
}

type ParkView struct {
	SlotNumber    int        `json:"slot_number"`
	VehicleType   string     `json:"vehicle_type"`
	VehicleNumber string     `json:"vehicle_number"`
	Charge        ChargeView `json:"charge"`
}

type BillView struct {
	ID            string    `json:"id"`
	SlotNumber    int       `json:"slot_number"`
	VehicleType   string    `json:"vehicle_type"`
	VehicleNumber string    `json:"vehicle_number"`
	Arrival       time.Time `json:"arrival"`
	Departure     time.Time `json:"departure"`
	DurationHours int       `json:"duration_hours"`
	BaseRate      float64   `json:"base_rate"`
	Surcharge     float64   `json:"surcharge"`
	Total         float64   `json:"total"`
}

type BillsView struct {
	Count   int        `json:"count"`
	Revenue float64    `json:"revenue"`
	Bills   []BillView `json:"bills"`
}

type StatsView struct {
	Total         int                `json:"total"`
	Available     int                `json:"available"`
	Occupied      int                `json:"occupied"`
	Reserved      int                `json:"reserved"`
	Revenue       float64            `json:"revenue"`
	OccupancyRate float64            `json:"occupancy_rate"`
	RevenueByType map[string]float64 `json:"revenue_by_type"`
}

type HolidayView struct {
	Date     string `json:"date"`
	Name     string `json:"name"`
	RushFrom string `json:"rush_from"`
	RushTo   string `json:"rush_to"`
}

func newSlotView(s *parking.Slot) SlotView {
	v := SlotView{SlotNumber: s.ID, State: s.State.String()}
	switch s.State {
	case parking.SlotOccupied:
		occ := s.Occupant
		v.VehicleType = string(occ.Vehicle.Type)
		v.VehicleNumber = occ.Vehicle.Number
		if !occ.Arrival.IsZero() {
			arrival := occ.Arrival
			v.Arrival = &arrival
		}
		if !occ.ExpectedPickup.IsZero() {
			pickup := occ.ExpectedPickup
			v.ExpectedPickup = &pickup
		}
		v.Weekday = occ.Weekday
		v.Charge = occ.Charge
	case parking.SlotReserved:
		r := s.Reservation
		v.Reservation = newReservationView(*r)
	}
	return v
}

func newReservationView(r parking.Reservation) *ReservationView {
	return &ReservationView{
		CustomerName:  r.CustomerName,
		VehicleType:   string(r.Vehicle.Type),
		VehicleNumber: r.Vehicle.Number,
		Date:          r.Date,
		Time:          r.Time,
		DurationHours: r.DurationHours,
	}
}

func newSlotViews(slots []*parking.Slot) []SlotView {
	views := make([]SlotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, newSlotView(s))
	}
	return views
}

func newChargeView(c parking.ChargeBreakdown) ChargeView {
	return ChargeView{
		VehicleType:   string(c.VehicleType),
		BaseRate:      c.BaseRate,
		Surcharge:     c.Surcharge,
		RatePerHour:   c.RatePerHour,
		DurationHours: c.DurationHours,
		Total:         c.Total,
		RushHour:      c.RushHour,
		NightRate:     c.NightRate,
		Holiday:       c.Holiday,
	}
}

func newBillView(b parking.Bill) BillView {
	return BillView{
		ID:            b.ID,
		SlotNumber:    b.SlotID,
		VehicleType:   string(b.Vehicle.Type),
		VehicleNumber: b.Vehicle.Number,
		Arrival:       b.Arrival,
		Departure:     b.Departure,
		DurationHours: b.DurationHours,
		BaseRate:      b.BaseRate,
		Surcharge:     b.Surcharge,
		Total:         b.Total,
	}
}

func newStatsView(st parking.Stats) StatsView {
	byType := make(map[string]float64, len(st.RevenueByType))
	for vt, rev := range st.RevenueByType {
		byType[string(vt)] = rev
	}
	return StatsView{
		Total:         st.Total,
		Available:     st.Available,
		Occupied:      st.Occupied,
		Reserved:      st.Reserved,
		Revenue:       st.Revenue,
		OccupancyRate: st.OccupancyRate,
		RevenueByType: byType,
	}
}

func newHolidayView(h parking.Holiday) HolidayView {
	return HolidayView{
		Date:     h.Date.Format("02-01-2006"),
		Name:     h.Name,
		RushFrom: h.RushFrom.String(),
		RushTo:   h.RushTo.String(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}

// WriteErrorData is WriteError with a payload, used for validation details
// and oracle statuses.
func WriteErrorData(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}
