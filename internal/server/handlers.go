package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vacancy-vault/internal/detection"
	"vacancy-vault/internal/logging"
	"vacancy-vault/internal/monitoring"
	"vacancy-vault/internal/parking"
)

type Handler struct {
	lot         *parking.Service
	oracle      *detection.Client
	serviceName string
}

func NewHandler(lot *parking.Service, oracle *detection.Client, serviceName string) *Handler {
	return &Handler{lot: lot, oracle: oracle, serviceName: serviceName}
}

// statusFor maps engine errors to HTTP status codes. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, parking.ErrNoAvailableSlot),
		errors.Is(err, parking.ErrSlotAlreadyEmpty),
		errors.Is(err, parking.ErrSlotNotReserved):
		return http.StatusConflict
	case errors.Is(err, parking.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, parking.ErrInvalidDuration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error(ctx).Err(err).Str("path", r.URL.Path).Msg("request failed")
		monitoring.CaptureException(err, map[string]string{"path": r.URL.Path, "method": r.Method})
		WriteError(ctx, w, status, "Internal server error")
		return
	}
	WriteError(ctx, w, status, err.Error())
}

// decode reads a JSON body into req and validates it. It writes the 400
// response itself and reports false on failure.
func decode(w http.ResponseWriter, r *http.Request, req any) bool {
	ctx := r.Context()
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return check(w, r, req)
}

func check(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := validateRequest(req); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			WriteErrorData(r.Context(), w, http.StatusBadRequest, verr.Error(), verr)
			return false
		}
		WriteError(r.Context(), w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slots, err := h.lot.Slots(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	view := LotView{Capacity: len(slots), Slots: newSlotViews(slots)}
	for _, s := range slots {
		switch s.State {
		case parking.SlotEmpty:
			view.Available++
		case parking.SlotOccupied:
			view.Occupied++
		case parking.SlotReserved:
			view.Reserved++
		}
	}
	WriteSuccess(ctx, w, "Slots retrieved successfully", view)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := h.lot.Stats(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(ctx, w, "Stats retrieved successfully", newStatsView(st))
}

func (h *Handler) ParkVehicle(w http.ResponseWriter, r *http.Request) {
	var req ParkRequest
	if !decode(w, r, &req) {
		return
	}
	h.park(w, r, parking.ParseVehicleType(req.VehicleType), req.VehicleNumber, req.Hours)
}

func (h *Handler) park(w http.ResponseWriter, r *http.Request, vt parking.VehicleType, number string, hours int) {
	ctx := r.Context()
	res, err := h.lot.Park(ctx, vt, number, hours)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(ctx, w, "Vehicle parked successfully", ParkView{
		SlotNumber:    res.SlotID,
		VehicleType:   string(vt),
		VehicleNumber: parking.NormalizeVehicleNumber(number),
		Charge:        newChargeView(res.Charge),
	})
}

func (h *Handler) LeaveSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req LeaveRequest
	if !decode(w, r, &req) {
		return
	}

	bill, err := h.lot.Release(ctx, req.SlotNumber)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(ctx, w, "Slot vacated successfully", newBillView(bill))
}

func (h *Handler) ReserveSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ReserveRequest
	if !decode(w, r, &req) {
		return
	}

	slotID, err := h.lot.Reserve(ctx, parking.ReservationRequest{
		CustomerName:  req.CustomerName,
		VehicleType:   parking.ParseVehicleType(req.VehicleType),
		VehicleNumber: req.VehicleNumber,
		Date:          req.Date,
		Time:          req.Time,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(ctx, w, "Slot reserved successfully", map[string]any{
		"slot_number": slotID,
	})
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slotID, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil || slotID < 1 {
		WriteError(ctx, w, http.StatusBadRequest, "Slot number must be a positive integer")
		return
	}

	res, err := h.lot.CancelReservation(ctx, slotID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(ctx, w, "Reservation cancelled", map[string]any{
		"slot_number": slotID,
		"reservation": newReservationView(res),
	})
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	hours, err := strconv.Atoi(q.Get("hours"))
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "hours must be an integer")
		return
	}
	req := QuoteRequest{VehicleType: q.Get("vehicle_type"), Hours: hours}
	if !check(w, r, &req) {
		return
	}

	b, err := h.lot.Quote(ctx, parking.ParseVehicleType(req.VehicleType), req.Hours)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(ctx, w, "Quote calculated", newChargeView(b))
}

func (h *Handler) FindVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	number := chi.URLParam(r, "number")
	if number == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Vehicle number is required")
		return
	}

	found, err := h.lot.Find(ctx, number)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if len(found) == 0 {
		WriteError(ctx, w, http.StatusNotFound, "Vehicle not found")
		return
	}
	WriteSuccess(ctx, w, fmt.Sprintf("%d vehicle(s) found", len(found)), newSlotViews(found))
}

func (h *Handler) GetBills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bills, err := h.lot.Bills(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	view := BillsView{Count: len(bills), Bills: make([]BillView, 0, len(bills))}
	for _, b := range bills {
		view.Revenue += b.Total
		view.Bills = append(view.Bills, newBillView(b))
	}
	WriteSuccess(ctx, w, "Bills retrieved successfully", view)
}

func (h *Handler) GetHolidays(w http.ResponseWriter, r *http.Request) {
	holidays := h.lot.Holidays()
	views := make([]HolidayView, 0, len(holidays))
	for _, hd := range holidays {
		views = append(views, newHolidayView(hd))
	}
	WriteSuccess(r.Context(), w, "Holidays retrieved successfully", views)
}

func writeDetection(w http.ResponseWriter, r *http.Request, st detection.Status) {
	logging.Debug(r.Context()).
		Str("status", st.Status).
		Str("phase", st.CurrentPhase).
		Msg("detection oracle replied")
	if st.Status == detection.StatusError {
		WriteErrorData(r.Context(), w, http.StatusBadGateway, st.Message, st)
		return
	}
	WriteSuccess(r.Context(), w, st.Message, st)
}

func (h *Handler) StartDetection(w http.ResponseWriter, r *http.Request) {
	writeDetection(w, r, h.oracle.Start(r.Context()))
}

func (h *Handler) DetectionResults(w http.ResponseWriter, r *http.Request) {
	writeDetection(w, r, h.oracle.Poll(r.Context()))
}

func (h *Handler) ResetDetection(w http.ResponseWriter, r *http.Request) {
	writeDetection(w, r, h.oracle.Reset(r.Context()))
}

func (h *Handler) DetectionHealth(w http.ResponseWriter, r *http.Request) {
	writeDetection(w, r, h.oracle.Health(r.Context()))
}

// ParkDetected parks the vehicle the oracle has finished reading.
func (h *Handler) ParkDetected(w http.ResponseWriter, r *http.Request) {
	st := h.oracle.Poll(r.Context())
	if st.Status == detection.StatusError {
		writeDetection(w, r, st)
		return
	}
	if st.Status != detection.StatusCompleted || st.Results == nil || !st.Results.Complete() {
		WriteErrorData(r.Context(), w, http.StatusUnprocessableEntity, "Detection results are not complete", st)
		return
	}
	res := st.Results
	h.park(w, r, parking.ParseVehicleType(res.VehicleType), res.LicensePlate, res.Hours())
}
