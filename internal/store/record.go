package store

import (
	"fmt"
	"sort"
	"time"

	"vacancy-vault/internal/parking"
)

const (
	recordDateLayout  = "02-01-06"
	recordTimeLayout  = "15:04"
	holidayDateLayout = "02-01-2006"
)

// SlotRecord is one slot as it is written to disk or Redis.
type SlotRecord struct {
	Slot               int                `json:"slot"`
	VehicleType        *string            `json:"vehicleType"`
	VehicleNumber      *string            `json:"vehicleNumber"`
	ArrivalDate        *string            `json:"arrivalDate"`
	ArrivalTime        *string            `json:"arrivalTime"`
	ExpectedPickupDate *string            `json:"expectedPickupDate"`
	ExpectedPickupTime *string            `json:"expectedPickupTime"`
	Weekday            *string            `json:"weekday"`
	Charge             float64            `json:"charge"`
	IsReserved         bool               `json:"isReserved"`
	ReservationData    *ReservationRecord `json:"reservationData"`
}

type ReservationRecord struct {
	CustomerName  string `json:"customerName"`
	VehicleType   string `json:"vehicleType"`
	VehicleNumber string `json:"vehicleNumber"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Duration      int    `json:"duration"`
}

type HolidayRecord struct {
	Date     string `json:"date"`
	Name     string `json:"name"`
	RushFrom string `json:"rushFrom"`
	RushTo   string `json:"rushTo"`
}

type BillRecord struct {
	ID            string    `json:"id"`
	Slot          int       `json:"slot"`
	VehicleType   string    `json:"vehicleType"`
	VehicleNumber string    `json:"vehicleNumber"`
	Arrival       time.Time `json:"arrival"`
	Departure     time.Time `json:"departure"`
	DurationHours int       `json:"durationHours"`
	BaseRate      float64   `json:"baseRate"`
	Surcharge     float64   `json:"surcharge"`
	Total         float64   `json:"total"`
}

func strPtr(s string) *string { return &s }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func splitTime(t time.Time) (date, clock *string) {
	if t.IsZero() {
		return nil, nil
	}
	return strPtr(t.Format(recordDateLayout)), strPtr(t.Format(recordTimeLayout))
}

// joinTime returns the zero time when either half is missing or malformed.
func joinTime(date, clock *string, loc *time.Location) time.Time {
	if date == nil || clock == nil {
		return time.Time{}
	}
	t, err := time.ParseInLocation(recordDateLayout+" "+recordTimeLayout, *date+" "+*clock, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func EncodeSlots(slots parking.Slots) []SlotRecord {
	records := make([]SlotRecord, 0, len(slots))
	for _, s := range slots {
		rec := SlotRecord{Slot: s.ID}
		switch s.State {
		case parking.SlotOccupied:
			occ := s.Occupant
			rec.VehicleType = strPtr(string(occ.Vehicle.Type))
			rec.VehicleNumber = strPtr(occ.Vehicle.Number)
			rec.ArrivalDate, rec.ArrivalTime = splitTime(occ.Arrival)
			rec.ExpectedPickupDate, rec.ExpectedPickupTime = splitTime(occ.ExpectedPickup)
			if occ.Weekday != "" {
				rec.Weekday = strPtr(occ.Weekday)
			}
			rec.Charge = occ.Charge
		case parking.SlotReserved:
			r := s.Reservation
			rec.IsReserved = true
			rec.ReservationData = &ReservationRecord{
				CustomerName:  r.CustomerName,
				VehicleType:   string(r.Vehicle.Type),
				VehicleNumber: r.Vehicle.Number,
				Date:          r.Date,
				Time:          r.Time,
				Duration:      r.DurationHours,
			}
		}
		records = append(records, rec)
	}
	return records
}

// DecodeSlots rebuilds the collection from records in any order. Ids must
// run 1..N without gaps. A reserved record wins over vehicle fields left on
// the same record and stays reserved even when its reservation data is null.
func DecodeSlots(records []SlotRecord, loc *time.Location) (parking.Slots, error) {
	if len(records) == 0 {
		return nil, nil
	}
	sorted := make([]SlotRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot < sorted[j].Slot })

	slots := make(parking.Slots, 0, len(sorted))
	for i, rec := range sorted {
		if rec.Slot != i+1 {
			return nil, fmt.Errorf("slot record %d at position %d: ids must run 1..%d", rec.Slot, i+1, len(sorted))
		}
		s := parking.NewSlot(rec.Slot)
		switch {
		case rec.IsReserved && rec.ReservationData == nil:
			s.Reserve(&parking.Reservation{})
		case rec.IsReserved:
			r := rec.ReservationData
			s.Reserve(&parking.Reservation{
				CustomerName:  r.CustomerName,
				Vehicle:       parking.NewVehicle(parking.ParseVehicleType(r.VehicleType), r.VehicleNumber),
				Date:          r.Date,
				Time:          r.Time,
				DurationHours: r.Duration,
			})
		case deref(rec.VehicleType) != "":
			s.Park(&parking.Occupant{
				Vehicle:        parking.NewVehicle(parking.ParseVehicleType(*rec.VehicleType), deref(rec.VehicleNumber)),
				Arrival:        joinTime(rec.ArrivalDate, rec.ArrivalTime, loc),
				ExpectedPickup: joinTime(rec.ExpectedPickupDate, rec.ExpectedPickupTime, loc),
				Weekday:        deref(rec.Weekday),
				Charge:         rec.Charge,
			})
		}
		slots = append(slots, s)
	}
	return slots, nil
}

func EncodeHolidays(holidays []parking.Holiday) []HolidayRecord {
	records := make([]HolidayRecord, 0, len(holidays))
	for _, h := range holidays {
		records = append(records, HolidayRecord{
			Date:     h.Date.Format(holidayDateLayout),
			Name:     h.Name,
			RushFrom: h.RushFrom.String(),
			RushTo:   h.RushTo.String(),
		})
	}
	return records
}

func DecodeHolidays(records []HolidayRecord, loc *time.Location) ([]parking.Holiday, error) {
	holidays := make([]parking.Holiday, 0, len(records))
	for _, rec := range records {
		date, err := time.ParseInLocation(holidayDateLayout, rec.Date, loc)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", rec.Name, err)
		}
		from, err := parking.ParseClockTime(rec.RushFrom)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", rec.Name, err)
		}
		to, err := parking.ParseClockTime(rec.RushTo)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", rec.Name, err)
		}
		holidays = append(holidays, parking.Holiday{
			Date:     date,
			Name:     rec.Name,
			RushFrom: from,
			RushTo:   to,
		})
	}
	return holidays, nil
}

func EncodeBill(b parking.Bill) BillRecord {
	return BillRecord{
		ID:            b.ID,
		Slot:          b.SlotID,
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

func DecodeBill(rec BillRecord) parking.Bill {
	return parking.Bill{
		ID:            rec.ID,
		SlotID:        rec.Slot,
		Vehicle:       parking.NewVehicle(parking.ParseVehicleType(rec.VehicleType), rec.VehicleNumber),
		Arrival:       rec.Arrival,
		Departure:     rec.Departure,
		DurationHours: rec.DurationHours,
		BaseRate:      rec.BaseRate,
		Surcharge:     rec.Surcharge,
		Total:         rec.Total,
	}
}

// DefaultHolidays is the schedule written when none has been stored yet.
func DefaultHolidays() []HolidayRecord {
	return []HolidayRecord{
		{Date: "01-01-2025", Name: "New Year's Day", RushFrom: "00:00", RushTo: "23:59"},
		{Date: "26-01-2025", Name: "Republic Day", RushFrom: "08:00", RushTo: "14:00"},
		{Date: "02-02-2025", Name: "Vasant Panchami", RushFrom: "09:00", RushTo: "17:00"},
		{Date: "26-02-2025", Name: "Maha Shivaratri", RushFrom: "09:00", RushTo: "17:00"},
		{Date: "13-03-2025", Name: "Holika Dahana", RushFrom: "09:00", RushTo: "22:00"},
		{Date: "14-03-2025", Name: "Holi", RushFrom: "09:00", RushTo: "20:00"},
		{Date: "28-03-2025", Name: "Jamat Ul-Vida", RushFrom: "09:00", RushTo: "17:00"},
		{Date: "30-03-2025", Name: "Chaitra Sukhladi / Ugadi / Gudi Padwa", RushFrom: "09:00", RushTo: "17:00"},
		{Date: "31-03-2025", Name: "Eid-ul-Fitr", RushFrom: "08:00", RushTo: "21:00"},
		{Date: "06-04-2025", Name: "Rama Navami", RushFrom: "09:00", RushTo: "17:00"},
		{Date: "10-04-2025", Name: "Mahavir Jayanti", RushFrom: "09:00", RushTo: "17:00"},
		{Date: "18-04-2025", Name: "Good Friday", RushFrom: "08:00", RushTo: "16:00"},
		{Date: "12-05-2025", Name: "Buddha Purnima", RushFrom: "09:00", RushTo: "18:00"},
		{Date: "07-06-2025", Name: "Eid ul-Adha (Bakrid)", RushFrom: "08:00", RushTo: "21:00"},
		{Date: "06-07-2025", Name: "Muharram", RushFrom: "07:00", RushTo: "19:00"},
		{Date: "09-08-2025", Name: "Raksha Bandhan", RushFrom: "10:00", RushTo: "18:00"},
		{Date: "15-08-2025", Name: "Independence Day", RushFrom: "08:00", RushTo: "14:00"},
		{Date: "16-08-2025", Name: "Janmashtami", RushFrom: "08:00", RushTo: "23:00"},
		{Date: "27-08-2025", Name: "Ganesh Chaturthi", RushFrom: "08:00", RushTo: "21:00"},
		{Date: "05-09-2025", Name: "Milad-un-Nabi / Onam", RushFrom: "09:00", RushTo: "17:00"},
		{Date: "29-09-2025", Name: "Maha Saptami", RushFrom: "06:00", RushTo: "23:59"},
		{Date: "30-09-2025", Name: "Maha Ashtami", RushFrom: "06:00", RushTo: "23:59"},
		{Date: "01-10-2025", Name: "Maha Navami", RushFrom: "06:00", RushTo: "23:59"},
		{Date: "02-10-2025", Name: "Mahatma Gandhi Jayanti / Dussehra", RushFrom: "08:00", RushTo: "17:00"},
		{Date: "07-10-2025", Name: "Maharishi Valmiki Jayanti", RushFrom: "09:00", RushTo: "17:00"},
		{Date: "20-10-2025", Name: "Diwali", RushFrom: "10:00", RushTo: "23:59"},
		{Date: "22-10-2025", Name: "Govardhan Puja", RushFrom: "09:00", RushTo: "18:00"},
		{Date: "23-10-2025", Name: "Bhai Duj", RushFrom: "10:00", RushTo: "18:00"},
		{Date: "05-11-2025", Name: "Guru Nanak Jayanti", RushFrom: "09:00", RushTo: "19:00"},
		{Date: "24-11-2025", Name: "Guru Tegh Bahadur's Martyrdom Day", RushFrom: "09:00", RushTo: "17:00"},
		{Date: "25-12-2025", Name: "Christmas Day", RushFrom: "09:00", RushTo: "22:00"},
		{Date: "31-12-2025", Name: "New Year's Eve", RushFrom: "00:00", RushTo: "23:59"},
	}
}
