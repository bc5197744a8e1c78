package parking

import "errors"

var (
	ErrNoAvailableSlot  = errors.New("no available slots")
	ErrSlotAlreadyEmpty = errors.New("slot is already empty")
	ErrSlotNotFound     = errors.New("slot not found")
	ErrSlotNotReserved  = errors.New("slot is not reserved")
	ErrInvalidDuration  = errors.New("invalid parking duration")
)
