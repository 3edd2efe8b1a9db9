package appointment

import "errors"

var (
	ErrSlotUnavailable         = errors.New("slot is already booked or unavailable")
	ErrSlotBooked              = errors.New("cannot delete a booked slot")
	ErrInvalidStatus           = errors.New("invalid appointment status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidBooking          = errors.New("invalid booking request")
	ErrInvalidSlotTime         = errors.New("time must be in 'HH:MM AM/PM' format")
	ErrInvalidDate             = errors.New("date must be YYYY-MM-DD")
	ErrUpstreamUnavailable     = errors.New("booking dependency unavailable")
)
