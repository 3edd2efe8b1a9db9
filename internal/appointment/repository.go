package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotExists          = errors.New("slot already exists for this date and time")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// InTx runs fn against a repository bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Repository) error) error

	// Slots
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	// ReserveSlot flips a free slot to booked in one conditional update.
	// false means the slot is missing or already booked.
	ReserveSlot(ctx context.Context, slotID, appointmentID uuid.UUID) (bool, error)
	// ReleaseSlot frees the slot if appointmentID holds it. Releasing a free
	// slot is a no-op.
	ReleaseSlot(ctx context.Context, slotID, appointmentID uuid.UUID) error
	SlotsForDate(ctx context.Context, date string) ([]Slot, error)
	SlotsFrom(ctx context.Context, date string) ([]Slot, error)
	InsertSlot(ctx context.Context, date, clock string) (*Slot, error)
	DeleteFreeSlot(ctx context.Context, id uuid.UUID) (bool, error)

	// Patients
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	FindPatientForBooking(ctx context.Context, email, name string) (*Patient, error)
	InsertPatient(ctx context.Context, d PatientDetails) (*Patient, error)
	UpdatePatientContact(ctx context.Context, id uuid.UUID, d PatientDetails) error

	// Appointments
	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, limit int) ([]Appointment, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error)
	// UpdateAppointmentStatus sets the status. With a non-nil from, the row
	// only changes if it still has that status.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from *Status, to Status) (*Appointment, error)

	// Dashboard
	CountByStatus(ctx context.Context) (map[Status]int, error)
	CountByDate(ctx context.Context, from, to string) (map[string]int, error)
}
