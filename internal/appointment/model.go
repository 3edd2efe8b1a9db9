package appointment

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultServiceType = "General Consultation"
	DefaultClinic      = "Central Clinic"

	dateLayout = "2006-01-02"
)

type Patient struct {
	ID               uuid.UUID
	Name             string
	Email            string
	Phone            string
	DOB              string
	Gender           string
	EmergencyContact *string
	PersonalNumber   *string
	LastVisit        *string
	AISummary        *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Slot is a bookable date/time. IsBooked and AppointmentID are always set
// and cleared together; the slots table enforces it with a CHECK constraint.
type Slot struct {
	ID            uuid.UUID
	Date          string // YYYY-MM-DD
	Time          string // 12-hour, e.g. "9:00 AM"
	IsBooked      bool
	AppointmentID *uuid.UUID
	CreatedAt     time.Time
}

type Appointment struct {
	ID                 uuid.UUID
	CustomID           string
	PatientID          uuid.UUID
	PatientName        string
	PatientEmail       string
	PatientPhone       string
	ServiceCategory    string
	SpecificType       string
	Description        string
	ServiceType        string
	Clinic             string
	FileURLs           []string
	Date               string
	Time               string
	SlotID             *uuid.UUID
	Status             Status
	Notes              string
	Reason             string
	Symptoms           string
	Medications        string
	Allergies          string
	Conditions         string
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DisplayID is the booking reference shown to staff. Rows created before
// booking IDs existed fall back to the tail of the UUID.
func (a Appointment) DisplayID() string {
	if a.CustomID != "" {
		return a.CustomID
	}
	s := strings.ReplaceAll(a.ID.String(), "-", "")
	return "#" + strings.ToUpper(s[len(s)-6:])
}

// PatientDetails is what a booking form carries about the person booking.
type PatientDetails struct {
	Name             string
	Email            string
	Phone            string
	DOB              string
	Gender           string
	EmergencyContact *string
	PersonalNumber   *string
}

type BookingRequest struct {
	Patient PatientDetails

	ServiceCategory string
	SpecificType    string
	Description     string
	ServiceType     string
	Clinic          string
	FileURLs        []string

	Medications string
	Allergies   string
	Conditions  string
	Symptoms    string
	Reason      string
	Notes       string

	Date   string
	Time   string
	SlotID *uuid.UUID
}

func (r *BookingRequest) normalize() {
	r.Patient.Name = strings.TrimSpace(r.Patient.Name)
	r.Patient.Email = strings.TrimSpace(r.Patient.Email)
	r.Patient.Phone = strings.TrimSpace(r.Patient.Phone)
	if strings.TrimSpace(r.ServiceType) == "" {
		r.ServiceType = DefaultServiceType
	}
	if strings.TrimSpace(r.Clinic) == "" {
		r.Clinic = DefaultClinic
	}
	if r.FileURLs == nil {
		r.FileURLs = []string{}
	}
}

func (r BookingRequest) validate() error {
	switch {
	case r.Patient.Name == "":
		return fmt.Errorf("%w: patient name is required", ErrInvalidBooking)
	case r.Patient.Email == "":
		return fmt.Errorf("%w: patient email is required", ErrInvalidBooking)
	case r.Patient.Phone == "":
		return fmt.Errorf("%w: patient phone is required", ErrInvalidBooking)
	case strings.TrimSpace(r.Time) == "":
		return fmt.Errorf("%w: time is required", ErrInvalidBooking)
	}
	if _, err := mail.ParseAddress(r.Patient.Email); err != nil {
		return fmt.Errorf("%w: patient email is invalid", ErrInvalidBooking)
	}
	if _, err := time.Parse(dateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidBooking)
	}
	switch r.Patient.Gender {
	case "", "Male", "Female", "Other":
	default:
		return fmt.Errorf("%w: gender must be Male, Female or Other", ErrInvalidBooking)
	}
	return nil
}

type BookingResult struct {
	AppointmentID uuid.UUID
	BookingID     string
	Appointment   *Appointment
}
