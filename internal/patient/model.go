package patient

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-booking/internal/appointment"
)

const (
	NewPatientLabel = "New Patient"
	NoHistoryText   = "No medical history available to analyze."
)

var ErrInvalidRecord = errors.New("invalid medical record")

type Prescription struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Duration  string `json:"duration"`
	Frequency string `json:"frequency"`
}

type MedicalRecord struct {
	ID            uuid.UUID      `json:"id"`
	PatientID     uuid.UUID      `json:"patient_id"`
	Date          string         `json:"date"`
	DoctorName    string         `json:"doctor_name"`
	Diagnosis     string         `json:"diagnosis"`
	Notes         string         `json:"notes"`
	Prescriptions []Prescription `json:"prescriptions"`
	Advice        *string        `json:"advice"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (r *MedicalRecord) validate() error {
	r.Date = strings.TrimSpace(r.Date)
	r.DoctorName = strings.TrimSpace(r.DoctorName)
	r.Diagnosis = strings.TrimSpace(r.Diagnosis)
	switch {
	case r.Date == "":
		return fmt.Errorf("%w: date is required", ErrInvalidRecord)
	case r.DoctorName == "":
		return fmt.Errorf("%w: doctor_name is required", ErrInvalidRecord)
	case r.Diagnosis == "":
		return fmt.Errorf("%w: diagnosis is required", ErrInvalidRecord)
	}
	if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRecord)
	}
	if r.Prescriptions == nil {
		r.Prescriptions = []Prescription{}
	}
	return nil
}

// LatestAppointment is the newest appointment of a patient, if any.
type LatestAppointment struct {
	ID              uuid.UUID
	CustomID        string
	Date            string
	Time            string
	ServiceCategory string
	SpecificType    string
	FileURLs        []string
	Notes           string
}

func (l LatestAppointment) bookingID() string {
	return appointment.Appointment{ID: l.ID, CustomID: l.CustomID}.DisplayID()
}

// Entry is one patient as listed in the registry, with their latest booking.
type Entry struct {
	appointment.Patient
	Latest *LatestAppointment
}

// LatestBookingID is the reference of the newest appointment, or
// NewPatientLabel when there is none.
func (e Entry) LatestBookingID() string {
	if e.Latest == nil {
		return NewPatientLabel
	}
	return e.Latest.bookingID()
}

// FormatHistory renders records one per line for the summarizer.
func FormatHistory(records []MedicalRecord) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		line := fmt.Sprintf("- Date: %s | Diagnosis: %s | Notes: %s", orDefault(r.Date, "Unknown Date"), orDefault(r.Diagnosis, "No Diagnosis"), r.Notes)
		if len(r.Prescriptions) > 0 {
			meds := make([]string, 0, len(r.Prescriptions))
			for _, rx := range r.Prescriptions {
				meds = append(meds, fmt.Sprintf("%s (%s)", rx.Name, rx.Dosage))
			}
			line += " | Meds: " + strings.Join(meds, ", ")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
