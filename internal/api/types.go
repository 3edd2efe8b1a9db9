package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/patient"
)

type CreateAppointmentRequest struct {
	PatientName      string  `json:"patient_name"`
	PatientEmail     string  `json:"patient_email"`
	PatientPhone     string  `json:"patient_phone"`
	PatientDOB       string  `json:"patient_dob"`
	PatientGender    string  `json:"patient_gender"`
	EmergencyContact *string `json:"emergency_contact"`
	PersonalNumber   *string `json:"personal_number"`

	ServiceCategory string   `json:"service_category"`
	SpecificType    string   `json:"specific_type"`
	Description     string   `json:"description"`
	ServiceType     string   `json:"service_type"`
	Clinic          string   `json:"clinic"`
	FileURLs        []string `json:"file_urls"`

	Medications string `json:"medications"`
	Allergies   string `json:"allergies"`
	Conditions  string `json:"conditions"`
	Symptoms    string `json:"symptoms"`
	Reason      string `json:"reason"`
	Notes       string `json:"notes"`

	Date   string `json:"date"`
	Time   string `json:"time"`
	SlotID string `json:"slot_id"`
}

func (r CreateAppointmentRequest) toBooking(slotID *uuid.UUID) appointment.BookingRequest {
	return appointment.BookingRequest{
		Patient: appointment.PatientDetails{
			Name:             r.PatientName,
			Email:            r.PatientEmail,
			Phone:            r.PatientPhone,
			DOB:              r.PatientDOB,
			Gender:           r.PatientGender,
			EmergencyContact: r.EmergencyContact,
			PersonalNumber:   r.PersonalNumber,
		},
		ServiceCategory: r.ServiceCategory,
		SpecificType:    r.SpecificType,
		Description:     r.Description,
		ServiceType:     r.ServiceType,
		Clinic:          r.Clinic,
		FileURLs:        r.FileURLs,
		Medications:     r.Medications,
		Allergies:       r.Allergies,
		Conditions:      r.Conditions,
		Symptoms:        r.Symptoms,
		Reason:          r.Reason,
		Notes:           r.Notes,
		Date:            r.Date,
		Time:            r.Time,
		SlotID:          slotID,
	}
}

type BookingResponse struct {
	ID       uuid.UUID `json:"id"`
	CustomID string    `json:"custom_id"`
	Message  string    `json:"message"`
}

type CancelRequest struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type UploadURLRequest struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
}

type AddSlotRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type BookSlotRequest struct {
	SlotID    string `json:"slot_id"`
	PatientID string `json:"patient_id"`
	Notes     string `json:"notes"`
}

type MarkReadRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID  `json:"id"`
	CustomID           string     `json:"custom_id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	PatientName        string     `json:"patient_name"`
	PatientEmail       string     `json:"patient_email"`
	PatientPhone       string     `json:"patient_phone"`
	ServiceCategory    string     `json:"service_category"`
	SpecificType       string     `json:"specific_type"`
	Description        string     `json:"description"`
	FileURLs           []string   `json:"file_urls"`
	ServiceType        string     `json:"service_type"`
	Clinic             string     `json:"clinic"`
	Date               string     `json:"date"`
	Time               string     `json:"time"`
	SlotID             *uuid.UUID `json:"slot_id"`
	Status             string     `json:"status"`
	Notes              string     `json:"notes"`
	Reason             string     `json:"reason"`
	Symptoms           string     `json:"symptoms"`
	Medications        string     `json:"medications"`
	Allergies          string     `json:"allergies"`
	Conditions         string     `json:"conditions"`
	CancellationReason *string    `json:"cancellation_reason"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	files := a.FileURLs
	if files == nil {
		files = []string{}
	}
	return AppointmentResponse{
		ID:                 a.ID,
		CustomID:           a.DisplayID(),
		PatientID:          a.PatientID,
		PatientName:        a.PatientName,
		PatientEmail:       a.PatientEmail,
		PatientPhone:       a.PatientPhone,
		ServiceCategory:    a.ServiceCategory,
		SpecificType:       a.SpecificType,
		Description:        a.Description,
		FileURLs:           files,
		ServiceType:        a.ServiceType,
		Clinic:             a.Clinic,
		Date:               a.Date,
		Time:               a.Time,
		SlotID:             a.SlotID,
		Status:             string(a.Status),
		Notes:              a.Notes,
		Reason:             a.Reason,
		Symptoms:           a.Symptoms,
		Medications:        a.Medications,
		Allergies:          a.Allergies,
		Conditions:         a.Conditions,
		CancellationReason: a.CancellationReason,
		CreatedAt:          a.CreatedAt,
	}
}

type SlotResponse struct {
	ID            uuid.UUID  `json:"id"`
	Date          string     `json:"date"`
	Time          string     `json:"time"`
	IsBooked      bool       `json:"is_booked"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
}

func toSlotResponses(slots []appointment.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{ID: s.ID, Date: s.Date, Time: s.Time, IsBooked: s.IsBooked, AppointmentID: s.AppointmentID})
	}
	return out
}

type PatientResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	DOB              string    `json:"dob"`
	Gender           string    `json:"gender"`
	EmergencyContact *string   `json:"emergency_contact"`
	PersonalNumber   *string   `json:"personal_number"`
	LastVisit        *string   `json:"last_visit"`
	AISummary        *string   `json:"ai_summary"`
	CreatedAt        time.Time `json:"created_at"`

	LatestBookingID string  `json:"latest_booking_id"`
	LatestDate      *string `json:"latest_date"`
	LatestTime      *string `json:"latest_time"`
}

// PatientDetailResponse adds the newest appointment's clinical details.
type PatientDetailResponse struct {
	PatientResponse
	LatestServiceCategory *string  `json:"latest_service_category,omitempty"`
	LatestSpecificType    *string  `json:"latest_specific_type,omitempty"`
	LatestFileURLs        []string `json:"latest_file_urls,omitempty"`
	LatestNotes           *string  `json:"latest_notes,omitempty"`
}

func toPatientResponse(e patient.Entry) PatientResponse {
	resp := PatientResponse{
		ID:               e.ID,
		Name:             e.Name,
		Email:            e.Email,
		Phone:            e.Phone,
		DOB:              e.DOB,
		Gender:           e.Gender,
		EmergencyContact: e.EmergencyContact,
		PersonalNumber:   e.PersonalNumber,
		LastVisit:        e.LastVisit,
		AISummary:        e.AISummary,
		CreatedAt:        e.CreatedAt,
		LatestBookingID:  e.LatestBookingID(),
	}
	if e.Latest != nil {
		resp.LatestDate = &e.Latest.Date
		resp.LatestTime = &e.Latest.Time
	}
	return resp
}

func toPatientDetail(e patient.Entry) PatientDetailResponse {
	resp := PatientDetailResponse{PatientResponse: toPatientResponse(e)}
	if l := e.Latest; l != nil {
		resp.LatestServiceCategory = &l.ServiceCategory
		resp.LatestSpecificType = &l.SpecificType
		resp.LatestFileURLs = l.FileURLs
		resp.LatestNotes = &l.Notes
	}
	return resp
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        UserResponse `json:"user"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
