package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAppointment Type = "appointment"
	TypeSystem      Type = "system"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	RelatedID *string   `json:"related_id"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// AppointmentInserted is the payload published by the appointments insert
// trigger.
type AppointmentInserted struct {
	ID          uuid.UUID `json:"id"`
	PatientName string    `json:"patient_name"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
}

var notificationNamespace = uuid.MustParse("6f1c0a52-4a8e-4d0b-9f5e-2b7d8c1e9a30")

// ForAppointment builds the "new appointment" notification. The ID is derived
// from the appointment so every replica produces the same notification.
func ForAppointment(ev AppointmentInserted, now time.Time) Notification {
	name := ev.PatientName
	if name == "" {
		name = "Unknown"
	}
	related := ev.ID.String()

	return Notification{
		ID:        uuid.NewSHA1(notificationNamespace, []byte("appointment:"+related)),
		Title:     "New Appointment Booked",
		Message:   fmt.Sprintf("%s booked for %s at %s", name, ev.Date, ev.Time),
		Type:      TypeAppointment,
		RelatedID: &related,
		CreatedAt: now,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
