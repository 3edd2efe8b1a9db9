package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/notification"
	"github.com/hackgods/clinic-booking/internal/patient"
	"github.com/hackgods/clinic-booking/internal/storage"
)

// BookingService is the booking, schedule and dashboard surface.
type BookingService interface {
	CreateBooking(ctx context.Context, req appointment.BookingRequest) (*appointment.BookingResult, error)
	BookSlot(ctx context.Context, slotID, patientID uuid.UUID, notes string) (*appointment.BookingResult, error)
	CancelBooking(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*appointment.Appointment, error)
	ListAppointments(ctx context.Context) ([]appointment.Appointment, error)

	AvailableSlots(ctx context.Context, date string) ([]appointment.Slot, error)
	Overview(ctx context.Context) ([]appointment.Slot, error)
	AddSlot(ctx context.Context, date, clock string) (*appointment.Slot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error

	Stats(ctx context.Context) (*appointment.DashboardStats, error)
}

type PatientService interface {
	List(ctx context.Context) ([]patient.Entry, error)
	Get(ctx context.Context, id uuid.UUID) (*patient.Entry, error)
	History(ctx context.Context, id uuid.UUID) ([]patient.MedicalRecord, error)
	AddRecord(ctx context.Context, patientID uuid.UUID, rec patient.MedicalRecord) (*patient.MedicalRecord, error)
	GenerateSummary(ctx context.Context, id uuid.UUID) (string, error)
	Summarize(ctx context.Context, records []patient.MedicalRecord) string
}

type NotificationService interface {
	ListRecent(ctx context.Context, limit int) ([]notification.Notification, error)
	MarkRead(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type UploadService interface {
	Presign(ctx context.Context, fileName, fileType string) (*storage.Upload, error)
}

type RouterConfig struct {
	Bookings      BookingService
	Patients      PatientService
	Notifications NotificationService
	Uploads       UploadService
	Sessions      SessionService // nil disables /login, /refresh and /logout
	Realtime      http.Handler // websocket endpoint
	Health        *HealthHandler

	// Auth guards staff routes. nil leaves them open.
	Auth func(http.Handler) http.Handler
	// SecureCookies marks the refresh cookie HTTPS-only.
	SecureCookies bool

	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	CORSOrigins    []string
	Logger         zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(cfg.CORSOrigins))

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Sessions != nil {
		r.Post("/login", loginHandler(cfg.Sessions, cfg.SecureCookies))
		r.Post("/refresh", refreshHandler(cfg.Sessions, cfg.SecureCookies))
		r.Post("/logout", logoutHandler(cfg.Sessions, cfg.SecureCookies))
	}

	// Patient-facing booking flow.
	r.Post("/appointments", createAppointmentHandler(cfg.Bookings))
	r.Post("/appointments/upload-url", uploadURLHandler(cfg.Uploads))
	r.Get("/slots/available/{date}", availableSlotsHandler(cfg.Bookings))

	r.Group(func(admin chi.Router) {
		if cfg.Auth != nil {
			admin.Use(cfg.Auth)
		}

		admin.Get("/appointments", listAppointmentsHandler(cfg.Bookings))
		admin.Post("/appointments/cancel", cancelAppointmentHandler(cfg.Bookings))
		admin.Put("/appointments/{id}/status", updateStatusHandler(cfg.Bookings))

		admin.Get("/slots/overview", slotOverviewHandler(cfg.Bookings))
		admin.Post("/slots/add", addSlotHandler(cfg.Bookings))
		admin.Delete("/slots/{id}", deleteSlotHandler(cfg.Bookings))
		admin.Post("/slots/book", bookSlotHandler(cfg.Bookings))

		admin.Get("/stats", statsHandler(cfg.Bookings))

		admin.Get("/notifications", listNotificationsHandler(cfg.Notifications))
		admin.Post("/notifications/mark-read", markReadHandler(cfg.Notifications))
		if cfg.Realtime != nil {
			admin.Handle("/notifications/ws", cfg.Realtime)
		}

		admin.Get("/patients", listPatientsHandler(cfg.Patients))
		admin.Get("/patients/{id}", getPatientHandler(cfg.Patients))
		admin.Get("/patients/{id}/history", patientHistoryHandler(cfg.Patients))
		admin.Post("/patients/{id}/records", addRecordHandler(cfg.Patients))
		admin.Post("/patients/{id}/generate-summary", generateSummaryHandler(cfg.Patients))
		admin.Post("/ai/summarize", summarizeHandler(cfg.Patients))
	})

	return r
}
