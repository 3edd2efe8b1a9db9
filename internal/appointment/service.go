package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/clinic-booking/internal/metrics"
)

const listLimit = 2000

var tracer = otel.Tracer("clinic.internal.appointment")

// IDGenerator issues booking reference numbers.
type IDGenerator interface {
	Next(ctx context.Context) (string, error)
}

// Mailer delivers booking emails. Calls must return immediately; delivery
// failures are the implementation's to log.
type Mailer interface {
	BookingCreated(ctx context.Context, appt Appointment)
	BookingCancelled(ctx context.Context, appt Appointment, reason string)
}

type noopMailer struct{}

func (noopMailer) BookingCreated(context.Context, Appointment)           {}
func (noopMailer) BookingCancelled(context.Context, Appointment, string) {}

type Option func(*Service)

func WithMailer(m Mailer) Option {
	return func(s *Service) {
		if m != nil {
			s.mailer = m
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithStrictTransitions makes UpdateStatus enforce the status table.
func WithStrictTransitions(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type Service struct {
	repo    Repository
	ids     IDGenerator
	mailer  Mailer
	metrics *metrics.Metrics
	logger  zerolog.Logger
	strict  bool
	now     func() time.Time
}

func NewService(repo Repository, ids IDGenerator, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		ids:    ids,
		mailer: noopMailer{},
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking books an appointment for the patient in req, creating or
// refreshing the patient record. When a slot is given, the appointment and the
// slot reservation commit together or not at all.
func (s *Service) CreateBooking(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	ctx, span := tracer.Start(ctx, "appointment.create_booking")
	defer span.End()

	req.normalize()
	if err := req.validate(); err != nil {
		s.metrics.ObserveBooking(metrics.OutcomeInvalid)
		return nil, err
	}

	// Advisory check so the common case fails before touching the counter.
	if req.SlotID != nil {
		span.SetAttributes(attribute.String("clinic.slot_id", req.SlotID.String()))
		slot, err := s.repo.GetSlotByID(ctx, *req.SlotID)
		if err != nil {
			return nil, s.bookingFailed(span, fmt.Errorf("load slot: %w", err))
		}
		if slot.IsBooked {
			return nil, s.bookingFailed(span, ErrSlotUnavailable)
		}
		// The slot is authoritative for when the visit happens.
		req.Date, req.Time = slot.Date, slot.Time
	}

	patient, err := s.upsertPatient(ctx, req.Patient)
	if err != nil {
		return nil, s.bookingFailed(span, err)
	}

	bookingID, err := s.ids.Next(ctx)
	if err != nil {
		return nil, s.bookingFailed(span, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err))
	}
	span.SetAttributes(attribute.String("clinic.booking_id", bookingID))

	created, err := s.insertAndReserve(ctx, Appointment{
		CustomID:        bookingID,
		PatientID:       patient.ID,
		PatientName:     req.Patient.Name,
		PatientEmail:    req.Patient.Email,
		PatientPhone:    req.Patient.Phone,
		ServiceCategory: req.ServiceCategory,
		SpecificType:    req.SpecificType,
		Description:     req.Description,
		ServiceType:     req.ServiceType,
		Clinic:          req.Clinic,
		FileURLs:        req.FileURLs,
		Date:            req.Date,
		Time:            req.Time,
		SlotID:          req.SlotID,
		Status:          StatusPending,
		Notes:           req.Notes,
		Reason:          req.Reason,
		Symptoms:        req.Symptoms,
		Medications:     req.Medications,
		Allergies:       req.Allergies,
		Conditions:      req.Conditions,
	})
	if err != nil {
		return nil, s.bookingFailed(span, err)
	}

	s.metrics.ObserveBooking(metrics.OutcomeCreated)
	s.logger.Info().
		Str("appointment_id", created.ID.String()).
		Str("booking_id", bookingID).
		Str("date", created.Date).
		Str("time", created.Time).
		Msg("appointment booked")

	s.mailer.BookingCreated(ctx, *created)

	return &BookingResult{
		AppointmentID: created.ID,
		BookingID:     bookingID,
		Appointment:   created,
	}, nil
}

// BookSlot books an existing patient into a slot from the admin schedule.
// No emails are sent.
func (s *Service) BookSlot(ctx context.Context, slotID, patientID uuid.UUID, notes string) (*BookingResult, error) {
	ctx, span := tracer.Start(ctx, "appointment.book_slot")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.slot_id", slotID.String()))

	patient, err := s.repo.GetPatientByID(ctx, patientID)
	if err != nil {
		return nil, s.bookingFailed(span, fmt.Errorf("load patient: %w", err))
	}

	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, s.bookingFailed(span, fmt.Errorf("load slot: %w", err))
	}
	if slot.IsBooked {
		return nil, s.bookingFailed(span, ErrSlotUnavailable)
	}

	bookingID, err := s.ids.Next(ctx)
	if err != nil {
		return nil, s.bookingFailed(span, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err))
	}

	created, err := s.insertAndReserve(ctx, Appointment{
		CustomID:     bookingID,
		PatientID:    patient.ID,
		PatientName:  patient.Name,
		PatientEmail: patient.Email,
		PatientPhone: patient.Phone,
		ServiceType:  DefaultServiceType,
		Clinic:       DefaultClinic,
		FileURLs:     []string{},
		Date:         slot.Date,
		Time:         slot.Time,
		SlotID:       &slot.ID,
		Status:       StatusPending,
		Notes:        strings.TrimSpace(notes),
	})
	if err != nil {
		return nil, s.bookingFailed(span, err)
	}

	s.metrics.ObserveBooking(metrics.OutcomeCreated)
	s.logger.Info().
		Str("appointment_id", created.ID.String()).
		Str("booking_id", bookingID).
		Str("slot_id", slotID.String()).
		Msg("slot booked for existing patient")

	return &BookingResult{
		AppointmentID: created.ID,
		BookingID:     bookingID,
		Appointment:   created,
	}, nil
}

// insertAndReserve is the only place a slot gets booked. The conditional
// reserve decides the race; losing it rolls back the appointment insert.
func (s *Service) insertAndReserve(ctx context.Context, appt Appointment) (*Appointment, error) {
	var created *Appointment

	err := s.repo.InTx(ctx, func(tx Repository) error {
		a, err := tx.InsertAppointment(ctx, appt)
		if err != nil {
			return err
		}

		if appt.SlotID != nil {
			ok, err := tx.ReserveSlot(ctx, *appt.SlotID, a.ID)
			if err != nil {
				return err
			}
			if !ok {
				s.metrics.ObserveSlotConflict()
				return ErrSlotUnavailable
			}
		}

		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) upsertPatient(ctx context.Context, d PatientDetails) (*Patient, error) {
	existing, err := s.repo.FindPatientForBooking(ctx, d.Email, d.Name)
	switch {
	case err == nil:
		if err := s.repo.UpdatePatientContact(ctx, existing.ID, d); err != nil {
			return nil, fmt.Errorf("refresh patient: %w", err)
		}
		return existing, nil
	case errors.Is(err, ErrPatientNotFound):
		p, err := s.repo.InsertPatient(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("create patient: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("find patient: %w", err)
	}
}

func (s *Service) bookingFailed(span trace.Span, err error) error {
	span.RecordError(err)

	outcome := metrics.OutcomeError
	switch {
	case errors.Is(err, ErrSlotUnavailable):
		outcome = metrics.OutcomeConflict
	case errors.Is(err, ErrSlotNotFound), errors.Is(err, ErrPatientNotFound):
		outcome = metrics.OutcomeInvalid
	case errors.Is(err, ErrUpstreamUnavailable):
		outcome = metrics.OutcomeUnavailable
	}
	s.metrics.ObserveBooking(outcome)

	s.logger.Warn().Err(err).Str("outcome", outcome).Msg("booking failed")
	return err
}

// CancelBooking cancels unconditionally, records the reason and frees the slot.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.cancel_booking")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id.String()))

	reason = strings.TrimSpace(reason)

	var cancelled *Appointment
	err := s.repo.InTx(ctx, func(tx Repository) error {
		a, err := tx.MarkCancelled(ctx, id, reason)
		if err != nil {
			return err
		}
		if a.SlotID != nil {
			if err := tx.ReleaseSlot(ctx, *a.SlotID, a.ID); err != nil {
				return err
			}
		}
		cancelled = a
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("cancel appointment %s: %w", id, err)
	}

	s.metrics.ObserveCancellation()
	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("reason", reason).
		Msg("appointment cancelled")

	if cancelled.PatientEmail != "" {
		s.mailer.BookingCancelled(ctx, *cancelled, reason)
	}
	return cancelled, nil
}

// UpdateStatus overwrites the status. In strict mode the change must be
// allowed by the status table and the row must not have moved in between.
// Moving to CANCELLED frees the slot but sends no email.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, raw string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.update_status")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id.String()))

	to, ok := ParseStatus(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}

	var updated *Appointment
	err := s.repo.InTx(ctx, func(tx Repository) error {
		var from *Status
		if s.strict {
			current, err := tx.GetAppointmentByID(ctx, id)
			if err != nil {
				return err
			}
			if !CanTransition(current.Status, to) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, current.Status, to)
			}
			from = &current.Status
		}

		a, err := tx.UpdateAppointmentStatus(ctx, id, from, to)
		if err != nil {
			if from != nil && errors.Is(err, ErrAppointmentNotFound) {
				return fmt.Errorf("%w: status changed concurrently", ErrInvalidStatusTransition)
			}
			return err
		}

		if to == StatusCancelled && a.SlotID != nil {
			if err := tx.ReleaseSlot(ctx, *a.SlotID, a.ID); err != nil {
				return err
			}
		}
		updated = a
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("update status of %s: %w", id, err)
	}

	s.logger.Info().
		Str("appointment_id", id.String()).
		Str("status", string(to)).
		Msg("appointment status updated")

	return updated, nil
}

// ListAppointments returns the newest appointments first.
func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx, listLimit)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if appts == nil {
		appts = []Appointment{}
	}
	return appts, nil
}
