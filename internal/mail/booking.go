package mail

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/metrics"
)

type BookingMailerConfig struct {
	AdminEmail string
	Timeout    time.Duration
	Branding   Branding
}

// BookingMailer sends booking emails in the background. Each send runs on a
// context detached from the request, bounded by Timeout. Failures are logged
// and counted, never returned.
type BookingMailer struct {
	sender  Sender
	cfg     BookingMailerConfig
	metrics *metrics.Metrics
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

func NewBookingMailer(sender Sender, cfg BookingMailerConfig, m *metrics.Metrics, logger zerolog.Logger) *BookingMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Branding.Clinic == "" {
		cfg.Branding = DefaultBranding
	}
	return &BookingMailer{sender: sender, cfg: cfg, metrics: m, logger: logger}
}

func (b *BookingMailer) BookingCreated(ctx context.Context, appt appointment.Appointment) {
	data := emailData{
		Branding:     b.cfg.Branding,
		BookingID:    appt.DisplayID(),
		PatientName:  appt.PatientName,
		PatientEmail: appt.PatientEmail,
		PatientPhone: appt.PatientPhone,
		Date:         appt.Date,
		Time:         appt.Time,
		Service:      appt.ServiceType,
	}

	if appt.PatientEmail != "" {
		b.dispatch(ctx, TemplateConfirmation, Message{
			To:      appt.PatientEmail,
			ToName:  appt.PatientName,
			Subject: fmt.Sprintf("Your Appointment is Confirmed - %s", b.cfg.Branding.Clinic),
			Text:    fmt.Sprintf("Booking %s confirmed for %s at %s.", data.BookingID, appt.Date, appt.Time),
		}, data)
	}

	if b.cfg.AdminEmail != "" {
		b.dispatch(ctx, TemplateAdminAlert, Message{
			To:      b.cfg.AdminEmail,
			Subject: fmt.Sprintf("New Appointment Booked - %s", appt.PatientName),
			Text:    fmt.Sprintf("%s booked %s at %s (%s).", appt.PatientName, appt.Date, appt.Time, data.BookingID),
		}, data)
	}
}

func (b *BookingMailer) BookingCancelled(ctx context.Context, appt appointment.Appointment, reason string) {
	if appt.PatientEmail == "" {
		return
	}
	b.dispatch(ctx, TemplateCancellation, Message{
		To:      appt.PatientEmail,
		ToName:  appt.PatientName,
		Subject: fmt.Sprintf("Appointment Cancelled - %s", b.cfg.Branding.Clinic),
		Text:    fmt.Sprintf("Your appointment on %s at %s has been cancelled.", appt.Date, appt.Time),
	}, emailData{
		Branding:    b.cfg.Branding,
		BookingID:   appt.DisplayID(),
		PatientName: appt.PatientName,
		Date:        appt.Date,
		Time:        appt.Time,
		Reason:      reason,
	})
}

func (b *BookingMailer) dispatch(ctx context.Context, tmpl string, msg Message, data emailData) {
	html, err := render(tmpl, data)
	if err != nil {
		b.metrics.ObserveEmail(tmpl, false)
		b.logger.Error().Err(err).Str("template", tmpl).Msg("failed to render email")
		return
	}
	msg.HTML = html

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.Timeout)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer cancel()

		err := b.sender.Send(sendCtx, msg)
		b.metrics.ObserveEmail(tmpl, err == nil)
		if err != nil {
			b.logger.Error().Err(err).Str("template", tmpl).Str("to", msg.To).Msg("failed to send email")
		}
	}()
}

// Wait blocks until queued emails finish or ctx ends.
func (b *BookingMailer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ appointment.Mailer = (*BookingMailer)(nil)
