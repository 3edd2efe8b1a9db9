package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// dbtx is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	db   dbtx
	inTx bool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool}
}

func newPgRepositoryWithDB(db dbtx) *PgRepository {
	return &PgRepository{db: db}
}

func (r *PgRepository) InTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&PgRepository{db: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Helpers

const patientColumns = `id, name, email, phone, dob, gender, emergency_contact, personal_number,
	last_visit, ai_summary, created_at, updated_at`

const slotColumns = `id, slot_date, slot_time, is_booked, appointment_id, created_at`

const appointmentColumns = `id, custom_id, patient_id, patient_name, patient_email, patient_phone,
	service_category, specific_type, description, service_type, clinic, file_urls,
	appt_date, appt_time, slot_id, status, notes, reason, symptoms, medications,
	allergies, conditions, cancellation_reason, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.DOB,
		&p.Gender,
		&p.EmergencyContact,
		&p.PersonalNumber,
		&p.LastVisit,
		&p.AISummary,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.Date,
		&s.Time,
		&s.IsBooked,
		&s.AppointmentID,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.CustomID,
		&a.PatientID,
		&a.PatientName,
		&a.PatientEmail,
		&a.PatientPhone,
		&a.ServiceCategory,
		&a.SpecificType,
		&a.Description,
		&a.ServiceType,
		&a.Clinic,
		&a.FileURLs,
		&a.Date,
		&a.Time,
		&a.SlotID,
		&a.Status,
		&a.Notes,
		&a.Reason,
		&a.Symptoms,
		&a.Medications,
		&a.Allergies,
		&a.Conditions,
		&a.CancellationReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collectSlots(rows pgx.Rows) ([]Slot, error) {
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Slots

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.db.QueryRow(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
	return scanSlot(row)
}

func (r *PgRepository) ReserveSlot(ctx context.Context, slotID, appointmentID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE slots
		SET is_booked = true,
		    appointment_id = $2
		WHERE id = $1
		  AND is_booked = false
	`, slotID, appointmentID)
	if err != nil {
		return false, fmt.Errorf("reserve slot %s: %w", slotID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) ReleaseSlot(ctx context.Context, slotID, appointmentID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE slots
		SET is_booked = false,
		    appointment_id = NULL
		WHERE id = $1
		  AND appointment_id = $2
	`, slotID, appointmentID)
	if err != nil {
		return fmt.Errorf("release slot %s: %w", slotID, err)
	}
	return nil
}

func (r *PgRepository) SlotsForDate(ctx context.Context, date string) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `SELECT `+slotColumns+` FROM slots WHERE slot_date = $1`, date)
	if err != nil {
		return nil, fmt.Errorf("query slots for %s: %w", date, err)
	}
	return collectSlots(rows)
}

func (r *PgRepository) SlotsFrom(ctx context.Context, date string) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE slot_date >= $1
		ORDER BY slot_date
		LIMIT 5000
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query slots from %s: %w", date, err)
	}
	return collectSlots(rows)
}

func (r *PgRepository) InsertSlot(ctx context.Context, date, clock string) (*Slot, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO slots (id, slot_date, slot_time, is_booked, created_at)
		VALUES ($1, $2, $3, false, now())
		RETURNING `+slotColumns, uuid.New(), date, clock)

	s, err := scanSlot(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotExists
		}
		return nil, fmt.Errorf("insert slot: %w", err)
	}
	return s, nil
}

func (r *PgRepository) DeleteFreeSlot(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM slots WHERE id = $1 AND is_booked = false`, id)
	if err != nil {
		return false, fmt.Errorf("delete slot %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Patients

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

// FindPatientForBooking matches on exact email and case-insensitive name.
// Two people sharing both are treated as the same patient.
func (r *PgRepository) FindPatientForBooking(ctx context.Context, email, name string) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE email = $1
		  AND lower(name) = lower($2)
		ORDER BY created_at
		LIMIT 1
	`, email, name)
	return scanPatient(row)
}

func (r *PgRepository) InsertPatient(ctx context.Context, d PatientDetails) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO patients (id, name, email, phone, dob, gender, emergency_contact, personal_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+patientColumns,
		uuid.New(), d.Name, d.Email, d.Phone, d.DOB, d.Gender, d.EmergencyContact, d.PersonalNumber)

	p, err := scanPatient(row)
	if err != nil {
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	return p, nil
}

func (r *PgRepository) UpdatePatientContact(ctx context.Context, id uuid.UUID, d PatientDetails) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE patients
		SET phone = $2,
		    dob = $3,
		    gender = $4,
		    emergency_contact = $5,
		    personal_number = $6,
		    updated_at = now()
		WHERE id = $1
	`, id, d.Phone, d.DOB, d.Gender, d.EmergencyContact, d.PersonalNumber)
	if err != nil {
		return fmt.Errorf("update patient %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// Appointments

func (r *PgRepository) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.FileURLs == nil {
		a.FileURLs = []string{}
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (
			id, custom_id, patient_id, patient_name, patient_email, patient_phone,
			service_category, specific_type, description, service_type, clinic, file_urls,
			appt_date, appt_time, slot_id, status, notes, reason, symptoms, medications,
			allergies, conditions, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, now(), now())
		RETURNING `+appointmentColumns,
		uuid.New(), a.CustomID, a.PatientID, a.PatientName, a.PatientEmail, a.PatientPhone,
		a.ServiceCategory, a.SpecificType, a.Description, a.ServiceType, a.Clinic, a.FileURLs,
		a.Date, a.Time, a.SlotID, a.Status, a.Notes, a.Reason, a.Symptoms, a.Medications,
		a.Allergies, a.Conditions,
	)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, limit int) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY appt_date DESC, created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkCancelled appends the reason to notes in the same statement so
// concurrent note edits are not lost.
func (r *PgRepository) MarkCancelled(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	note := fmt.Sprintf("[Cancelled: %s]", strings.TrimSpace(reason))

	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'CANCELLED',
		    cancellation_reason = $2,
		    notes = CASE WHEN btrim(notes) = '' THEN $3 ELSE notes || ' ' || $3 END,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns, id, reason, note)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from *Status, to Status) (*Appointment, error) {
	if from == nil {
		row := r.db.QueryRow(ctx, `
			UPDATE appointments
			SET status = $2,
			    updated_at = now()
			WHERE id = $1
			RETURNING `+appointmentColumns, id, to)
		return scanAppointment(row)
	}

	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns, id, to, *from)
	return scanAppointment(row)
}

// Dashboard

func (r *PgRepository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, count(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			st Status
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[st] = n
	}
	return counts, rows.Err()
}

func (r *PgRepository) CountByDate(ctx context.Context, from, to string) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT appt_date, count(*)
		FROM appointments
		WHERE appt_date >= $1
		  AND appt_date <= $2
		GROUP BY appt_date
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("count by date: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			day string
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		counts[day] = n
	}
	return counts, rows.Err()
}

var _ Repository = (*PgRepository)(nil)
