package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-booking/internal/appointment"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	db dbtx
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool}
}

func newPgRepositoryWithDB(db dbtx) *PgRepository {
	return &PgRepository{db: db}
}

const entrySelect = `
	SELECT p.id, p.name, p.email, p.phone, p.dob, p.gender, p.emergency_contact,
	       p.personal_number, p.last_visit, p.ai_summary, p.created_at, p.updated_at,
	       la.id, la.custom_id, la.appt_date, la.appt_time, la.service_category,
	       la.specific_type, la.file_urls, la.notes
	FROM patients p
	LEFT JOIN LATERAL (
		SELECT a.id, a.custom_id, a.appt_date, a.appt_time, a.service_category,
		       a.specific_type, a.file_urls, a.notes
		FROM appointments a
		WHERE a.patient_id = p.id
		ORDER BY a.appt_date DESC, a.created_at DESC
		LIMIT 1
	) la ON true`

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e   Entry
		lid *uuid.UUID

		customID, date, clock, category, specific, notes *string
		files                                           []string
	)

	err := row.Scan(
		&e.ID, &e.Name, &e.Email, &e.Phone, &e.DOB, &e.Gender, &e.EmergencyContact,
		&e.PersonalNumber, &e.LastVisit, &e.AISummary, &e.CreatedAt, &e.UpdatedAt,
		&lid, &customID, &date, &clock, &category, &specific, &files, &notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appointment.ErrPatientNotFound
		}
		return nil, err
	}

	if lid != nil {
		e.Latest = &LatestAppointment{
			ID:              *lid,
			CustomID:        deref(customID),
			Date:            deref(date),
			Time:            deref(clock),
			ServiceCategory: deref(category),
			SpecificType:    deref(specific),
			FileURLs:        files,
			Notes:           deref(notes),
		}
		if e.Latest.FileURLs == nil {
			e.Latest.FileURLs = []string{}
		}
	}
	return &e, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *PgRepository) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.db.Query(ctx, entrySelect+`
	ORDER BY p.created_at DESC
	LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	result := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return scanEntry(r.db.QueryRow(ctx, entrySelect+`
	WHERE p.id = $1`, id))
}

func (r *PgRepository) History(ctx context.Context, patientID uuid.UUID, limit int) ([]MedicalRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, patient_id, record_date, doctor_name, diagnosis, notes, prescriptions, advice, created_at
		FROM medical_records
		WHERE patient_id = $1
		ORDER BY record_date DESC, created_at DESC
		LIMIT $2
	`, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("medical history: %w", err)
	}
	defer rows.Close()

	result := []MedicalRecord{}
	for rows.Next() {
		var (
			rec MedicalRecord
			rx  []byte
		)
		if err := rows.Scan(&rec.ID, &rec.PatientID, &rec.Date, &rec.DoctorName, &rec.Diagnosis, &rec.Notes, &rx, &rec.Advice, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Prescriptions = []Prescription{}
		if len(rx) > 0 {
			if err := json.Unmarshal(rx, &rec.Prescriptions); err != nil {
				return nil, fmt.Errorf("decode prescriptions of %s: %w", rec.ID, err)
			}
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) AddRecord(ctx context.Context, rec MedicalRecord) (*MedicalRecord, error) {
	rx, err := json.Marshal(rec.Prescriptions)
	if err != nil {
		return nil, fmt.Errorf("encode prescriptions: %w", err)
	}
	rec.ID = uuid.New()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}

	if err := insertRecord(ctx, tx, &rec, rx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return nil, fmt.Errorf("add medical record: %w (rollback: %v)", err, rbErr)
		}
		return nil, fmt.Errorf("add medical record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit medical record: %w", err)
	}
	return &rec, nil
}

// insertRecord bumps the patient's last visit and stores the record.
func insertRecord(ctx context.Context, tx pgx.Tx, rec *MedicalRecord, rx []byte) error {
	tag, err := tx.Exec(ctx, `
		UPDATE patients
		SET last_visit = $2,
		    updated_at = now()
		WHERE id = $1
	`, rec.PatientID, rec.Date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return appointment.ErrPatientNotFound
	}

	return tx.QueryRow(ctx, `
		INSERT INTO medical_records (id, patient_id, record_date, doctor_name, diagnosis, notes, prescriptions, advice, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING created_at
	`, rec.ID, rec.PatientID, rec.Date, rec.DoctorName, rec.Diagnosis, rec.Notes, rx, rec.Advice).Scan(&rec.CreatedAt)
}

func (r *PgRepository) SetAISummary(ctx context.Context, id uuid.UUID, summary string) error {
	tag, err := r.db.Exec(ctx, `UPDATE patients SET ai_summary = $2, updated_at = now() WHERE id = $1`, id, summary)
	if err != nil {
		return fmt.Errorf("save ai summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return appointment.ErrPatientNotFound
	}
	return nil
}

var _ Repository = (*PgRepository)(nil)
