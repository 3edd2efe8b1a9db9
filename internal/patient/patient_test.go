package patient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-booking/internal/appointment"
)

type memRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*Entry
	records  map[uuid.UUID][]MedicalRecord
	summary  map[uuid.UUID]string
}

func newMemRepo() *memRepo {
	return &memRepo{
		patients: make(map[uuid.UUID]*Entry),
		records:  make(map[uuid.UUID][]MedicalRecord),
		summary:  make(map[uuid.UUID]string),
	}
}

func (m *memRepo) add(name string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.patients[id] = &Entry{Patient: appointment.Patient{ID: id, Name: name}}
	return id
}

func (m *memRepo) List(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Entry{}
	for _, e := range m.patients {
		if len(out) == limit {
			break
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id uuid.UUID) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.patients[id]
	if !ok {
		return nil, appointment.ErrPatientNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memRepo) History(_ context.Context, id uuid.UUID, limit int) ([]MedicalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.records[id]
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return append([]MedicalRecord{}, recs...), nil
}

func (m *memRepo) AddRecord(_ context.Context, rec MedicalRecord) (*MedicalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.patients[rec.PatientID]
	if !ok {
		return nil, appointment.ErrPatientNotFound
	}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	m.records[rec.PatientID] = append([]MedicalRecord{rec}, m.records[rec.PatientID]...)
	date := rec.Date
	e.LastVisit = &date
	return &rec, nil
}

func (m *memRepo) SetAISummary(_ context.Context, id uuid.UUID, s string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return appointment.ErrPatientNotFound
	}
	m.summary[id] = s
	return nil
}

type fakeSummarizer struct {
	calls int
	input string
	out   string
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) string {
	f.calls++
	f.input = text
	return f.out
}

func record(date, diagnosis string, meds ...Prescription) MedicalRecord {
	return MedicalRecord{Date: date, DoctorName: "Dr. Berg", Diagnosis: diagnosis, Prescriptions: meds}
}

func TestAddRecordValidatesAndSetsLastVisit(t *testing.T) {
	repo := newMemRepo()
	id := repo.add("Jane Doe")
	svc := NewService(repo, &fakeSummarizer{}, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.AddRecord(ctx, id, MedicalRecord{Date: "2025-06-01", DoctorName: "Dr. Berg"})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = svc.AddRecord(ctx, id, record("01/06/2025", "Flu"))
	assert.ErrorIs(t, err, ErrInvalidRecord)

	rec := record("2025-06-01", "Flu")
	rec.PatientID = uuid.New()
	saved, err := svc.AddRecord(ctx, id, rec)
	require.NoError(t, err)
	assert.Equal(t, id, saved.PatientID)
	assert.NotNil(t, saved.Prescriptions)

	e, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, e.LastVisit)
	assert.Equal(t, "2025-06-01", *e.LastVisit)

	_, err = svc.AddRecord(ctx, uuid.New(), record("2025-06-01", "Flu"))
	assert.ErrorIs(t, err, appointment.ErrPatientNotFound)
}

func TestGenerateSummaryWithoutHistory(t *testing.T) {
	repo := newMemRepo()
	id := repo.add("Jane Doe")
	sum := &fakeSummarizer{out: "unused"}
	svc := NewService(repo, sum, zerolog.Nop())

	got, err := svc.GenerateSummary(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, NoHistoryText, got)
	assert.Zero(t, sum.calls)
	assert.Empty(t, repo.summary)
}

func TestGenerateSummaryStoresResult(t *testing.T) {
	repo := newMemRepo()
	id := repo.add("Jane Doe")
	sum := &fakeSummarizer{out: "Recurring flu."}
	svc := NewService(repo, sum, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.AddRecord(ctx, id, record("2025-05-01", "Flu", Prescription{Name: "Paracet", Dosage: "500mg"}))
	require.NoError(t, err)

	got, err := svc.GenerateSummary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Recurring flu.", got)
	assert.Equal(t, "Recurring flu.", repo.summary[id])
	assert.Contains(t, sum.input, "Meds: Paracet (500mg)")

	_, err = svc.GenerateSummary(ctx, uuid.New())
	assert.ErrorIs(t, err, appointment.ErrPatientNotFound)
}

func TestSummarizeDoesNotStore(t *testing.T) {
	sum := &fakeSummarizer{out: "ok"}
	svc := NewService(newMemRepo(), sum, zerolog.Nop())

	assert.Equal(t, NoHistoryText, svc.Summarize(context.Background(), nil))
	assert.Equal(t, "ok", svc.Summarize(context.Background(), []MedicalRecord{record("2025-06-01", "Cold")}))
	assert.Equal(t, 1, sum.calls)
}

func TestFormatHistory(t *testing.T) {
	out := FormatHistory([]MedicalRecord{
		{Date: "2025-06-01", Diagnosis: "Flu", Notes: "rest", Prescriptions: []Prescription{{Name: "A", Dosage: "1"}, {Name: "B", Dosage: "2"}}},
		{Notes: "checkup"},
	})
	assert.Equal(t,
		"- Date: 2025-06-01 | Diagnosis: Flu | Notes: rest | Meds: A (1), B (2)\n"+
			"- Date: Unknown Date | Diagnosis: No Diagnosis | Notes: checkup",
		out)
}

func TestLatestBookingID(t *testing.T) {
	assert.Equal(t, NewPatientLabel, Entry{}.LatestBookingID())

	id := uuid.MustParse("00000000-0000-0000-0000-00000000abcd")
	assert.Equal(t, "#00ABCD", Entry{Latest: &LatestAppointment{ID: id}}.LatestBookingID())
	assert.Equal(t, "PN-20250601-0003", Entry{Latest: &LatestAppointment{ID: id, CustomID: "PN-20250601-0003"}}.LatestBookingID())
}

