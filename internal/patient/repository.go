package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	List(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	History(ctx context.Context, patientID uuid.UUID, limit int) ([]MedicalRecord, error)
	// AddRecord stores rec and sets the patient's last visit to rec.Date.
	AddRecord(ctx context.Context, rec MedicalRecord) (*MedicalRecord, error)
	SetAISummary(ctx context.Context, id uuid.UUID, summary string) error
}
