package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-booking/internal/summary"
)

const (
	listLimit    = 1000
	historyLimit = 1000
	summaryLimit = 100
)

type Service struct {
	repo       Repository
	summarizer summary.Summarizer
	logger     zerolog.Logger
}

func NewService(repo Repository, summarizer summary.Summarizer, logger zerolog.Logger) *Service {
	return &Service{repo: repo, summarizer: summarizer, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.repo.List(ctx, listLimit)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return e, nil
}

func (s *Service) History(ctx context.Context, id uuid.UUID) ([]MedicalRecord, error) {
	return s.repo.History(ctx, id, historyLimit)
}

// AddRecord stores a record for the patient in the path, whatever patient_id
// the body carried.
func (s *Service) AddRecord(ctx context.Context, patientID uuid.UUID, rec MedicalRecord) (*MedicalRecord, error) {
	rec.PatientID = patientID
	if err := rec.validate(); err != nil {
		return nil, err
	}

	saved, err := s.repo.AddRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient_id", patientID.String()).Str("record_id", saved.ID.String()).Msg("medical record added")
	return saved, nil
}

// GenerateSummary summarizes the newest records and stores the result on the
// patient. Without history nothing is stored.
func (s *Service) GenerateSummary(ctx context.Context, id uuid.UUID) (string, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}

	history, err := s.repo.History(ctx, id, summaryLimit)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return NoHistoryText, nil
	}

	text := s.summarizer.Summarize(ctx, FormatHistory(history))
	if err := s.repo.SetAISummary(ctx, id, text); err != nil {
		return "", err
	}
	return text, nil
}

// Summarize summarizes records supplied by the caller without storing anything.
func (s *Service) Summarize(ctx context.Context, records []MedicalRecord) string {
	if len(records) == 0 {
		return NoHistoryText
	}
	return s.summarizer.Summarize(ctx, FormatHistory(records))
}
