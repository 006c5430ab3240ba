package timeline

import (
	"context"

	"github.com/google/uuid"
)

// Service exposes read access to the ledger. Writes happen only through the
// lifecycle orchestrator's unit of work.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// OpenEntry returns the patient's open entry, or nil when the ledger holds
// none.
func (s *Service) OpenEntry(ctx context.Context, patientID uuid.UUID, pointer *uuid.UUID) (*Entry, error) {
	return s.repo.FindOpen(ctx, patientID, pointer)
}

func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}
