package patient

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// ListFilter narrows a patient listing. Department drives the composite
// index lookup; Status defaults to active when a department is given.
type ListFilter struct {
	Department string
	Status     string
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	if f.Department == "" && f.Status != "" {
		return nil, 0, apperr.New(apperr.KindValidation, "status filter requires a department filter")
	}
	if f.Department != "" {
		status := f.Status
		if status == "" {
			status = StatusActive
		}
		if err := validateStatus(status); err != nil {
			return nil, 0, err
		}
		return s.repo.ListByIndexKey(ctx, ComputeIndexKey(f.Department, status), limit, offset)
	}
	return s.repo.List(ctx, limit, offset)
}

// UpdateParams carries a partial update. Nil fields are left unchanged.
type UpdateParams struct {
	MRN        *string    `json:"mrn"`
	FirstName  *string    `json:"first_name"`
	LastName   *string    `json:"last_name"`
	BirthDate  *time.Time `json:"birth_date"`
	Department *string    `json:"department"`
	Status     *string    `json:"status"`
}

// IsZero reports whether the update carries no fields at all.
func (u UpdateParams) IsZero() bool {
	return u.MRN == nil && u.FirstName == nil && u.LastName == nil &&
		u.BirthDate == nil && u.Department == nil && u.Status == nil
}

// ApplyTo copies the non-nil fields onto p, validating the values that have
// a closed domain. Shared by the patient service and the lifecycle
// orchestrator so both mutate patients through the same rules.
func (u UpdateParams) ApplyTo(p *Patient) error {
	if u.MRN != nil {
		p.MRN = *u.MRN
	}
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.BirthDate != nil {
		p.BirthDate = u.BirthDate
	}
	if u.Department != nil {
		if *u.Department == "" {
			return apperr.New(apperr.KindValidation, "department cannot be empty")
		}
		p.Department = *u.Department
	}
	if u.Status != nil {
		if err := validateStatus(*u.Status); err != nil {
			return err
		}
		p.Status = *u.Status
	}
	return nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := params.ApplyTo(p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}

func validateStatus(status string) error {
	switch status {
	case StatusActive, StatusInactive:
		return nil
	default:
		return apperr.New(apperr.KindValidation, "status must be %q or %q", StatusActive, StatusInactive)
	}
}
