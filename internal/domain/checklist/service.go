package checklist

import (
	"context"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperr"
)

// Service manages the reference data and keeps the in-memory registry in
// step with it.
type Service struct {
	repo     Repository
	registry *Registry
}

func NewService(repo Repository, registry *Registry) *Service {
	return &Service{repo: repo, registry: registry}
}

func (s *Service) CreateRule(ctx context.Context, rule *Rule) error {
	if rule.FromStage == "" || rule.ToStage == "" {
		return apperr.New(apperr.KindValidation, "from_stage and to_stage are required")
	}
	if rule.FromStage == rule.ToStage {
		return apperr.New(apperr.KindValidation, "from_stage and to_stage must differ")
	}
	if rule.RequiredOnEntry == nil {
		rule.RequiredOnEntry = []string{}
	}
	if rule.RequiredOnExit == nil {
		rule.RequiredOnExit = []string{}
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return err
	}
	return s.registry.Load(ctx, s.repo)
}

func (s *Service) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.registry.Load(ctx, s.repo)
}

func (s *Service) ListRules(ctx context.Context) ([]*Rule, error) {
	return s.repo.List(ctx)
}

// Validate exposes the registry lookup to other services.
func (s *Service) Validate(fromStage, toStage string) (*Rule, error) {
	return s.registry.Validate(fromStage, toStage)
}
