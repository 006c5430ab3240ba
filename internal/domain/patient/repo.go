package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Update rewrites the patient's mutable fields (demographics,
	// department, status, index key) and bumps the version.
	Update(ctx context.Context, p *Patient) error

	// ApplyTransition moves the denormalized stage projection in one
	// statement: current stage, open-entry pointer, and the write-once
	// first-seen timestamp for the new stage.
	ApplyTransition(ctx context.Context, id uuid.UUID, t TransitionFields) error

	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	ListByIndexKey(ctx context.Context, key string, limit, offset int) ([]*Patient, int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
