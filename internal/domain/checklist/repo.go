package checklist

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*Rule, error)
}
