package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Patient, int, error)
}
