package professional

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Upsert(ctx context.Context, p *Professional) error
	GetByID(ctx context.Context, userID uuid.UUID) (*Professional, error)
	GetMany(ctx context.Context, userIDs []uuid.UUID) ([]*Professional, error)
	Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Professional, int, error)
}
