package job

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// GetOrCreate inserts j unless a job for j.ProposalID exists, then loads
	// the stored job into j. It reports whether a row was inserted.
	GetOrCreate(ctx context.Context, j *Job) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Job, int, error)
	// UpdateStatus moves the job from one status to another. It returns
	// PreconditionFailed when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Job, error)
}
