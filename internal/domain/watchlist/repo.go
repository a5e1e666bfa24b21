package watchlist

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Add is a no-op when the entry already exists.
	Add(ctx context.Context, e *Entry) error
	Remove(ctx context.Context, clientID, professionalID uuid.UUID) (bool, error)
	List(ctx context.Context, clientID uuid.UUID) ([]*Entry, error)
}
