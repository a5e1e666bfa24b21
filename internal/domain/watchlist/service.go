package watchlist

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
)

// Directory reports which user ids have no professional profile.
type Directory interface {
	Missing(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error)
}

type Service struct {
	entries   Repository
	directory Directory
}

func NewService(repo Repository, dir Directory) *Service {
	return &Service{entries: repo, directory: dir}
}

func (s *Service) Add(ctx context.Context, clientID, professionalID uuid.UUID) (*Entry, error) {
	if professionalID == uuid.Nil {
		return nil, apperr.Validation("invalid watch list entry", map[string]string{"professional_id": "required"})
	}
	missing, err := s.directory.Missing(ctx, []uuid.UUID{professionalID})
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("invalid watch list entry", map[string]string{"professional_id": "unknown professional"})
	}

	e := &Entry{ClientID: clientID, ProfessionalID: professionalID}
	if err := s.entries.Add(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Remove(ctx context.Context, clientID, professionalID uuid.UUID) error {
	removed, err := s.entries.Remove(ctx, clientID, professionalID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("watch list entry")
	}
	return nil
}

func (s *Service) List(ctx context.Context, clientID uuid.UUID) ([]*Entry, error) {
	return s.entries.List(ctx, clientID)
}

// All returns the ids of every professional the client watches.
func (s *Service) All(ctx context.Context, clientID uuid.UUID) ([]uuid.UUID, error) {
	entries, err := s.entries.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return lo.Map(entries, func(e *Entry, _ int) uuid.UUID { return e.ProfessionalID }), nil
}

// NotWatched returns the ids in professionalIDs that are not on the client's
// watch list.
func (s *Service) NotWatched(ctx context.Context, clientID uuid.UUID, professionalIDs []uuid.UUID) ([]uuid.UUID, error) {
	watched, err := s.All(ctx, clientID)
	if err != nil {
		return nil, err
	}
	outside, _ := lo.Difference(lo.Uniq(professionalIDs), watched)
	return outside, nil
}
