package professional

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
)

type Service struct {
	profiles Repository
}

func NewService(repo Repository) *Service {
	return &Service{profiles: repo}
}

func (s *Service) UpsertProfile(ctx context.Context, userID uuid.UUID, p *Professional) error {
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if p.DisplayName == "" {
		return apperr.Validation("invalid profile", map[string]string{"display_name": "required"})
	}
	if p.HourlyRate != nil && *p.HourlyRate < 0 {
		return apperr.Validation("invalid profile", map[string]string{"hourly_rate": "must not be negative"})
	}
	p.UserID = userID
	p.Skills = normalize(p.Skills)
	p.Languages = normalize(p.Languages)
	return s.profiles.Upsert(ctx, p)
}

func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*Professional, error) {
	return s.profiles.GetByID(ctx, userID)
}

func (s *Service) Search(ctx context.Context, f SearchFilter, limit, offset int) ([]*Professional, int, error) {
	f.Query = strings.TrimSpace(f.Query)
	return s.profiles.Search(ctx, f, limit, offset)
}

// Missing returns the ids in userIDs that have no profile.
func (s *Service) Missing(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	found, err := s.profiles.GetMany(ctx, lo.Uniq(userIDs))
	if err != nil {
		return nil, err
	}
	known := lo.SliceToMap(found, func(p *Professional) (uuid.UUID, bool) { return p.UserID, true })
	return lo.Filter(lo.Uniq(userIDs), func(id uuid.UUID, _ int) bool { return !known[id] }), nil
}

// DisplayNames maps user ids to display names. Ids without a profile are
// absent from the result.
func (s *Service) DisplayNames(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	found, err := s.profiles.GetMany(ctx, lo.Uniq(userIDs))
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(found, func(p *Professional) (uuid.UUID, string) { return p.UserID, p.DisplayName }), nil
}

func normalize(values []string) []string {
	out := lo.Uniq(lo.FilterMap(values, func(v string, _ int) (string, bool) {
		v = strings.TrimSpace(v)
		return v, v != ""
	}))
	if out == nil {
		return []string{}
	}
	return out
}
