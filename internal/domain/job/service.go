package job

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
)

type Service struct {
	jobs Repository
}

func NewService(repo Repository) *Service {
	return &Service{jobs: repo}
}

// CreateFromProposal returns the job for src.ProposalID, creating it on
// first use.
func (s *Service) CreateFromProposal(ctx context.Context, src *Job) (*Job, bool, error) {
	if src.ProposalID == uuid.Nil {
		return nil, false, fmt.Errorf("proposal_id is required")
	}
	j := *src
	created, err := s.jobs.GetOrCreate(ctx, &j)
	if err != nil {
		return nil, false, err
	}
	return &j, created, nil
}

// Get hides jobs the actor is not a party to.
func (s *Service) Get(ctx context.Context, id, actor uuid.UUID) (*Job, error) {
	j, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !j.Involves(actor) {
		return nil, apperr.NotFound("job")
	}
	return j, nil
}

func (s *Service) ListForUser(ctx context.Context, actor uuid.UUID, limit, offset int) ([]*Job, int, error) {
	return s.jobs.ListForUser(ctx, actor, limit, offset)
}

// UpdateStatus lets the job's client move it along its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id, actor uuid.UUID, status Status) (*Job, error) {
	next := Status(strings.ToLower(strings.TrimSpace(string(status))))
	if !validStatuses[next] {
		return nil, apperr.Validation("invalid job status", map[string]string{"status": "unknown status " + string(status)})
	}

	j, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if j.ClientID != actor {
		return nil, apperr.Forbidden("only the client can change a job's status")
	}
	if j.Status == next {
		return j, nil
	}
	if !isAllowedTransition(j.Status, next) {
		return nil, apperr.PreconditionFailed(fmt.Sprintf("job cannot move from %s to %s", j.Status, next))
	}
	return s.jobs.UpdateStatus(ctx, id, j.Status, next)
}

var validStatuses = map[Status]bool{
	StatusPending: true, StatusActive: true, StatusCompleted: true, StatusCancelled: true,
}

func isAllowedTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusActive || to == StatusCancelled
	case StatusActive:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}
