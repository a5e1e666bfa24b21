package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
)

type Service struct {
	patients Repository
}

func NewService(repo Repository) *Service {
	return &Service{patients: repo}
}

func (s *Service) CreatePatient(ctx context.Context, clientID uuid.UUID, p *Patient) error {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)

	fields := map[string]string{}
	if p.FirstName == "" {
		fields["first_name"] = "required"
	}
	if p.LastName == "" {
		fields["last_name"] = "required"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid patient", fields)
	}

	p.ClientID = clientID
	return s.patients.Create(ctx, p)
}

// GetPatient hides patients of other clients behind NotFound.
func (s *Service) GetPatient(ctx context.Context, clientID, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ClientID != clientID {
		return nil, apperr.NotFound("patient")
	}
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	return s.patients.ListByClient(ctx, clientID, limit, offset)
}

// BelongsTo reports whether patientID is one of clientID's patients.
func (s *Service) BelongsTo(ctx context.Context, clientID, patientID uuid.UUID) (bool, error) {
	_, err := s.GetPatient(ctx, clientID, patientID)
	if apperr.Is(err, apperr.CodeNotFound) {
		return false, nil
	}
	return err == nil, err
}
