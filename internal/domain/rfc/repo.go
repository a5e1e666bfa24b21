package rfc

import (
	"context"

	"github.com/google/uuid"
)

type RFCRepository interface {
	Create(ctx context.Context, r *RequestForCare) error
	// Update writes the descriptive and commercial attributes.
	Update(ctx context.Context, r *RequestForCare) error
	GetByID(ctx context.Context, id uuid.UUID) (*RequestForCare, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*RequestForCare, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	// AppendStatus returns the existing entry when (id, status) is already
	// in the ledger.
	AppendStatus(ctx context.Context, id uuid.UUID, status Status) (*StatusEntry, error)
	Statuses(ctx context.Context, id uuid.UUID) ([]*StatusEntry, error)
	ListForClient(ctx context.Context, clientID uuid.UUID, draftOnly bool, limit, offset int) ([]*RequestForCare, int, error)
	// ListForProfessional returns public requests plus private requests the
	// professional holds a proposal for.
	ListForProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*RequestForCare, int, error)
}

// ReviewFilter selects the proposals a client reviews.
type ReviewFilter struct {
	ShortList bool
}

type ProposalRepository interface {
	// GetOrCreate reports whether the proposal was inserted. active applies
	// only to new rows.
	GetOrCreate(ctx context.Context, rfcID, userID uuid.UUID, active bool) (*Proposal, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Proposal, error)
	Find(ctx context.Context, rfcID, userID uuid.UUID) (*Proposal, error)
	Update(ctx context.Context, p *Proposal) error
	SetStatus(ctx context.Context, id uuid.UUID, status ProposalStatus) error
	AppendStatus(ctx context.Context, id uuid.UUID, status ProposalStatus) (*ProposalStatusEntry, error)
	Statuses(ctx context.Context, id uuid.UUID) ([]*ProposalStatusEntry, error)
	// ListForReview returns submitted, non-rejected proposals.
	ListForReview(ctx context.Context, rfcID uuid.UUID, f ReviewFilter) ([]*Proposal, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Proposal, int, error)
}
