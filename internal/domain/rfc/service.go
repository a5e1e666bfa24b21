package rfc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/eadvocate/eadvocate/internal/platform/apperr"
	"github.com/eadvocate/eadvocate/internal/platform/db"
	"github.com/eadvocate/eadvocate/internal/platform/events"
)

// PatientChecker reports whether a patient belongs to a client.
type PatientChecker interface {
	BelongsTo(ctx context.Context, clientID, patientID uuid.UUID) (bool, error)
}

// WatchList resolves a client's preferred professionals.
type WatchList interface {
	All(ctx context.Context, clientID uuid.UUID) ([]uuid.UUID, error)
	NotWatched(ctx context.Context, clientID uuid.UUID, professionalIDs []uuid.UUID) ([]uuid.UUID, error)
}

// Directory maps professional user ids to display names.
type Directory interface {
	DisplayNames(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

// JobCreator turns an accepted proposal into a job. Implementations must be
// get-or-create per proposal.
type JobCreator interface {
	CreateJobFromProposal(ctx context.Context, rfc *RequestForCare, p *Proposal) (uuid.UUID, error)
}

type Service struct {
	tx        db.Transactor
	rfcs      RFCRepository
	proposals ProposalRepository
	patients  PatientChecker
	watchList WatchList
	directory Directory
	jobs      JobCreator

	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(tx db.Transactor, rfcs RFCRepository, proposals ProposalRepository,
	patients PatientChecker, watchList WatchList, dir Directory, jobs JobCreator) *Service {
	return &Service{
		tx:        tx,
		rfcs:      rfcs,
		proposals: proposals,
		patients:  patients,
		watchList: watchList,
		directory: dir,
		jobs:      jobs,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
}

// SetPublisher installs the lifecycle event publisher.
func (s *Service) SetPublisher(pub events.Publisher, logger zerolog.Logger) {
	s.publisher = pub
	s.logger = logger
}

// SetClock overrides the time source used for deadlines and submissions.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) emit(ctx context.Context, typ events.Type, actor uuid.UUID, rfcID uuid.UUID, modify func(*events.Event)) {
	evt := events.New(typ, actor, rfcID)
	if modify != nil {
		modify(&evt)
	}
	events.Emit(ctx, s.publisher, s.logger, evt)
}

// owned loads an RFC for its client. Other actors get NotFound.
func (s *Service) owned(ctx context.Context, clientID, id uuid.UUID, lock bool) (*RequestForCare, error) {
	get := s.rfcs.GetByID
	if lock {
		get = s.rfcs.GetForUpdate
	}
	r, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.ClientID != clientID {
		return nil, apperr.NotFound("request for care")
	}
	return r, nil
}

func (s *Service) checkPatient(ctx context.Context, clientID, patientID uuid.UUID) error {
	ok, err := s.patients.BelongsTo(ctx, clientID, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("invalid request for care", map[string]string{"patient_id": "unknown patient"})
	}
	return nil
}

// CreateDraft stores a new request in draft with its first ledger entry.
func (s *Service) CreateDraft(ctx context.Context, clientID uuid.UUID, attrs *Attributes) (*RequestForCare, error) {
	if fields := attrs.normalize(); len(fields) > 0 {
		return nil, apperr.Validation("invalid request for care", fields)
	}
	if err := s.checkPatient(ctx, clientID, attrs.PatientID); err != nil {
		return nil, err
	}

	r := &RequestForCare{ClientID: clientID, Status: StatusDraft}
	attrs.apply(r)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.rfcs.Create(ctx, r); err != nil {
			return err
		}
		_, err := s.rfcs.AppendStatus(ctx, r.ID, StatusDraft)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.RFCCreated, clientID, r.ID, func(e *events.Event) { e.Status = string(StatusDraft) })
	return r, nil
}

// UpdateDraft replaces the attributes of a draft.
func (s *Service) UpdateDraft(ctx context.Context, clientID, id uuid.UUID, attrs *Attributes) (*RequestForCare, error) {
	if fields := attrs.normalize(); len(fields) > 0 {
		return nil, apperr.Validation("invalid request for care", fields)
	}

	var r *RequestForCare
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.owned(ctx, clientID, id, true)
		if err != nil {
			return err
		}
		if !r.IsEditable() {
			return apperr.PreconditionFailed(fmt.Sprintf("request for care is %s and can no longer be edited", r.Status))
		}
		if attrs.PatientID != r.PatientID {
			if err := s.checkPatient(ctx, clientID, attrs.PatientID); err != nil {
				return err
			}
		}
		attrs.apply(r)
		return s.rfcs.Update(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.RFCUpdated, clientID, r.ID, nil)
	return r, nil
}

// PublishInput selects the visibility and the professionals invited.
type PublishInput struct {
	Visibility      Status      `json:"visibility"`
	ProfessionalIDs []uuid.UUID `json:"professional_ids"`
	// AllWatched adds every professional on the client's watch list.
	AllWatched bool `json:"all_watched"`
}

// Publish moves a draft to public or private and opens an active proposal
// for every invited professional.
func (s *Service) Publish(ctx context.Context, clientID, id uuid.UUID, in PublishInput) (*RequestForCare, error) {
	if in.Visibility != StatusPublic && in.Visibility != StatusPrivate {
		return nil, apperr.Validation("invalid publication", map[string]string{"visibility": "must be public or private"})
	}

	var r *RequestForCare
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.owned(ctx, clientID, id, true)
		if err != nil {
			return err
		}
		if !r.IsPublishable() {
			return apperr.PreconditionFailed(fmt.Sprintf("request for care is %s and cannot be published", r.Status))
		}

		invited, err := s.invitees(ctx, clientID, in)
		if err != nil {
			return err
		}

		if _, err := s.rfcs.AppendStatus(ctx, r.ID, in.Visibility); err != nil {
			return err
		}
		if err := s.rfcs.SetStatus(ctx, r.ID, in.Visibility); err != nil {
			return err
		}
		r.Status = in.Visibility

		for _, pid := range invited {
			p, created, err := s.proposals.GetOrCreate(ctx, r.ID, pid, true)
			if err != nil {
				return err
			}
			if created {
				if _, err := s.proposals.AppendStatus(ctx, p.ID, ProposalUnknown); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.RFCPublished, clientID, r.ID, func(e *events.Event) { e.Status = string(r.Status) })
	return r, nil
}

func (s *Service) invitees(ctx context.Context, clientID uuid.UUID, in PublishInput) ([]uuid.UUID, error) {
	named := lo.Uniq(lo.Filter(in.ProfessionalIDs, func(id uuid.UUID, _ int) bool { return id != uuid.Nil }))
	if len(named) > 0 {
		outside, err := s.watchList.NotWatched(ctx, clientID, named)
		if err != nil {
			return nil, err
		}
		if len(outside) > 0 {
			return nil, apperr.Validation("invalid publication", map[string]string{
				"professional_ids": fmt.Sprintf("%d professional(s) are not on your watch list", len(outside)),
			})
		}
	}

	invited := named
	if in.AllWatched {
		watched, err := s.watchList.All(ctx, clientID)
		if err != nil {
			return nil, err
		}
		invited = lo.Uniq(append(invited, watched...))
	}
	if in.Visibility == StatusPrivate && len(invited) == 0 {
		return nil, apperr.Validation("invalid publication", map[string]string{
			"professional_ids": "a private request needs at least one professional",
		})
	}
	return invited, nil
}

// Cancel closes a request whose response deadline has not passed.
func (s *Service) Cancel(ctx context.Context, clientID, id uuid.UUID) (*RequestForCare, error) {
	var r *RequestForCare
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		r, err = s.owned(ctx, clientID, id, true)
		if err != nil {
			return err
		}
		if !r.IsCancelable(s.now()) {
			return apperr.PreconditionFailed("request for care can no longer be cancelled")
		}
		if _, err := s.rfcs.AppendStatus(ctx, r.ID, StatusCancelled); err != nil {
			return err
		}
		if err := s.rfcs.SetStatus(ctx, r.ID, StatusCancelled); err != nil {
			return err
		}
		r.Status = StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.RFCCancelled, clientID, r.ID, func(e *events.Event) { e.Status = string(StatusCancelled) })
	return r, nil
}

func (s *Service) ListForClient(ctx context.Context, clientID uuid.UUID, draftOnly bool, limit, offset int) ([]*RequestForCare, int, error) {
	return s.rfcs.ListForClient(ctx, clientID, draftOnly, limit, offset)
}

func (s *Service) ListForProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*RequestForCare, int, error) {
	return s.rfcs.ListForProfessional(ctx, professionalID, limit, offset)
}

// GetForClient returns a request the client owns.
func (s *Service) GetForClient(ctx context.Context, clientID, id uuid.UUID) (*RequestForCare, error) {
	return s.owned(ctx, clientID, id, false)
}

// GetForProfessional returns a request visible to the professional.
func (s *Service) GetForProfessional(ctx context.Context, professionalID, id uuid.UUID) (*RequestForCare, error) {
	r, err := s.rfcs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.visibleTo(ctx, r, professionalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("request for care")
	}
	return r, nil
}

// StatusHistory returns the request's ledger, oldest first.
func (s *Service) StatusHistory(ctx context.Context, clientID, id uuid.UUID) ([]*StatusEntry, error) {
	if _, err := s.owned(ctx, clientID, id, false); err != nil {
		return nil, err
	}
	return s.rfcs.Statuses(ctx, id)
}

// visibleTo is true for public requests, and for private requests the
// professional already holds a proposal for.
func (s *Service) visibleTo(ctx context.Context, r *RequestForCare, professionalID uuid.UUID) (bool, error) {
	switch r.Status {
	case StatusPublic:
		return true, nil
	case StatusPrivate:
		_, err := s.proposals.Find(ctx, r.ID, professionalID)
		if apperr.Is(err, apperr.CodeNotFound) {
			return false, nil
		}
		return err == nil, err
	default:
		return false, nil
	}
}

// openProposal loads a visible request and the professional's proposal on
// it, creating the proposal when missing.
func (s *Service) openProposal(ctx context.Context, professionalID, rfcID uuid.UUID) (*RequestForCare, *Proposal, bool, error) {
	r, err := s.rfcs.GetByID(ctx, rfcID)
	if err != nil {
		return nil, nil, false, err
	}
	ok, err := s.visibleTo(ctx, r, professionalID)
	if err != nil {
		return nil, nil, false, err
	}
	if !ok {
		return nil, nil, false, apperr.NotFound("request for care")
	}

	p, created, err := s.proposals.GetOrCreate(ctx, r.ID, professionalID, false)
	if err != nil {
		return nil, nil, false, err
	}
	if created {
		if _, err := s.proposals.AppendStatus(ctx, p.ID, ProposalUnknown); err != nil {
			return nil, nil, false, err
		}
	}
	return r, p, created, nil
}

// OpenOrCreateProposal returns the professional's proposal on a request and
// marks it viewed.
func (s *Service) OpenOrCreateProposal(ctx context.Context, professionalID, rfcID uuid.UUID) (*Proposal, error) {
	var (
		p       *Proposal
		created bool
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		_, p, created, err = s.openProposal(ctx, professionalID, rfcID)
		if err != nil {
			return err
		}
		if p.Viewed {
			return nil
		}
		p.Viewed = true
		return s.proposals.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	if created {
		s.emit(ctx, events.ProposalOpened, professionalID, rfcID, func(e *events.Event) { e.ProposalID = &p.ID })
	}
	return p, nil
}

// SaveInput is a professional's edit of their proposal.
type SaveInput struct {
	Answers
	Rating string `json:"rating"`
	Submit bool   `json:"submit"`
}

// SaveProposal stores the professional's answers and, when in.Submit is
// set, stamps the submission time.
func (s *Service) SaveProposal(ctx context.Context, professionalID, rfcID uuid.UUID, in SaveInput) (*Proposal, error) {
	answers := in.Answers
	if fields := validateAnswers(&answers, in.Rating, in.Submit); len(fields) > 0 {
		return nil, apperr.Validation("invalid proposal", fields)
	}

	var p *Proposal
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, prop, _, err := s.openProposal(ctx, professionalID, rfcID)
		if err != nil {
			return err
		}
		if in.Submit && !r.IsPublished() {
			return apperr.PreconditionFailed("request for care is not accepting proposals")
		}
		prop.Answers = answers
		prop.Rating = in.Rating
		prop.Viewed = true
		if in.Submit {
			now := s.now().UTC()
			prop.Submitted = &now
		}
		p = prop
		return s.proposals.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	if in.Submit {
		s.emit(ctx, events.ProposalSubmitted, professionalID, rfcID, func(e *events.Event) { e.ProposalID = &p.ID })
	}
	return p, nil
}

// proposalOf loads a proposal on a client's request.
func (s *Service) proposalOf(ctx context.Context, clientID, rfcID, proposalID uuid.UUID, lock bool) (*RequestForCare, *Proposal, error) {
	r, err := s.owned(ctx, clientID, rfcID, lock)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if p.RequestForCareID != r.ID {
		return nil, nil, apperr.NotFound("proposal")
	}
	return r, p, nil
}

// setProposalStatus records a status change in the proposal ledger. It is a
// no-op when the status is unchanged.
func (s *Service) setProposalStatus(ctx context.Context, p *Proposal, status ProposalStatus) error {
	if p.Status == status {
		return nil
	}
	if err := s.proposals.SetStatus(ctx, p.ID, status); err != nil {
		return err
	}
	if _, err := s.proposals.AppendStatus(ctx, p.ID, status); err != nil {
		return err
	}
	p.Status = status
	return nil
}

func (s *Service) decide(ctx context.Context, clientID, rfcID, proposalID uuid.UUID, status ProposalStatus) (*Proposal, error) {
	var p *Proposal
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		_, p, err = s.proposalOf(ctx, clientID, rfcID, proposalID, true)
		if err != nil {
			return err
		}
		return s.setProposalStatus(ctx, p, status)
	})
	if err != nil {
		return nil, err
	}
	typ := events.ProposalAccepted
	if status == ProposalRejected {
		typ = events.ProposalRejected
	}
	s.emit(ctx, typ, clientID, rfcID, func(e *events.Event) {
		e.ProposalID = &p.ID
		e.Status = string(status)
	})
	return p, nil
}

func (s *Service) AcceptProposal(ctx context.Context, clientID, rfcID, proposalID uuid.UUID) (*Proposal, error) {
	return s.decide(ctx, clientID, rfcID, proposalID, ProposalAccepted)
}

func (s *Service) RejectProposal(ctx context.Context, clientID, rfcID, proposalID uuid.UUID) (*Proposal, error) {
	return s.decide(ctx, clientID, rfcID, proposalID, ProposalRejected)
}

// ContractProposal accepts the proposal and returns the job created from it.
// Repeated calls return the same job.
func (s *Service) ContractProposal(ctx context.Context, clientID, rfcID, proposalID uuid.UUID) (uuid.UUID, error) {
	var (
		p     *Proposal
		jobID uuid.UUID
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, prop, err := s.proposalOf(ctx, clientID, rfcID, proposalID, true)
		if err != nil {
			return err
		}
		if r.Status == StatusCancelled {
			return apperr.PreconditionFailed("request for care is cancelled")
		}
		if err := s.setProposalStatus(ctx, prop, ProposalAccepted); err != nil {
			return err
		}
		p = prop
		jobID, err = s.jobs.CreateJobFromProposal(ctx, r, p)
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	s.emit(ctx, events.ProposalContracted, clientID, rfcID, func(e *events.Event) {
		e.ProposalID = &p.ID
		e.JobID = &jobID
		e.Status = string(ProposalAccepted)
	})
	return jobID, nil
}

// Review lists the non-rejected proposals on a client's request.
// shortList keeps accepted ones only. An empty orderBy shuffles.
func (s *Service) Review(ctx context.Context, clientID, rfcID uuid.UUID, shortList bool, orderBy string) ([]*Proposal, error) {
	order, err := parseOrder(orderBy)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, clientID, rfcID, false); err != nil {
		return nil, err
	}
	items, err := s.proposals.ListForReview(ctx, rfcID, ReviewFilter{ShortList: shortList})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []*Proposal{}, nil
	}

	names, err := s.directory.DisplayNames(ctx, lo.Map(items, func(p *Proposal, _ int) uuid.UUID { return p.UserID }))
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		p.ResponderName = names[p.UserID]
	}
	order.sort(items)
	return items, nil
}

// ProposalDetail returns one submitted proposal on a client's request.
func (s *Service) ProposalDetail(ctx context.Context, clientID, rfcID, proposalID uuid.UUID) (*Proposal, error) {
	_, p, err := s.proposalOf(ctx, clientID, rfcID, proposalID, false)
	if err != nil {
		return nil, err
	}
	if !p.IsSubmitted() {
		return nil, apperr.NotFound("proposal")
	}
	names, err := s.directory.DisplayNames(ctx, []uuid.UUID{p.UserID})
	if err != nil {
		return nil, err
	}
	p.ResponderName = names[p.UserID]
	return p, nil
}

// ProposalHistory returns a proposal's ledger to the request's client or the
// proposal's professional.
func (s *Service) ProposalHistory(ctx context.Context, actorID, rfcID, proposalID uuid.UUID) ([]*ProposalStatusEntry, error) {
	r, err := s.rfcs.GetByID(ctx, rfcID)
	if err != nil {
		return nil, err
	}
	p, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.RequestForCareID != r.ID || (r.ClientID != actorID && p.UserID != actorID) {
		return nil, apperr.NotFound("proposal")
	}
	return s.proposals.Statuses(ctx, p.ID)
}

// ListMine returns the professional's own proposals, newest first.
func (s *Service) ListMine(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]*Proposal, int, error) {
	return s.proposals.ListByUser(ctx, professionalID, limit, offset)
}
